// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package augment implements data augmentation operators for image tensors.
package augment

import (
	"math"
	"math/rand/v2"

	"github.com/gomlx/structext/pkg/core/imagetensor"
	"github.com/pkg/errors"
)

// ErasingConfig configures RandomErasing. Use DefaultErasingConfig and change what is needed.
type ErasingConfig struct {
	// Probability of erasing a rectangle of an image.
	Probability float64

	// MinArea and MaxArea are the range of the erased area, as a fraction of the image area.
	MinArea, MaxArea float64

	// AspectRatio r defines the range (r, 1/r) of the aspect ratio (height/width) of the erased area.
	AspectRatio float64

	// UseLogAspect samples the aspect ratio uniformly in log space.
	UseLogAspect bool

	// Attempts is the number of rectangles tried until one fits in the image.
	Attempts int

	// Mode and Mean define the fill values.
	Mode PixelMode
	Mean []float64
}

// DefaultErasingConfig returns the default configuration.
func DefaultErasingConfig() ErasingConfig {
	return ErasingConfig{
		Probability: 0.5,
		MinArea:     0.02,
		MaxArea:     0.4,
		AspectRatio: 0.3,
		Attempts:    100,
		Mode:        Const,
		Mean:        []float64{0, 0, 0},
	}
}

// RandomErasing erases a random rectangle of an image, filling it according to its PixelMode.
type RandomErasing struct {
	cfg        ErasingConfig
	ratioRange [2]float64
	pixels     Pixels
	rng        *rand.Rand
}

// NewRandomErasing validates the configuration and creates a RandomErasing operator.
// rng is used by Apply for all random choices, and must not be shared with other goroutines.
// It can be nil if only ApplyWithRand is used.
func NewRandomErasing(cfg ErasingConfig, rng *rand.Rand) (*RandomErasing, error) {
	if cfg.Probability < 0 || cfg.Probability > 1 {
		return nil, errors.Errorf("RandomErasing probability must be in [0, 1], got %g", cfg.Probability)
	}
	if cfg.MinArea <= 0 || cfg.MinArea > cfg.MaxArea || cfg.MaxArea > 1 {
		return nil, errors.Errorf("RandomErasing area range must be 0 < min <= max <= 1, got [%g, %g]", cfg.MinArea, cfg.MaxArea)
	}
	if cfg.AspectRatio <= 0 {
		return nil, errors.Errorf("RandomErasing aspect ratio must be > 0, got %g", cfg.AspectRatio)
	}
	if cfg.Attempts <= 0 {
		return nil, errors.Errorf("RandomErasing attempts must be > 0, got %d", cfg.Attempts)
	}
	if cfg.Mode < Const || cfg.Mode > Pixel {
		return nil, errors.Wrapf(ErrInvalidPixelMode, "mode %d", int(cfg.Mode))
	}
	e := &RandomErasing{
		cfg:    cfg,
		pixels: Pixels{Mode: cfg.Mode, Mean: cfg.Mean},
		rng:    rng,
	}
	e.ratioRange = [2]float64{cfg.AspectRatio, 1 / cfg.AspectRatio}
	if cfg.UseLogAspect {
		e.ratioRange = [2]float64{math.Log(cfg.AspectRatio), math.Log(1 / cfg.AspectRatio)}
	}
	return e, nil
}

func uniform(rng *rand.Rand, low, high float64) float64 {
	return low + (high-low)*rng.Float64()
}

// Apply erases, in place, at most one rectangle of img. It returns whether a rectangle was erased.
//
// The image is left untouched with probability 1-Probability, or if none of the attempted
// rectangles fit in the image.
func (e *RandomErasing) Apply(img *imagetensor.Tensor) (bool, error) {
	if e.rng == nil {
		return false, errors.New("RandomErasing.Apply requires a random number generator, use ApplyWithRand instead")
	}
	return e.ApplyWithRand(e.rng, img)
}

// ApplyWithRand is like Apply, but uses the given random number generator instead of the one
// given at construction. It is safe for concurrent use if each goroutine uses its own rng.
func (e *RandomErasing) ApplyWithRand(rng *rand.Rand, img *imagetensor.Tensor) (bool, error) {
	if rng.Float64() > e.cfg.Probability {
		return false, nil
	}
	height, width, channels := img.Height(), img.Width(), img.Channels()
	area := float64(height * width)
	for range e.cfg.Attempts {
		targetArea := uniform(rng, e.cfg.MinArea, e.cfg.MaxArea) * area
		aspectRatio := uniform(rng, e.ratioRange[0], e.ratioRange[1])
		if e.cfg.UseLogAspect {
			aspectRatio = math.Exp(aspectRatio)
		}
		h := int(math.RoundToEven(math.Sqrt(targetArea * aspectRatio)))
		w := int(math.RoundToEven(math.Sqrt(targetArea / aspectRatio)))
		if w >= width || h >= height {
			continue
		}
		values, err := e.pixels.Generate(rng, h, w, channels)
		if err != nil {
			return false, err
		}
		y0 := rng.IntN(height - h + 1)
		x0 := rng.IntN(width - w + 1)
		idx := 0
		for y := y0; y < y0+h; y++ {
			for x := x0; x < x0+w; x++ {
				for c := range channels {
					img.Set(y, x, c, values[idx])
					idx++
				}
			}
		}
		return true, nil
	}
	return false, nil
}
