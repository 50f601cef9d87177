// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import (
	"math/rand/v2"

	"github.com/gomlx/structext/pkg/support/xslices"
	"github.com/pkg/errors"
)

// PixelMode defines the values used to fill an erased area.
type PixelMode int

const (
	// Const fills with the configured mean value of each channel.
	Const PixelMode = iota

	// Rand fills with one random normal value per channel, the same for every pixel.
	Rand

	// Pixel fills every pixel and channel with an independent random normal value.
	Pixel
)

var pixelModeNames = []string{"const", "rand", "pixel"}

// String implements fmt.Stringer.
func (m PixelMode) String() string {
	if m < 0 || int(m) >= len(pixelModeNames) {
		return "invalid"
	}
	return pixelModeNames[m]
}

// ErrInvalidPixelMode is returned for unknown pixel fill modes.
var ErrInvalidPixelMode = errors.New("invalid mode in RandomErasing, only \"const\", \"rand\" and \"pixel\" are supported")

// ParsePixelMode converts "const", "rand" or "pixel" to a PixelMode.
func ParsePixelMode(s string) (PixelMode, error) {
	for i, name := range pixelModeNames {
		if s == name {
			return PixelMode(i), nil
		}
	}
	return Const, errors.Wrapf(ErrInvalidPixelMode, "mode %q", s)
}

// Pixels generates the values to fill an erased area.
type Pixels struct {
	Mode PixelMode

	// Mean value per channel, used by Const. A single value is used for every channel.
	Mean []float64
}

// Generate returns h*w*c values, in row-major order of [h, w, c].
func (p Pixels) Generate(rng *rand.Rand, h, w, c int) ([]float32, error) {
	values := make([]float32, h*w*c)
	switch p.Mode {
	case Const:
		if len(p.Mean) != 1 && len(p.Mean) != c {
			return nil, errors.Errorf("RandomErasing mean has %d values, but image has %d channels", len(p.Mean), c)
		}
		perChannel := make([]float32, c)
		for i := range perChannel {
			perChannel[i] = float32(p.Mean[i%len(p.Mean)])
		}
		xslices.Tile(values, perChannel)
	case Rand:
		perChannel := make([]float32, c)
		for i := range perChannel {
			perChannel[i] = float32(rng.NormFloat64())
		}
		xslices.Tile(values, perChannel)
	case Pixel:
		for i := range values {
			values[i] = float32(rng.NormFloat64())
		}
	default:
		return nil, errors.Wrapf(ErrInvalidPixelMode, "mode %d", int(p.Mode))
	}
	return values, nil
}
