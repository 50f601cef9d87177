// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/core/imagetensor"
	"github.com/gomlx/structext/pkg/ml/augment"
	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/pkg/errors"
)

func init() {
	Register("resize", NewResize)
	Register("to_tensor", NewToTensor)
	Register("normalize", NewNormalize)
	Register("random_erasing", NewRandomErasing)
	Register("to_chw", func(config.TransformSpec) (Transform, error) { return ToCHW{}, nil })
}

// Resize the image, scaling the polygons accordingly.
//
// If Width and Height are set, the image is resized to exactly that. Otherwise, it is
// resized so its longest side is Size, preserving the aspect ratio.
type Resize struct {
	Size   int `yaml:"size"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// NewResize creates a Resize transformation from its configuration.
func NewResize(spec config.TransformSpec) (Transform, error) {
	r := &Resize{}
	if err := spec.DecodeParams(r); err != nil {
		return nil, err
	}
	if (r.Width > 0) != (r.Height > 0) {
		return nil, errors.Errorf("resize requires both width and height, got %dx%d", r.Width, r.Height)
	}
	if r.Width <= 0 && r.Size <= 0 {
		return nil, errors.New("resize requires size > 0 or width and height")
	}
	return r, nil
}

// Name implements Transform.
func (r *Resize) Name() string { return "resize" }

// TargetSize returns the size of an image of the given dimensions after resizing.
func (r *Resize) TargetSize(width, height int) (int, int) {
	if r.Width > 0 {
		return r.Width, r.Height
	}
	scale := float64(r.Size) / float64(max(width, height))
	return max(1, int(math.Round(float64(width)*scale))), max(1, int(math.Round(float64(height)*scale)))
}

// Apply implements Transform.
func (r *Resize) Apply(ex *sample.Example, _ *rand.Rand) error {
	if ex.Image == nil {
		return errors.New("resize must be applied before to_tensor")
	}
	bounds := ex.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := r.TargetSize(width, height)
	if newWidth == width && newHeight == height {
		return nil
	}
	ex.Image = imaging.Resize(ex.Image, newWidth, newHeight, imaging.Linear)
	ex.ScalePolygons(float64(newWidth)/float64(width), float64(newHeight)/float64(height))
	return nil
}

// ToTensor converts the example image to a tensor, with values in [0, MaxValue].
// The image is released afterward.
type ToTensor struct {
	MaxValue config.Number `yaml:"max_value"`
}

// NewToTensor creates a ToTensor transformation from its configuration.
func NewToTensor(spec config.TransformSpec) (Transform, error) {
	t := &ToTensor{MaxValue: 255}
	if err := spec.DecodeParams(t); err != nil {
		return nil, err
	}
	if t.MaxValue <= 0 {
		return nil, errors.Errorf("to_tensor max_value must be > 0, got %g", t.MaxValue)
	}
	return t, nil
}

// Name implements Transform.
func (t *ToTensor) Name() string { return "to_tensor" }

// Apply implements Transform.
func (t *ToTensor) Apply(ex *sample.Example, _ *rand.Rand) error {
	if ex.Image == nil {
		return errors.New("to_tensor requires an image")
	}
	ex.Tensor = imagetensor.FromImage(ex.Image, t.MaxValue.Float64())
	ex.Image = nil
	return nil
}

// Normalize the tensor values: v = (v*Scale - Mean[c]) / Std[c].
type Normalize struct {
	Scale config.Number   `yaml:"scale"`
	Mean  []config.Number `yaml:"mean"`
	Std   []config.Number `yaml:"std"`
}

// NewNormalize creates a Normalize transformation from its configuration.
func NewNormalize(spec config.TransformSpec) (Transform, error) {
	n := &Normalize{
		Scale: 1.0 / 255,
		Mean:  []config.Number{0.485, 0.456, 0.406},
		Std:   []config.Number{0.229, 0.224, 0.225},
	}
	if err := spec.DecodeParams(n); err != nil {
		return nil, err
	}
	if len(n.Mean) != len(n.Std) || len(n.Mean) == 0 {
		return nil, errors.Errorf("normalize requires mean and std with the same number of channels, got %d and %d", len(n.Mean), len(n.Std))
	}
	for c, std := range n.Std {
		if std == 0 {
			return nil, errors.Errorf("normalize std for channel %d is 0", c)
		}
	}
	return n, nil
}

// Name implements Transform.
func (n *Normalize) Name() string { return "normalize" }

// Apply implements Transform.
func (n *Normalize) Apply(ex *sample.Example, _ *rand.Rand) error {
	img := ex.Tensor
	if img == nil {
		return errors.New("normalize must be applied after to_tensor")
	}
	if img.Channels() != len(n.Mean) {
		return errors.Errorf("normalize configured for %d channels, image has %d", len(n.Mean), img.Channels())
	}
	scale := float32(n.Scale)
	mean := make([]float32, len(n.Mean))
	invStd := make([]float32, len(n.Std))
	for c := range mean {
		mean[c] = float32(n.Mean[c])
		invStd[c] = float32(1 / n.Std[c])
	}
	for y := range img.Height() {
		for x := range img.Width() {
			for c := range mean {
				img.Set(y, x, c, (img.At(y, x, c)*scale-mean[c])*invStd[c])
			}
		}
	}
	return nil
}

// erasingParams is the configuration of the "random_erasing" transformation.
type erasingParams struct {
	Probability  config.Number   `yaml:"probability"`
	MinArea      config.Number   `yaml:"min_area"`
	MaxArea      config.Number   `yaml:"max_area"`
	AspectRatio  config.Number   `yaml:"aspect_ratio"`
	UseLogAspect bool            `yaml:"use_log_aspect"`
	Attempts     int             `yaml:"attempts"`
	Mode         string          `yaml:"mode"`
	Mean         []config.Number `yaml:"mean"`
}

// RandomErasing wraps augment.RandomErasing as a Transform.
type RandomErasing struct {
	eraser *augment.RandomErasing
}

// NewRandomErasing creates a RandomErasing transformation from its configuration.
func NewRandomErasing(spec config.TransformSpec) (Transform, error) {
	def := augment.DefaultErasingConfig()
	params := &erasingParams{
		Probability: config.Number(def.Probability),
		MinArea:     config.Number(def.MinArea),
		MaxArea:     config.Number(def.MaxArea),
		AspectRatio: config.Number(def.AspectRatio),
		Attempts:    def.Attempts,
		Mode:        def.Mode.String(),
	}
	if err := spec.DecodeParams(params); err != nil {
		return nil, err
	}
	mode, err := augment.ParsePixelMode(params.Mode)
	if err != nil {
		return nil, err
	}
	cfg := augment.ErasingConfig{
		Probability:  params.Probability.Float64(),
		MinArea:      params.MinArea.Float64(),
		MaxArea:      params.MaxArea.Float64(),
		AspectRatio:  params.AspectRatio.Float64(),
		UseLogAspect: params.UseLogAspect,
		Attempts:     params.Attempts,
		Mode:         mode,
		Mean:         def.Mean,
	}
	if params.Mean != nil {
		cfg.Mean = config.Numbers(params.Mean)
	}
	eraser, err := augment.NewRandomErasing(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &RandomErasing{eraser: eraser}, nil
}

// Name implements Transform.
func (e *RandomErasing) Name() string { return "random_erasing" }

// Apply implements Transform.
func (e *RandomErasing) Apply(ex *sample.Example, rng *rand.Rand) error {
	if ex.Tensor == nil {
		return errors.New("random_erasing must be applied after to_tensor")
	}
	_, err := e.eraser.ApplyWithRand(rng, ex.Tensor)
	return err
}

// ToCHW transposes the tensor to channels first.
type ToCHW struct{}

// Name implements Transform.
func (ToCHW) Name() string { return "to_chw" }

// Apply implements Transform.
func (ToCHW) Apply(ex *sample.Example, _ *rand.Rand) error {
	if ex.Tensor == nil {
		return errors.New("to_chw must be applied after to_tensor")
	}
	ex.Tensor = ex.Tensor.ToChannelsFirst()
	return nil
}
