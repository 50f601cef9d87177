// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/core/imagetensor"
	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func newExample(width, height int) *sample.Example {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	ex := &sample.Example{Name: "test", Image: img, Ratio: r2.Vec{X: 1, Y: 1}}
	ex.Words.Append([4][2]float32{{0, 0}, {100, 0}, {100, 50}, {0, 50}}, []int{1}, -1, false)
	ex.Lines.Append([4][2]float32{{0, 0}, {200, 0}, {200, 50}, {0, 50}}, []int{1}, 0, false)
	return ex
}

func TestDefaultPipeline(t *testing.T) {
	pipeline, err := Build(config.Default().Transforms)
	require.NoError(t, err)
	require.Len(t, pipeline.Transforms, 5)

	ex := newExample(1024, 512)
	require.NoError(t, pipeline.Apply(ex, rand.New(rand.NewPCG(1, 1))))
	require.NotNil(t, ex.Tensor)
	assert.Nil(t, ex.Image)
	assert.Equal(t, imagetensor.ChannelsFirst, ex.Tensor.Layout)
	assert.Equal(t, [3]int{3, 256, 512}, ex.Tensor.Dims)
	assert.Equal(t, r2.Vec{X: 0.5, Y: 0.5}, ex.Ratio)
	assert.Equal(t, [4][2]float32{{0, 0}, {50, 0}, {50, 25}, {0, 25}}, ex.Words.Polys[0])
	assert.Equal(t, [4][2]float32{{0, 0}, {100, 0}, {100, 25}, {0, 25}}, ex.Lines.Polys[0])
	require.NoError(t, ex.Validate())
}

func TestBuildFromConfig(t *testing.T) {
	// Params read from YAML.
	cfg, err := config.Parse([]byte("transforms:\n  - name: resize\n    params: {size: 256}\n  - name: to_tensor\n"))
	require.NoError(t, err)
	pipeline, err := Build(cfg.Transforms)
	require.NoError(t, err)
	ex := newExample(1024, 512)
	require.NoError(t, pipeline.Apply(ex, rand.New(rand.NewPCG(1, 1))))
	assert.Equal(t, [3]int{128, 256, 3}, ex.Tensor.Dims)

	// Params survive settings of unrelated keys.
	cfg = config.Default()
	_, err = config.ApplySettings(cfg, "dataset.batch_size=4")
	require.NoError(t, err)
	pipeline, err = Build(cfg.Transforms)
	require.NoError(t, err)
	ex = newExample(1024, 512)
	require.NoError(t, pipeline.Apply(ex, rand.New(rand.NewPCG(1, 1))))
	assert.Equal(t, [3]int{3, 256, 512}, ex.Tensor.Dims)

	// And settings of the params themselves.
	_, err = config.ApplySettings(cfg, "transforms.0.params.size=256")
	require.NoError(t, err)
	pipeline, err = Build(cfg.Transforms)
	require.NoError(t, err)
	ex = newExample(1024, 512)
	require.NoError(t, pipeline.Apply(ex, rand.New(rand.NewPCG(1, 1))))
	assert.Equal(t, [3]int{3, 128, 256}, ex.Tensor.Dims)
}

func TestResize(t *testing.T) {
	r, err := NewResize(config.NewTransformSpec("resize", map[string]any{"width": 64, "height": 32}))
	require.NoError(t, err)
	ex := newExample(128, 128)
	require.NoError(t, r.Apply(ex, nil))
	assert.Equal(t, 64, ex.Image.Bounds().Dx())
	assert.Equal(t, 32, ex.Image.Bounds().Dy())
	assert.Equal(t, r2.Vec{X: 0.5, Y: 0.25}, ex.Ratio)

	_, err = NewResize(config.NewTransformSpec("resize", map[string]any{"width": 64}))
	require.Error(t, err)
	_, err = NewResize(config.NewTransformSpec("resize", nil))
	require.Error(t, err)

	// Resizing a tensor is not supported.
	ex.Image, ex.Tensor = nil, imagetensor.New(2, 2, 3, imagetensor.ChannelsLast)
	require.Error(t, r.Apply(ex, nil))
}

func TestNormalize(t *testing.T) {
	n, err := NewNormalize(config.NewTransformSpec("normalize", map[string]any{
		"scale": "1/255", "mean": []float64{0.5, 0.5, 0.5}, "std": []string{"1/2", "0.5", "0.5"},
	}))
	require.NoError(t, err)
	ex := newExample(4, 4)
	toTensor, err := NewToTensor(config.NewTransformSpec("to_tensor", nil))
	require.NoError(t, err)
	require.NoError(t, toTensor.Apply(ex, nil))
	require.NoError(t, n.Apply(ex, nil))
	for _, v := range ex.Tensor.Flat {
		assert.InDelta(t, 1.0, v, 1e-5)
	}

	_, err = NewNormalize(config.NewTransformSpec("normalize", map[string]any{"mean": []float64{0}, "std": []float64{0}}))
	require.Error(t, err)
	_, err = NewNormalize(config.NewTransformSpec("normalize", map[string]any{"std": []float64{1}}))
	require.Error(t, err)
}

func TestRandomErasing(t *testing.T) {
	e, err := NewRandomErasing(config.NewTransformSpec("random_erasing", map[string]any{
		"probability": 1, "mean": []float64{-1, -1, -1},
	}))
	require.NoError(t, err)
	ex := newExample(64, 64)
	require.Error(t, e.Apply(ex, rand.New(rand.NewPCG(1, 2))), "requires a tensor")

	require.NoError(t, ToCHW{}.Apply(&sample.Example{Tensor: imagetensor.New(1, 1, 3, imagetensor.ChannelsLast)}, nil))
	ex.Tensor = imagetensor.FromImage(ex.Image, 1)
	require.NoError(t, e.Apply(ex, rand.New(rand.NewPCG(1, 2))))
	var erased int
	for _, v := range ex.Tensor.Flat {
		if v == -1 {
			erased++
		}
	}
	assert.Greater(t, erased, 0)

	_, err = NewRandomErasing(config.NewTransformSpec("random_erasing", map[string]any{"mode": "noise"}))
	require.Error(t, err)
	_, err = NewRandomErasing(config.NewTransformSpec("random_erasing", map[string]any{"probability": "eval(2)"}))
	require.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]config.TransformSpec{{Name: "rotate"}})
	require.Error(t, err)
	assert.Contains(t, Registered(), "random_erasing")

	// Custom transformations can be registered.
	Register("identity", func(config.TransformSpec) (Transform, error) { return ToCHW{}, nil })
	p, err := Build([]config.TransformSpec{{Name: "identity"}})
	require.NoError(t, err)
	assert.Len(t, p.Transforms, 1)
}
