// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package imagetensor holds images as dense float32 arrays, shaped [height, width, channels]
// or [channels, height, width], ready to be fed to a model.
package imagetensor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
)

// ChannelsAxisConfig indicates if the channels axis of an image comes first or last.
type ChannelsAxisConfig uint8

const (
	ChannelsFirst ChannelsAxisConfig = iota
	ChannelsLast
)

// String implements fmt.Stringer.
func (c ChannelsAxisConfig) String() string {
	switch c {
	case ChannelsFirst:
		return "ChannelsFirst"
	case ChannelsLast:
		return "ChannelsLast"
	}
	return fmt.Sprintf("ChannelsAxisConfig(%d)", int(c))
}

// NumChannels of the images converted by FromImage: the alpha channel is dropped.
const NumChannels = 3

// Tensor is a single image. Flat holds the values in row-major order of Dims.
type Tensor struct {
	Dims   [3]int
	Layout ChannelsAxisConfig
	Flat   []float32
}

// New creates a zero-valued image Tensor with the given spatial dimensions and layout.
func New(height, width, channels int, layout ChannelsAxisConfig) *Tensor {
	if height <= 0 || width <= 0 || channels <= 0 {
		exceptions.Panicf("imagetensor.New(%d, %d, %d): dimensions must be > 0", height, width, channels)
	}
	t := &Tensor{Layout: layout, Flat: make([]float32, height*width*channels)}
	if layout == ChannelsLast {
		t.Dims = [3]int{height, width, channels}
	} else {
		t.Dims = [3]int{channels, height, width}
	}
	return t
}

// FromImage converts img to a ChannelsLast tensor with 3 channels (RGB), with values scaled to [0, maxValue].
func FromImage(img image.Image, maxValue float64) *Tensor {
	bounds := img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()
	t := New(height, width, NumChannels, ChannelsLast)
	scale := maxValue / 0xFFFF
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			t.Flat[idx] = float32(float64(r) * scale)
			t.Flat[idx+1] = float32(float64(g) * scale)
			t.Flat[idx+2] = float32(float64(b) * scale)
			idx += NumChannels
		}
	}
	return t
}

// ToImage converts the tensor back to an image, with values in [0, maxValue] mapped to [0, 255].
// Values out of range are clipped. Only tensors with 3 channels are supported.
func (t *Tensor) ToImage(maxValue float64) *image.NRGBA {
	if t.Channels() != NumChannels {
		exceptions.Panicf("ToImage requires %d channels, tensor has %d", NumChannels, t.Channels())
	}
	height, width := t.Height(), t.Width()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	toUint8 := func(v float32) uint8 {
		return uint8(math.Round(min(max(float64(v)/maxValue, 0), 1) * 255))
	}
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{
				R: toUint8(t.At(y, x, 0)),
				G: toUint8(t.At(y, x, 1)),
				B: toUint8(t.At(y, x, 2)),
				A: 255,
			})
		}
	}
	return img
}

// Height of the image.
func (t *Tensor) Height() int {
	if t.Layout == ChannelsLast {
		return t.Dims[0]
	}
	return t.Dims[1]
}

// Width of the image.
func (t *Tensor) Width() int {
	if t.Layout == ChannelsLast {
		return t.Dims[1]
	}
	return t.Dims[2]
}

// Channels of the image.
func (t *Tensor) Channels() int {
	if t.Layout == ChannelsLast {
		return t.Dims[2]
	}
	return t.Dims[0]
}

func (t *Tensor) offset(y, x, c int) int {
	if t.Layout == ChannelsLast {
		return (y*t.Dims[1]+x)*t.Dims[2] + c
	}
	return (c*t.Dims[1]+y)*t.Dims[2] + x
}

// At returns the value at row y, column x and channel c, independent of the layout.
func (t *Tensor) At(y, x, c int) float32 {
	return t.Flat[t.offset(y, x, c)]
}

// Set the value at row y, column x and channel c, independent of the layout.
func (t *Tensor) Set(y, x, c int, value float32) {
	t.Flat[t.offset(y, x, c)] = value
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := *t
	clone.Flat = make([]float32, len(t.Flat))
	copy(clone.Flat, t.Flat)
	return &clone
}

// ToLayout returns a copy of the tensor transposed to the given layout, or t itself if it already
// has that layout.
func (t *Tensor) ToLayout(layout ChannelsAxisConfig) *Tensor {
	if t.Layout == layout {
		return t
	}
	out := New(t.Height(), t.Width(), t.Channels(), layout)
	for y := range t.Height() {
		for x := range t.Width() {
			for c := range t.Channels() {
				out.Set(y, x, c, t.At(y, x, c))
			}
		}
	}
	return out
}

// ToChannelsFirst returns the tensor shaped [channels, height, width].
func (t *Tensor) ToChannelsFirst() *Tensor { return t.ToLayout(ChannelsFirst) }

// ToChannelsLast returns the tensor shaped [height, width, channels].
func (t *Tensor) ToChannelsLast() *Tensor { return t.ToLayout(ChannelsLast) }

// Float16 returns the values converted to half precision, in the same order as Flat.
func (t *Tensor) Float16() []float16.Float16 {
	out := make([]float16.Float16, len(t.Flat))
	for i, v := range t.Flat {
		out[i] = float16.Fromfloat32(v)
	}
	return out
}
