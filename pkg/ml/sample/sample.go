// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sample defines the examples produced by the datasets: an image and its
// word-level and line-level labels.
package sample

import (
	"image"

	"github.com/gomlx/structext/pkg/core/imagetensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// LabelGroup holds the labels of the text regions of one granularity (words or lines).
// All slices have the same length, one entry per region.
type LabelGroup struct {
	Polys [][4][2]float32

	// Texts are the encoded transcripts: padded to a fixed length for words, raw (variable length) for lines.
	Texts [][]int

	Classes    []int64
	IgnoreTags []bool
}

// Len returns the number of regions in the group.
func (g *LabelGroup) Len() int {
	return len(g.Polys)
}

// Append one region to the group.
func (g *LabelGroup) Append(poly [4][2]float32, text []int, class int64, ignore bool) {
	g.Polys = append(g.Polys, poly)
	g.Texts = append(g.Texts, text)
	g.Classes = append(g.Classes, class)
	g.IgnoreTags = append(g.IgnoreTags, ignore)
}

// Validate checks that all slices have the same length.
func (g *LabelGroup) Validate() error {
	n := len(g.Polys)
	if len(g.Texts) != n || len(g.Classes) != n || len(g.IgnoreTags) != n {
		return errors.Errorf("inconsistent label group: %d polygons, %d texts, %d classes and %d ignore tags",
			n, len(g.Texts), len(g.Classes), len(g.IgnoreTags))
	}
	return nil
}

// Example is one document image with its labels.
type Example struct {
	// Name of the example, the annotation file name without extension.
	Name      string
	ImagePath string

	// Image as read from disk. Transformations may replace it, and it is
	// released (set to nil) once converted to Tensor.
	Image image.Image

	// Tensor is the image converted to float values, set by the "to_tensor" transformation.
	Tensor *imagetensor.Tensor

	// Ratio of the current image size to the original one, for x and y.
	Ratio r2.Vec

	Words, Lines LabelGroup
}

// Validate checks the consistency of the example.
func (e *Example) Validate() error {
	if e.Image == nil && e.Tensor == nil {
		return errors.Errorf("example %q has no image", e.Name)
	}
	if err := e.Words.Validate(); err != nil {
		return errors.WithMessagef(err, "example %q words", e.Name)
	}
	if err := e.Lines.Validate(); err != nil {
		return errors.WithMessagef(err, "example %q lines", e.Name)
	}
	return nil
}

// ScalePolygons multiplies the x and y coordinates of all polygons by sx and sy, and updates Ratio.
func (e *Example) ScalePolygons(sx, sy float64) {
	for _, g := range []*LabelGroup{&e.Words, &e.Lines} {
		for i := range g.Polys {
			for j := range g.Polys[i] {
				g.Polys[i][j][0] *= float32(sx)
				g.Polys[i][j][1] *= float32(sy)
			}
		}
	}
	e.Ratio = r2.Vec{X: e.Ratio.X * sx, Y: e.Ratio.Y * sy}
}
