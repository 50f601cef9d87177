// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package geometry implements the quadrilaterals used to locate text in document images,
// their minimum-area enclosing rectangles and their ordering in reading order.
package geometry

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is a quadrilateral given by its 4 corners (x0, y0, x1, y1, x2, y2, x3, y3),
// clockwise starting from the top-left corner for axis-aligned boxes.
type Polygon [8]float64

// FromBBox converts an axis-aligned box (x0, y0, x1, y1) to a Polygon.
func FromBBox(box [4]float64) Polygon {
	x0, y0, x1, y1 := box[0], box[1], box[2], box[3]
	return Polygon{x0, y0, x1, y0, x1, y1, x0, y1}
}

// Points returns the 4 corners.
func (p Polygon) Points() []r2.Vec {
	points := make([]r2.Vec, 4)
	for i := range points {
		points[i] = r2.Vec{X: p[2*i], Y: p[2*i+1]}
	}
	return points
}

// Scale returns the polygon with x coordinates multiplied by sx and y coordinates by sy.
func (p Polygon) Scale(sx, sy float64) Polygon {
	for i := 0; i < len(p); i += 2 {
		p[i] *= sx
		p[i+1] *= sy
	}
	return p
}

// Array returns the polygon as 4 points of float32 (x, y).
func (p Polygon) Array() [4][2]float32 {
	var a [4][2]float32
	for i := range a {
		a[i] = [2]float32{float32(p[2*i]), float32(p[2*i+1])}
	}
	return a
}

// String implements fmt.Stringer.
func (p Polygon) String() string {
	return fmt.Sprintf("[(%g, %g) (%g, %g) (%g, %g) (%g, %g)]", p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])
}

// RotatedRect is a rectangle of the given Size (width along the rotated x-axis, height along
// the rotated y-axis) centered at Center and rotated by Angle degrees.
type RotatedRect struct {
	Center r2.Vec
	Size   r2.Vec
	Angle  float64
}

// Area of the rectangle.
func (r RotatedRect) Area() float64 {
	return r.Size.X * r.Size.Y
}

// ConvexHull returns the convex hull of points in counter-clockwise order (in a y-up frame),
// without collinear points. Duplicated points are removed.
func ConvexHull(points []r2.Vec) []r2.Vec {
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b r2.Vec) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	sorted = slices.Compact(sorted)
	if len(sorted) < 3 {
		return sorted
	}

	// Andrew's monotone chain.
	turn := func(o, a, b r2.Vec) float64 {
		return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
	}
	hull := make([]r2.Vec, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// MinAreaRect returns the minimum-area rectangle enclosing the points.
//
// One of the sides of the minimum rectangle is always collinear with an edge of the convex hull,
// so only these orientations are tried. A single point returns a rectangle of size 0, and collinear
// points return a rectangle of height 0. It returns an error if points is empty.
func MinAreaRect(points []r2.Vec) (RotatedRect, error) {
	hull := ConvexHull(points)
	switch len(hull) {
	case 0:
		return RotatedRect{}, errors.New("MinAreaRect of an empty set of points")
	case 1:
		return RotatedRect{Center: hull[0]}, nil
	}

	best := RotatedRect{Size: r2.Vec{X: math.Inf(1), Y: math.Inf(1)}}
	bestArea := math.Inf(1)
	for i := range hull {
		edge := r2.Sub(hull[(i+1)%len(hull)], hull[i])
		if r2.Norm(edge) == 0 {
			continue
		}
		u := r2.Unit(edge)
		v := r2.Vec{X: -u.Y, Y: u.X}
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			pu, pv := r2.Dot(p, u), r2.Dot(p, v)
			minU, maxU = min(minU, pu), max(maxU, pu)
			minV, maxV = min(minV, pv), max(maxV, pv)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			center := r2.Add(r2.Scale((minU+maxU)/2, u), r2.Scale((minV+maxV)/2, v))
			best = RotatedRect{
				Center: center,
				Size:   r2.Vec{X: maxU - minU, Y: maxV - minV},
				Angle:  math.Atan2(u.Y, u.X) * 180 / math.Pi,
			}
		}
	}
	return best, nil
}

// MinAreaRect of the polygon corners.
func (p Polygon) MinAreaRect() RotatedRect {
	// 4 points are never empty, so there is no error.
	rect, _ := MinAreaRect(p.Points())
	return rect
}
