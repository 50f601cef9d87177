// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) []Out {
	out := make([]Out, len(in))
	for i, e := range in {
		out[i] = fn(e)
	}
	return out
}

// Iota returns a slice of n incremental values, starting with start.
// Eg: Iota(3.0, 2) -> []float64{3.0, 4.0}
func Iota[T constraints.Integer | constraints.Float](start T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = start + T(i)
	}
	return out
}

// Tile fills out with repetitions of pattern, e.g. the per-channel values of every pixel of an image.
// The last repetition is truncated if len(out) is not a multiple of len(pattern).
// An empty pattern leaves out unchanged.
func Tile[T any](out, pattern []T) {
	if len(pattern) == 0 || len(out) == 0 {
		return
	}
	filled := copy(out, pattern)
	for filled < len(out) {
		filled += copy(out[filled:], out[:filled])
	}
}
