// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.Empty(t, Map([]int{}, strconv.Itoa))
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4}, Iota(2, 3))
	assert.Equal(t, []float64{0.5, 1.5}, Iota(0.5, 2))
}

func TestTile(t *testing.T) {
	s := make([]int32, 7)
	Tile(s, []int32{1, 2, 3})
	assert.Equal(t, []int32{1, 2, 3, 1, 2, 3, 1}, s)

	s = make([]int32, 2)
	Tile(s, []int32{5, 6, 7})
	assert.Equal(t, []int32{5, 6}, s)

	Tile(s, nil)
	assert.Equal(t, []int32{5, 6}, s)
	Tile([]int32{}, []int32{1}) // Must not panic.
}
