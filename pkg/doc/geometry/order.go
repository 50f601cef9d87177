// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
)

// ReadingOrder defines how text regions are sorted.
type ReadingOrder int

const (
	// TopToBottom sorts by the y coordinate of the center, and then by x.
	TopToBottom ReadingOrder = iota

	// LeftToRight sorts by the x coordinate of the center, and then by y.
	LeftToRight
)

// String implements fmt.Stringer, using the same names accepted by ParseReadingOrder.
func (o ReadingOrder) String() string {
	if o == LeftToRight {
		return "left_to_right"
	}
	return "top_to_bottom"
}

// ParseReadingOrder converts "top_to_bottom" or "left_to_right" to a ReadingOrder.
func ParseReadingOrder(s string) (ReadingOrder, error) {
	switch s {
	case "top_to_bottom":
		return TopToBottom, nil
	case "left_to_right":
		return LeftToRight, nil
	}
	return TopToBottom, errors.Errorf("unknown reading order %q, valid values are \"top_to_bottom\" and \"left_to_right\"", s)
}

// SortPolygons sorts items in place by the center of the minimum-area rectangle of their polygon,
// given by polyFn. The sort is stable: items with the same center keep their relative order.
func SortPolygons[T any](items []T, polyFn func(T) Polygon, order ReadingOrder) {
	type keyed struct {
		item               T
		primary, secondary float64
	}
	keys := make([]keyed, len(items))
	for i, item := range items {
		center := polyFn(item).MinAreaRect().Center
		keys[i] = keyed{item: item, primary: center.Y, secondary: center.X}
		if order == LeftToRight {
			keys[i].primary, keys[i].secondary = center.X, center.Y
		}
	}
	slices.SortStableFunc(keys, func(a, b keyed) int {
		if c := cmp.Compare(a.primary, b.primary); c != 0 {
			return c
		}
		return cmp.Compare(a.secondary, b.secondary)
	})
	for i := range keys {
		items[i] = keys[i].item
	}
}
