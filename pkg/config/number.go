// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/gomlx/structext/pkg/support/xslices"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Number is a float configuration value that can be written in YAML either as a number
// or as a string holding a decimal literal or a fraction "a/b" (e.g.: "1/255").
//
// Values are parsed when the configuration is loaded: nothing else is accepted.
type Number float64

// Float64 returns the value as a float64.
func (n Number) Float64() float64 { return float64(n) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected a number, got a YAML node of kind %d", node.Line, node.Kind)
	}
	v, err := ParseNumber(node.Value)
	if err != nil {
		return errors.WithMessagef(err, "line %d", node.Line)
	}
	*n = Number(v)
	return nil
}

// ParseNumber parses a decimal literal ("0.5", "1e-4") or a fraction of two decimal literals ("1/3").
// Infinities and NaN are rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty number")
	}
	if numStr, denStr, isFraction := strings.Cut(s, "/"); isFraction {
		num, err := parseFinite(numStr)
		if err != nil {
			return 0, errors.WithMessagef(err, "invalid numerator in %q", s)
		}
		den, err := parseFinite(denStr)
		if err != nil {
			return 0, errors.WithMessagef(err, "invalid denominator in %q", s)
		}
		if den == 0 {
			return 0, errors.Errorf("division by zero in %q", s)
		}
		return num / den, nil
	}
	return parseFinite(s)
}

func parseFinite(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("%q is not a decimal number", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

// Numbers converts a slice of Number to float64.
func Numbers(values []Number) []float64 {
	return xslices.Map(values, Number.Float64)
}
