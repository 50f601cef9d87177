// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	"math"
	"strconv"
	"strings"

	"github.com/gomlx/structext/pkg/support/sets"
	"github.com/pkg/errors"
)

// Param is a trainable parameter, owned by the training loop: it computes Grad and
// the optimizer updates Value in place.
type Param struct {
	// Name is the structured name of the parameter, e.g.: "blocks.3.attn.qkv.weight".
	Name  string
	Shape []int

	Value, Grad []float32

	// LRScale multiplies the learning rate for this parameter. 0 is taken as 1.
	LRScale float64
}

// NewParam creates a Param with the given value and a zero gradient.
// value is used directly, not copied.
func NewParam(name string, shape []int, value []float32) (*Param, error) {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != len(value) {
		return nil, errors.Errorf("parameter %q has shape %v (%d elements) but %d values", name, shape, size, len(value))
	}
	return &Param{Name: name, Shape: shape, Value: value, Grad: make([]float32, len(value)), LRScale: 1}, nil
}

// Rank returns the number of axes of the parameter.
func (p *Param) Rank() int { return len(p.Shape) }

func (p *Param) lrScale() float64 {
	if p.LRScale == 0 {
		return 1
	}
	return p.LRScale
}

// ParamLRFn returns the learning rate ratio of a parameter. It is called by the optimizer
// before each update, and the ratio multiplies the learning rate of that update.
type ParamLRFn func(p *Param) float64

// LayerIndex returns the index i of parameters named "...blocks.<i>....", the layers of a transformer encoder.
func LayerIndex(name string) (int, bool) {
	pos := strings.Index(name, "blocks.")
	if pos == -1 {
		return 0, false
	}
	rest := name[pos+len("blocks."):]
	if end := strings.IndexByte(rest, '.'); end != -1 {
		rest = rest[:end]
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// LayerwiseDecay returns a ParamLRFn that exponentially decays the learning rate of the layers
// from the top down: the parameters of layer i get decayRate^(numLayers-i), the embedding
// parameters (with "embed" in their name) get decayRate^(numLayers+1), and everything
// else (e.g.: the head) gets 1.
func LayerwiseDecay(decayRate float64, numLayers int) ParamLRFn {
	return func(p *Param) float64 {
		if layer, ok := LayerIndex(p.Name); ok {
			return math.Pow(decayRate, float64(numLayers-layer))
		}
		if strings.Contains(p.Name, "embed") {
			return math.Pow(decayRate, float64(numLayers+1))
		}
		return 1
	}
}

// FilterTeacher returns the parameters that are not part of a teacher model (with "teacher" in their names),
// which are not optimized.
func FilterTeacher(params []*Param) []*Param {
	filtered := make([]*Param, 0, len(params))
	for _, p := range params {
		if !strings.Contains(p.Name, "teacher") {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// DecayMask returns whether weight decay applies to each parameter, by name.
// It doesn't apply to parameters of rank 1 (biases and normalization scales), to parameters whose
// name ends with ".bias", and to the parameters in skip.
func DecayMask(params []*Param, skip sets.Set[string]) map[string]bool {
	mask := make(map[string]bool, len(params))
	for _, p := range params {
		mask[p.Name] = !(p.Rank() == 1 || strings.HasSuffix(p.Name, ".bias") || skip.Has(p.Name))
	}
	return mask
}
