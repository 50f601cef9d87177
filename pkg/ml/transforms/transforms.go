// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package transforms implements the configurable pipeline of transformations applied to
// each example after it is read: resizing, conversion to tensor, normalization and augmentation.
//
// Transformations are created from their configuration (config.TransformSpec) by name, using
// the registered factories. The built-in ones are "resize", "to_tensor", "normalize",
// "random_erasing" and "to_chw".
package transforms

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/pkg/errors"
)

// Transform modifies an example in place.
type Transform interface {
	// Name of the transformation, as registered.
	Name() string

	// Apply the transformation to ex. rng must be used for all random choices, and
	// it is not shared with other goroutines.
	Apply(ex *sample.Example, rng *rand.Rand) error
}

// Factory creates a Transform from its configuration.
type Factory func(spec config.TransformSpec) (Transform, error)

var (
	muRegistry sync.Mutex
	registry   = make(map[string]Factory)
)

// Register a Factory for the given transformation name. It replaces any previous registration.
func Register(name string, factory Factory) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	registry[name] = factory
}

// Registered returns the sorted names of the registered transformations.
func Registered() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline applies a list of transformations in order. It is itself a Transform.
type Pipeline struct {
	Transforms []Transform
}

// Build creates the Pipeline for the given configuration.
func Build(specs []config.TransformSpec) (*Pipeline, error) {
	p := &Pipeline{}
	for i, spec := range specs {
		muRegistry.Lock()
		factory, found := registry[spec.Name]
		muRegistry.Unlock()
		if !found {
			return nil, errors.Errorf("unknown transformation #%d %q, registered transformations are %q", i, spec.Name, Registered())
		}
		t, err := factory(spec)
		if err != nil {
			return nil, errors.WithMessagef(err, "transformation #%d %q", i, spec.Name)
		}
		p.Transforms = append(p.Transforms, t)
	}
	return p, nil
}

// Name implements Transform.
func (p *Pipeline) Name() string { return "pipeline" }

// Apply implements Transform, applying each transformation in order.
func (p *Pipeline) Apply(ex *sample.Example, rng *rand.Rand) error {
	for _, t := range p.Transforms {
		if err := t.Apply(ex, rng); err != nil {
			return errors.WithMessagef(err, "transformation %q on example %q", t.Name(), ex.Name)
		}
	}
	return nil
}
