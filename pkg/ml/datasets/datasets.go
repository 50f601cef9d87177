// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets reads document examples (image plus word-level and line-level labels) and
// provides wrappers that can be combined for efficient preprocessing: Take, Batch and Parallel.
package datasets

import (
	"fmt"
	"io"
	"sync"

	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/pkg/errors"
)

// Dataset yields examples, one at a time.
type Dataset interface {
	// Name identifies the dataset.
	Name() string

	// Reset restarts the dataset from the beginning. It is called after io.EOF is returned.
	Reset()

	// Yield returns the next example, or io.EOF at the end of the epoch.
	// Examples that can't be used (missing images, empty annotations) are skipped, never returned.
	Yield() (*sample.Example, error)
}

// ErrSkipExample is returned by ReadExample for examples that should be skipped.
var ErrSkipExample = errors.New("example skipped")

// takeDataset implements a Dataset that only yields take examples per epoch.
type takeDataset struct {
	ds   Dataset
	take int

	mu    sync.Mutex
	count int
}

// Take returns a wrapper to ds that only yields n examples per epoch.
// It is safe for concurrent use if ds is, so it can be wrapped by a ParallelDataset.
func Take(ds Dataset, n int) Dataset {
	return &takeDataset{ds: ds, take: n}
}

// Name implements Dataset.
func (ds *takeDataset) Name() string {
	return fmt.Sprintf("%s [Take %d]", ds.ds.Name(), ds.take)
}

// Reset implements Dataset.
func (ds *takeDataset) Reset() {
	ds.ds.Reset()
	ds.mu.Lock()
	ds.count = 0
	ds.mu.Unlock()
}

// Yield implements Dataset.
func (ds *takeDataset) Yield() (*sample.Example, error) {
	ds.mu.Lock()
	if ds.count >= ds.take {
		ds.mu.Unlock()
		return nil, io.EOF
	}
	ds.count++
	ds.mu.Unlock()
	return ds.ds.Yield()
}

// Batch groups the examples of a Dataset.
type Batch struct {
	ds             Dataset
	batchSize      int
	dropIncomplete bool
}

// NewBatch returns a Batch that groups batchSize examples of ds at a time.
// If dropIncomplete is true, the last batch of an epoch is dropped if it has fewer than batchSize examples.
func NewBatch(ds Dataset, batchSize int, dropIncomplete bool) (*Batch, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be > 0, got %d", batchSize)
	}
	return &Batch{ds: ds, batchSize: batchSize, dropIncomplete: dropIncomplete}, nil
}

// Name of the underlying dataset.
func (b *Batch) Name() string {
	return fmt.Sprintf("%s [Batch %d]", b.ds.Name(), b.batchSize)
}

// Reset the underlying dataset.
func (b *Batch) Reset() {
	b.ds.Reset()
}

// YieldBatch returns the next batch of examples, or io.EOF at the end of the epoch.
func (b *Batch) YieldBatch() ([]*sample.Example, error) {
	batch := make([]*sample.Example, 0, b.batchSize)
	for len(batch) < b.batchSize {
		ex, err := b.ds.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, ex)
	}
	if len(batch) == 0 || (b.dropIncomplete && len(batch) < b.batchSize) {
		return nil, io.EOF
	}
	return batch, nil
}
