// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool bounds the number of goroutines used to process files in parallel.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool of workers with a limit on the number of tasks running in parallel.
type Pool struct {
	// maxParallelism: 0 disables parallelism (tasks run inline), negative values mean unlimited.
	maxParallelism int
}

// New returns a new Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return &Pool{maxParallelism: runtime.NumCPU()}
}

// SetMaxParallelism sets the number of tasks allowed to run concurrently.
// If set to 0 tasks are run inline, and if negative it uses runtime.NumCPU().
//
// It should only be changed while no tasks are running.
func (p *Pool) SetMaxParallelism(maxParallelism int) *Pool {
	p.maxParallelism = maxParallelism
	return p
}

// Saturate runs task in as many workers as the pool allows, and waits for all of them to finish.
// Each task is expected to pull its own work (e.g.: from a channel) until there is nothing left.
//
// With parallelism disabled task is run once inline, and with unlimited parallelism it is run
// runtime.NumCPU() times.
func (p *Pool) Saturate(task func()) {
	n := p.maxParallelism
	switch {
	case n == 0:
		task()
		return
	case n < 0:
		n = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			task()
		}()
	}
	wg.Wait()
}
