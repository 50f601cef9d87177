// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xsync implements some extra synchronization tools.
package xsync

import "sync"

// Latch starts untriggered and, once triggered, stays triggered.
// Any number of goroutines can wait on it.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch returns an un-triggered latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Trigger latch. Triggering an already triggered latch is a no-op.
func (l *Latch) Trigger() {
	l.once.Do(func() { close(l.ch) })
}

// WaitChan returns a channel closed when the latch is triggered, for use in a `select`.
func (l *Latch) WaitChan() <-chan struct{} { return l.ch }
