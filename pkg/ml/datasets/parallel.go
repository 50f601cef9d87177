// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"io"
	"runtime"
	"sync"

	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/gomlx/structext/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ParallelDataset is a wrapper around a Dataset that parallelizes calls to Yield.
// See details in CustomParallel.
type ParallelDataset struct {
	Dataset Dataset

	// parallelism is the number of goroutines started generating examples.
	parallelism int

	// bufferSize is the size of the channel of pre-generated examples.
	bufferSize int

	impl *parallelImpl
}

// parallelImpl holds the state of one started ParallelDataset.
type parallelImpl struct {
	ds          Dataset
	parallelism int

	mu  sync.Mutex
	err error

	buffer chan *sample.Example

	// epochFinished is closed when all goroutines of the epoch finished. stopEpoch is closed by Reset,
	// and stopDataset by Cancel or on error.
	epochFinished, stopEpoch, stopDataset chan struct{}
	stopped                               bool
	done                                  *xsync.Latch
}

// Parallel parallelizes Yield calls of any thread-safe Dataset, with the default parallelism
// and a buffer of the same size.
//
// To avoid leaking goroutines, call ParallelDataset.Cancel when exiting.
//
// The order of the yields is not preserved.
func Parallel(ds Dataset) *ParallelDataset {
	pd := CustomParallel(ds)
	return pd.Buffer(pd.parallelism).Start()
}

// CustomParallel builds a ParallelDataset that can be used to parallelize any Dataset, as long as
// the underlying ds is thread-safe.
//
// It can be further configured (see Parallelism and Buffer), and then one has to call Start before using it.
//
// Example:
//
//	ds := datasets.CustomParallel(funsdDS).Parallelism(4).Buffer(16).Start()
//	defer ds.Cancel()
func CustomParallel(ds Dataset) *ParallelDataset {
	pd := &ParallelDataset{Dataset: ds}
	pd.Parallelism(0)
	return pd
}

// Parallelism is the number of goroutines to start, each calling ds.Yield() in parallel.
// If set to 0 (the default), it uses the number of cores in the system plus 1.
//
// This must be called before Start. It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) Parallelism(n int) *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset.Parallelism called after Start, ignored.")
		return pd
	}
	if n <= 0 {
		n = runtime.NumCPU() + 1
	}
	pd.parallelism = n
	return pd
}

// Buffer is the number of examples generated in advance.
//
// This must be called before Start. It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) Buffer(n int) *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset.Buffer called after Start, ignored.")
		return pd
	}
	pd.bufferSize = n
	return pd
}

// Start generating examples. After Start the configuration can no longer be changed.
func (pd *ParallelDataset) Start() *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset.Start called more than once, ignored.")
		return pd
	}
	pd.impl = &parallelImpl{
		ds:          pd.Dataset,
		parallelism: pd.parallelism,
		buffer:      make(chan *sample.Example, pd.bufferSize),
		stopDataset: make(chan struct{}),
		done:        xsync.NewLatch(),
	}
	pd.impl.startEpoch()
	return pd
}

func (impl *parallelImpl) startEpoch() {
	impl.epochFinished = make(chan struct{})
	impl.stopEpoch = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(impl.parallelism)
	for range impl.parallelism {
		go func() {
			defer wg.Done()
			impl.generate()
		}()
	}
	go func() {
		wg.Wait()
		impl.mu.Lock()
		defer impl.mu.Unlock()
		if impl.stopped {
			impl.done.Trigger()
			return
		}
		close(impl.epochFinished)
	}()
}

// generate examples until the end of the epoch or until stopped.
func (impl *parallelImpl) generate() {
	for {
		select {
		case <-impl.stopEpoch:
			return
		case <-impl.stopDataset:
			return
		default:
		}
		ex, err := impl.ds.Yield()
		if err == io.EOF {
			return
		}
		if err != nil {
			klog.Errorf("ParallelDataset: %+v", err)
			impl.stop(err)
			return
		}
		select {
		case <-impl.stopEpoch:
			return
		case <-impl.stopDataset:
			return
		case impl.buffer <- ex:
		}
	}
}

// stop the dataset, recording the first error, if any.
func (impl *parallelImpl) stop(err error) {
	impl.mu.Lock()
	defer impl.mu.Unlock()
	if impl.stopped {
		return
	}
	impl.stopped = true
	impl.err = err
	close(impl.stopDataset)
}

// Name implements Dataset.
func (pd *ParallelDataset) Name() string {
	return pd.Dataset.Name()
}

// Cancel stops all goroutines and waits for them to finish.
// The ParallelDataset can't be used afterward.
func (pd *ParallelDataset) Cancel() {
	impl := pd.impl
	if impl == nil {
		return
	}
	impl.stop(nil)
	// If the epoch had already finished there are no goroutines left to wait for.
	select {
	case <-impl.epochFinished:
	case <-impl.done.WaitChan():
	}
}

// Reset implements Dataset: it stops the current epoch, discards the buffered examples, and
// restarts the underlying dataset.
func (pd *ParallelDataset) Reset() {
	impl := pd.impl
	if impl == nil {
		klog.Warningf("ParallelDataset.Reset called before Start")
		return
	}
	close(impl.stopEpoch)
drain:
	for {
		select {
		case <-impl.stopDataset:
			return
		case <-impl.epochFinished:
			break drain
		case <-impl.buffer:
			// Discard.
		}
	}
	// The buffer may still hold examples generated before the last goroutine exited.
	for len(impl.buffer) > 0 {
		<-impl.buffer
	}
	impl.ds.Reset()
	impl.startEpoch()
}

// Yield implements Dataset.
func (pd *ParallelDataset) Yield() (*sample.Example, error) {
	impl := pd.impl
	if impl == nil {
		return nil, errors.New("ParallelDataset.Yield called before Start")
	}
	select {
	case <-impl.stopDataset:
		impl.mu.Lock()
		defer impl.mu.Unlock()
		if impl.err != nil {
			return nil, impl.err
		}
		return nil, errors.New("ParallelDataset.Yield called after Cancel")
	case ex := <-impl.buffer:
		return ex, nil
	case <-impl.epochFinished:
		// No more examples until Reset, but the buffer may still hold some.
		select {
		case ex := <-impl.buffer:
			return ex, nil
		default:
			return nil, io.EOF
		}
	}
}
