// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package devclient

import (
	"sync"
)

// Future is a single-completion readiness signal, the asynchronous completion
// contract between a device client and the runner: the client resolves it exactly
// once, with nil on success or with its failure diagnostic.
//
// Await blocks the calling goroutine on a channel until resolution -- there is no
// polling. There is also no deadline: a caller needing bounded latency must wrap
// the call externally.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns an unresolved Future. The producer side resolves it with Set.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// ResolvedFuture returns a Future already resolved with err (nil for success).
func ResolvedFuture(err error) *Future {
	f := NewFuture()
	f.Set(err)
	return f
}

// Set resolves the future with err (nil for success). Only the first call has any
// effect; later calls are ignored.
func (f *Future) Set(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Await blocks until the future is resolved and returns its result.
// It can be called from multiple goroutines and repeatedly; it always returns the
// same result after resolution.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// Done returns a channel closed when the future resolves, for callers that want to
// select on it rather than block.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
