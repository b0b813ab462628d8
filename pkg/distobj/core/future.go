package core

import (
	"context"
	"sync"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// Future is the channel-backed implementation of types.Future used by
// the fabric and by the client handle. The first Complete wins, later
// ones are dropped. Abandoning a future is legal: the producer never
// blocks on delivery.
type Future[V any] struct {
	once  sync.Once
	done  chan struct{}
	value V
	err   error
}

var _ types.Future[int] = (*Future[int])(nil)

func NewFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Ready returns an already completed future holding the value.
func Ready[V any](value V) *Future[V] {
	f := NewFuture[V]()
	f.Complete(value, nil)
	return f
}

// Failed returns an already completed future holding the error.
func Failed[V any](err error) *Future[V] {
	f := NewFuture[V]()
	var zero V
	f.Complete(zero, err)
	return f
}

// Complete resolves the future. Safe to call more than once, only the
// first call is observed.
func (f *Future[V]) Complete(value V, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Wait suspends until the future resolves or the context is done.
// Waiting again after resolution returns the same outcome.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
