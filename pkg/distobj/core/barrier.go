package core

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// barrier is a named collective of fixed arity. Arrivals block until
// the arity-th participant arrives, then every waiter is released by
// closing the channel.
type barrier struct {
	name    string
	arity   int
	mutex   sync.Mutex
	arrived int
	release chan struct{}
}

var _ types.Barrier = (*barrier)(nil)

func newBarrier(name string, arity int) *barrier {
	return &barrier{
		name:    name,
		arity:   arity,
		release: make(chan struct{}),
	}
}

func (b *barrier) Wait(ctx context.Context) error {
	b.mutex.Lock()
	b.arrived++
	if b.arrived == b.arity {
		close(b.release)
	}
	b.mutex.Unlock()

	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(types.ErrCollectiveTimeout, "barrier %q: %v", b.name, ctx.Err())
	}
}
