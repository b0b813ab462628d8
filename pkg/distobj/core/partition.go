package core

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// Partition maintains the local share of one distributed object and
// responds to non-local requests for its data. Reads take the shared
// lock, mutations through Mutate take the exclusive lock. Access
// hands out the raw value, the caller is responsible for exclusion
// while holding it.
type Partition[T any] struct {
	mutex  sync.RWMutex
	data   T
	closed bool
}

var _ types.Server = (*Partition[int])(nil)

func NewPartition[T any](data T) *Partition[T] {
	return &Partition[T]{data: data}
}

// Dispatch implements the server boundary. Fetch is the only action a
// partition serves.
func (p *Partition[T]) Dispatch(ctx context.Context, action string, args types.Payload) (types.Payload, error) {
	switch action {
	case types.ActionFetch:
		p.mutex.RLock()
		defer p.mutex.RUnlock()
		if p.closed {
			return types.Payload{}, errors.New("partition destroyed")
		}
		return types.Encode(p.data)
	default:
		return types.Payload{}, errors.Errorf("unknown action %q", action)
	}
}

// Access returns the held value for direct local use. The borrow is
// not tracked: the caller must not race it against Fetch or Mutate.
func (p *Partition[T]) Access() *T {
	return &p.data
}

// Snapshot returns a value-copy of the held data, consistent with a
// linearization point inside the shared lock.
func (p *Partition[T]) Snapshot() (T, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return types.Clone(p.data)
}

// Mutate runs f on the held value under the exclusive lock.
func (p *Partition[T]) Mutate(f func(*T)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	f(&p.data)
}

// Len returns the length of the held value when it is a slice, array,
// map or string, zero otherwise.
func (p *Partition[T]) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	v := reflect.ValueOf(p.data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return v.Len()
	default:
		return 0
	}
}

// Close marks the partition destroyed. Fetches arriving afterwards
// fail at the dispatch boundary.
func (p *Partition[T]) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return errors.New("partition already closed")
	}
	p.closed = true
	return nil
}
