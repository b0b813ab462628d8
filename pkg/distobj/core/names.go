package core

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// nameTable is the fabric's symbolic name service. Registration is
// first-writer-wins, lookups issued before registration stay pending
// on a future that the registration completes.
type nameTable struct {
	mutex   sync.Mutex
	bound   map[string]types.GlobalHandle
	waiters map[string][]*Future[types.GlobalHandle]
}

func newNameTable() *nameTable {
	return &nameTable{
		bound:   make(map[string]types.GlobalHandle),
		waiters: make(map[string][]*Future[types.GlobalHandle]),
	}
}

func (n *nameTable) register(name string, handle types.GlobalHandle) error {
	n.mutex.Lock()
	if _, ok := n.bound[name]; ok {
		n.mutex.Unlock()
		return errors.Wrapf(types.ErrNameConflict, "name %q", name)
	}
	n.bound[name] = handle
	pending := n.waiters[name]
	delete(n.waiters, name)
	n.mutex.Unlock()

	for _, w := range pending {
		w.Complete(handle, nil)
	}
	return nil
}

func (n *nameTable) unregister(name string) {
	n.mutex.Lock()
	delete(n.bound, name)
	n.mutex.Unlock()
}

func (n *nameTable) lookup(name string) *Future[types.GlobalHandle] {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if handle, ok := n.bound[name]; ok {
		return Ready(handle)
	}
	f := NewFuture[types.GlobalHandle]()
	n.waiters[name] = append(n.waiters[name], f)
	return f
}

// fail resolves every pending waiter with a terminal lookup error.
// Called on fabric teardown.
func (n *nameTable) fail(cause error) {
	n.mutex.Lock()
	pending := n.waiters
	n.waiters = make(map[string][]*Future[types.GlobalHandle])
	n.mutex.Unlock()

	for name, waiters := range pending {
		for _, w := range waiters {
			w.Complete(types.GlobalHandle{}, errors.Wrapf(types.ErrLookupFailed, "name %q: %v", name, cause))
		}
	}
}
