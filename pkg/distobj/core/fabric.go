package core

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/helper"
	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// FabricConfig configures an in-process fabric.
type FabricConfig struct {
	// How many localities the fabric simulates.
	Localities int

	// Logger shared by the fabric and its localities.
	Logger types.Logger

	// Used to spawn goroutines for invocations.
	Invoker Invoker
}

// Fabric is the in-process substrate: it simulates a fixed set of
// localities inside one process, backing the component table, the
// symbolic name service and the collective barriers. Every locality
// obtained from one fabric shares this state, the way separate
// processes would share the runtime's global address space.
type Fabric struct {
	cfg   FabricConfig
	names *nameTable

	mutex      sync.Mutex
	components map[string]*component
	barriers   map[string]*barrier
	localities []*Locality
	closed     bool
}

type component struct {
	handle types.GlobalHandle
	server types.Server
}

// NewFabric builds a fabric with the given number of localities.
func NewFabric(cfg FabricConfig) (*Fabric, error) {
	if cfg.Localities <= 0 {
		return nil, errors.Wrapf(types.ErrConfig, "fabric needs at least one locality, got %d", cfg.Localities)
	}
	if cfg.Logger == nil {
		return nil, errors.Wrap(types.ErrConfig, "fabric needs a logger")
	}
	if cfg.Invoker == nil {
		cfg.Invoker = InvokerInstance()
	}

	f := &Fabric{
		cfg:        cfg,
		names:      newNameTable(),
		components: make(map[string]*component),
		barriers:   make(map[string]*barrier),
	}
	for i := 0; i < cfg.Localities; i++ {
		f.localities = append(f.localities, &Locality{fabric: f, id: types.LocalityID(i)})
	}
	return f, nil
}

// Locality returns the substrate view of the given locality.
func (f *Fabric) Locality(id types.LocalityID) types.Substrate {
	return f.localities[int(id)]
}

// Size returns how many localities the fabric simulates.
func (f *Fabric) Size() int {
	return len(f.localities)
}

// Close tears the fabric down: pending lookups fail terminally and
// components that hold resources are closed.
func (f *Fabric) Close() error {
	f.mutex.Lock()
	if f.closed {
		f.mutex.Unlock()
		return errors.New("fabric already closed")
	}
	f.closed = true
	remaining := make([]*component, 0, len(f.components))
	for _, c := range f.components {
		remaining = append(remaining, c)
	}
	f.components = make(map[string]*component)
	f.mutex.Unlock()

	f.names.fail(errors.New("fabric closed"))

	var result *multierror.Error
	for _, c := range remaining {
		if closer, ok := c.server.(interface{ Close() error }); ok {
			result = multierror.Append(result, closer.Close())
		}
	}
	return result.ErrorOrNil()
}

func (f *Fabric) create(id types.LocalityID, server types.Server) (types.GlobalHandle, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return types.GlobalHandle{}, errors.Wrap(types.ErrRemoteFault, "fabric closed")
	}
	handle := types.GlobalHandle{UID: helper.GenerateUID(), Owner: id}
	f.components[handle.UID] = &component{handle: handle, server: server}
	return handle, nil
}

func (f *Fabric) find(handle types.GlobalHandle) (*component, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	c, ok := f.components[handle.UID]
	return c, ok
}

func (f *Fabric) destroy(handle types.GlobalHandle) {
	f.mutex.Lock()
	delete(f.components, handle.UID)
	f.mutex.Unlock()
}

func (f *Fabric) barrier(name string, arity int) *barrier {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	b, ok := f.barriers[name]
	if !ok {
		b = newBarrier(name, arity)
		f.barriers[name] = b
	}
	return b
}
