// Package distobj implements distributed objects: single logical
// objects partitioned across a set of localities. Each locality
// constructs an instance of DistObject[T] holding that locality's
// share of the value. Once constructed, the object has a universal
// name that any locality can use to locate and read the resident
// partitions.
package distobj

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/weilewei/dist-object/pkg/distobj/core"
	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// DistObject is the per-locality client of one distributed object.
// It owns the local partition, registers it on the name service and
// resolves peer partitions on demand.
//
// The handle is safe for concurrent use. It is not copyable: share
// the pointer, and Close it exactly once when done.
type DistObject[T any] struct {
	cfg          Config
	sub          types.Substrate
	log          types.Logger
	participants []types.LocalityID
	root         types.LocalityID

	// The partition created by this handle and its global identity.
	server *core.Partition[T]
	self   types.GlobalHandle

	// Lazily populated local pointer, obtained through the substrate
	// the way a remote-constructed client would. Cleared on Close
	// before the server goes away.
	cacheMutex sync.Mutex
	cache      *core.Partition[T]

	// Resolved peer handles. Entries never go stale: membership is
	// fixed for the object's lifetime.
	peerMutex sync.RWMutex
	peers     map[types.LocalityID]types.GlobalHandle
	flight    singleflight.Group

	// Meta registry bookkeeping, root locality only.
	registry       *core.MetaRegistry
	registryHandle types.GlobalHandle

	closeMutex sync.Mutex
	closed     bool
	names      []string
}

// New constructs this locality's partition of the named distributed
// object with AllToAll construction across every locality.
func New[T any](sub types.Substrate, basename types.Basename, data T) (*DistObject[T], error) {
	return NewWithConfig[T](sub, DefaultConfig(basename), data)
}

// NewWithMode is New with an explicit construction mode.
func NewWithMode[T any](sub types.Substrate, basename types.Basename, data T, mode ConstructionMode) (*DistObject[T], error) {
	cfg := DefaultConfig(basename)
	cfg.Mode = mode
	return NewWithConfig[T](sub, cfg, data)
}

// NewWithLocalities is NewWithMode restricted to a participant set.
func NewWithLocalities[T any](sub types.Substrate, basename types.Basename, data T, mode ConstructionMode, locs []types.LocalityID) (*DistObject[T], error) {
	cfg := DefaultConfig(basename)
	cfg.Mode = mode
	cfg.Localities = locs
	return NewWithConfig[T](sub, cfg, data)
}

// NewWithConfig constructs this locality's partition per the given
// configuration. In MetaObject mode the call blocks until every
// participant registered; in AllToAll mode it returns immediately
// after publishing the local partition.
func NewWithConfig[T any](sub types.Substrate, cfg Config, data T) (*DistObject[T], error) {
	cfg.normalize()
	here := sub.Here()

	if _, err := types.TagOf[T](); err != nil {
		return nil, types.Wrap("construct", cfg.Basename, here, errors.Wrap(types.ErrConfig, err.Error()))
	}

	participants, err := cfg.participants(sub)
	if err != nil {
		return nil, types.Wrap("construct", cfg.Basename, here, err)
	}
	if !contains(participants, here) {
		return nil, types.Wrap("construct", cfg.Basename, here,
			errors.Wrapf(types.ErrConfig, "locality %s is not in the participant set", here))
	}
	root, err := cfg.root(participants)
	if err != nil {
		return nil, types.Wrap("construct", cfg.Basename, here, err)
	}

	server := core.NewPartition(data)
	self, err := sub.CreateLocal(server)
	if err != nil {
		return nil, types.Wrap("construct", cfg.Basename, here, err)
	}

	d := &DistObject[T]{
		cfg:          cfg,
		sub:          sub,
		log:          cfg.Logger,
		participants: participants,
		root:         root,
		server:       server,
		self:         self,
		peers:        map[types.LocalityID]types.GlobalHandle{here: self},
	}

	switch cfg.Mode {
	case AllToAll:
		err = d.constructAllToAll()
	case MetaObject:
		err = d.constructMetaObject()
	default:
		err = errors.Wrapf(types.ErrConfig, "unknown construction mode %d", cfg.Mode)
	}
	if err != nil {
		sub.Destroy(self)
		return nil, types.Wrap("construct", cfg.Basename, here, err)
	}

	constructTotal.WithLabelValues(cfg.Mode.String()).Inc()
	d.log.Debugf("constructed %q on locality %s (%s)", cfg.Basename, here, cfg.Mode)
	return d, nil
}

// constructAllToAll publishes the local partition and returns. Peers
// resolve lazily on first fetch; whether fetching before every peer
// registered is meaningful is the caller's concern, usually settled
// with an external barrier.
func (d *DistObject[T]) constructAllToAll() error {
	name := d.cfg.Basename.PartitionName(d.sub.Here())
	if err := d.sub.RegisterName(name, d.self); err != nil {
		return err
	}
	d.names = append(d.names, name)
	return nil
}

// constructMetaObject rendezvouses at the registry on the root
// locality and blocks until the collective is full. The returned
// membership seeds the peer map, so later fetches resolve without a
// name lookup. The partition name is registered too, keeping
// AllToAll-style lookup available for observers of either scheme.
func (d *DistObject[T]) constructMetaObject() error {
	here := d.sub.Here()
	ctx := context.Background()

	var registryHandle types.GlobalHandle
	if here == d.root {
		registry, err := core.NewMetaRegistry(d.root, len(d.participants))
		if err != nil {
			return err
		}
		registryHandle, err = d.sub.CreateLocal(registry)
		if err != nil {
			return err
		}
		if err := d.sub.RegisterName(d.cfg.Basename.RegistryName(), registryHandle); err != nil {
			d.sub.Destroy(registryHandle)
			return err
		}
		d.registry = registry
		d.registryHandle = registryHandle
		d.names = append(d.names, d.cfg.Basename.RegistryName())
	} else {
		var err error
		registryHandle, err = d.sub.LookupName(d.cfg.Basename.RegistryName()).Wait(ctx)
		if err != nil {
			return errors.Wrapf(types.ErrLookupFailed, "meta registry of %q: %v", d.cfg.Basename, err)
		}
	}

	args, err := core.EncodeRegister(types.RegisterRequest{Source: here, Handle: d.self})
	if err != nil {
		return err
	}
	reply, err := d.sub.Invoke(ctx, registryHandle, types.ActionRegister, args).Wait(ctx)
	if err != nil {
		return err
	}
	members, err := core.DecodeMembership(reply)
	if err != nil {
		return err
	}

	d.peerMutex.Lock()
	for id, handle := range members {
		d.peers[id] = handle
	}
	d.peerMutex.Unlock()

	name := d.cfg.Basename.PartitionName(here)
	if err := d.sub.RegisterName(name, d.self); err != nil {
		return err
	}
	d.names = append(d.names, name)
	return nil
}

// Local returns the partition value for direct access. The borrow is
// not tracked: while holding it the caller must not race against
// concurrent Fetch snapshots, either by external synchronization or
// by using Mutate. Local panics when the handle's server is not
// resident, which for a handle this locality built happens only after
// Close.
func (d *DistObject[T]) Local() *T {
	return d.localServer().Access()
}

// Mutate runs f on the local value under the partition's exclusive
// lock, serializing against concurrent Fetch snapshots.
func (d *DistObject[T]) Mutate(f func(*T)) {
	d.localServer().Mutate(f)
}

// Size returns the length of the local value when it is a slice,
// array, map or string, zero otherwise.
func (d *DistObject[T]) Size() int {
	return d.localServer().Len()
}

func (d *DistObject[T]) localServer() *core.Partition[T] {
	d.cacheMutex.Lock()
	defer d.cacheMutex.Unlock()

	if d.cache == nil {
		srv, err := d.sub.GetLocalPtr(d.self)
		if err != nil {
			panic(types.Wrap("local", d.cfg.Basename, d.sub.Here(), err))
		}
		partition, ok := srv.(*core.Partition[T])
		if !ok {
			panic(types.Wrap("local", d.cfg.Basename, d.sub.Here(),
				errors.Wrapf(types.ErrNotLocal, "component behind %s holds another type", d.self)))
		}
		d.cache = partition
	}
	return d.cache
}

// Fetch asynchronously reads a value-copy of the partition resident
// on the given locality. Fetching the calling locality snapshots the
// local value without a remote invocation. The returned future may be
// abandoned; the underlying invocation still completes and its result
// is dropped.
func (d *DistObject[T]) Fetch(ctx context.Context, target types.LocalityID) types.Future[T] {
	here := d.sub.Here()
	if target == here {
		fetchTotal.WithLabelValues("local").Inc()
		snapshot, err := d.localServer().Snapshot()
		if err != nil {
			return core.Failed[T](types.Wrap("fetch", d.cfg.Basename, target, err))
		}
		return core.Ready(snapshot)
	}

	fetchTotal.WithLabelValues("remote").Inc()
	f := core.NewFuture[T]()
	d.cfg.Invoker.Spawn(func() {
		var zero T
		handle, err := d.resolvePeer(ctx, target)
		if err != nil {
			f.Complete(zero, types.Wrap("fetch", d.cfg.Basename, target, err))
			return
		}
		reply, err := d.sub.Invoke(ctx, handle, types.ActionFetch, types.Payload{}).Wait(ctx)
		if err != nil {
			f.Complete(zero, types.Wrap("fetch", d.cfg.Basename, target, err))
			return
		}
		value, err := types.Decode[T](reply)
		if err != nil {
			f.Complete(zero, types.Wrap("fetch", d.cfg.Basename, target,
				errors.Wrap(types.ErrRemoteFault, err.Error())))
			return
		}
		f.Complete(value, nil)
	})
	return f
}

// resolvePeer returns the target partition's handle, looking it up on
// the name service at most once per locality for the lifetime of the
// handle. Concurrent resolvers for the same locality share one
// lookup.
func (d *DistObject[T]) resolvePeer(ctx context.Context, target types.LocalityID) (types.GlobalHandle, error) {
	d.peerMutex.RLock()
	handle, ok := d.peers[target]
	d.peerMutex.RUnlock()
	if ok {
		return handle, nil
	}

	v, err, _ := d.flight.Do(target.String(), func() (interface{}, error) {
		d.peerMutex.RLock()
		cached, ok := d.peers[target]
		d.peerMutex.RUnlock()
		if ok {
			return cached, nil
		}

		lookupTotal.Inc()
		resolved, err := d.sub.LookupName(d.cfg.Basename.PartitionName(target)).Wait(ctx)
		if err != nil {
			return types.GlobalHandle{}, errors.Wrapf(types.ErrLookupFailed, "peer %s: %v", target, err)
		}

		d.peerMutex.Lock()
		d.peers[target] = resolved
		d.peerMutex.Unlock()
		return resolved, nil
	})
	if err != nil {
		return types.GlobalHandle{}, err
	}
	return v.(types.GlobalHandle), nil
}

// Handle returns the global identity of the local partition.
func (d *DistObject[T]) Handle() types.GlobalHandle {
	return d.self
}

// Basename returns the object's public identity.
func (d *DistObject[T]) Basename() types.Basename {
	return d.cfg.Basename
}

// Participants returns the localities holding partitions, ascending.
func (d *DistObject[T]) Participants() []types.LocalityID {
	out := make([]types.LocalityID, len(d.participants))
	copy(out, d.participants)
	return out
}

// Close releases the local partition: name bindings are removed, the
// local cache is cleared before the server, and the component is
// destroyed. Fetch futures already in flight keep the handle copies
// they captured. Closing twice is an error.
func (d *DistObject[T]) Close() error {
	d.closeMutex.Lock()
	defer d.closeMutex.Unlock()

	if d.closed {
		return types.Wrap("close", d.cfg.Basename, d.sub.Here(), errors.New("handle already closed"))
	}
	d.closed = true

	d.cacheMutex.Lock()
	d.cache = nil
	d.cacheMutex.Unlock()

	var result *multierror.Error
	for _, name := range d.names {
		d.sub.UnregisterName(name)
	}
	result = multierror.Append(result, d.server.Close())
	d.sub.Destroy(d.self)
	if d.registry != nil {
		d.sub.Destroy(d.registryHandle)
	}
	return result.ErrorOrNil()
}
