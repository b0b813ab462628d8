package distobj

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/core"
	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// Observer watches a MetaObject-constructed distributed object from a
// locality that holds no partition. It registers nothing: it resolves
// the meta registry by name and polls the membership until every
// participant arrived, then fetches like any other client.
type Observer[T any] struct {
	cfg      Config
	sub      types.Substrate
	log      types.Logger
	expected int

	mutex  sync.RWMutex
	synced bool
	peers  types.Membership
}

// NewObserver builds an observer for the named object. The observing
// locality must not be in the participant set.
func NewObserver[T any](sub types.Substrate, cfg Config) (*Observer[T], error) {
	cfg.normalize()
	here := sub.Here()

	if _, err := types.TagOf[T](); err != nil {
		return nil, types.Wrap("observe", cfg.Basename, here, errors.Wrap(types.ErrConfig, err.Error()))
	}
	participants, err := cfg.participants(sub)
	if err != nil {
		return nil, types.Wrap("observe", cfg.Basename, here, err)
	}
	if contains(participants, here) {
		return nil, types.Wrap("observe", cfg.Basename, here,
			errors.Wrapf(types.ErrConfig, "locality %s participates, construct a handle instead", here))
	}

	return &Observer[T]{
		cfg:      cfg,
		sub:      sub,
		log:      cfg.Logger,
		expected: len(participants),
	}, nil
}

// Sync resolves the registry and polls its membership until full.
// Idempotent; later calls return immediately.
func (o *Observer[T]) Sync(ctx context.Context) error {
	o.mutex.RLock()
	synced := o.synced
	o.mutex.RUnlock()
	if synced {
		return nil
	}

	here := o.sub.Here()
	registry, err := o.sub.LookupName(o.cfg.Basename.RegistryName()).Wait(ctx)
	if err != nil {
		return types.Wrap("observe", o.cfg.Basename, here,
			errors.Wrapf(types.ErrLookupFailed, "meta registry: %v", err))
	}

	var members types.Membership
	poll := func() error {
		reply, err := o.sub.Invoke(ctx, registry, types.ActionServerList, types.Payload{}).Wait(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		snapshot, err := core.DecodeMembership(reply)
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(snapshot) < o.expected {
			o.log.Debugf("observer of %q sees %d/%d members", o.cfg.Basename, len(snapshot), o.expected)
			return errors.Errorf("membership incomplete: %d of %d", len(snapshot), o.expected)
		}
		members = snapshot
		return nil
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(poll, policy); err != nil {
		return types.Wrap("observe", o.cfg.Basename, here, err)
	}

	o.mutex.Lock()
	o.peers = members
	o.synced = true
	o.mutex.Unlock()
	return nil
}

// Peers returns the observed membership. Empty until Sync succeeds.
func (o *Observer[T]) Peers() types.Membership {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	snapshot := make(types.Membership, len(o.peers))
	for id, handle := range o.peers {
		snapshot[id] = handle
	}
	return snapshot
}

// Fetch asynchronously reads a value-copy of the partition resident
// on the given locality, syncing the membership first if needed.
func (o *Observer[T]) Fetch(ctx context.Context, target types.LocalityID) types.Future[T] {
	f := core.NewFuture[T]()
	o.cfg.Invoker.Spawn(func() {
		var zero T
		if err := o.Sync(ctx); err != nil {
			f.Complete(zero, err)
			return
		}
		o.mutex.RLock()
		handle, ok := o.peers[target]
		o.mutex.RUnlock()
		if !ok {
			f.Complete(zero, types.Wrap("fetch", o.cfg.Basename, target,
				errors.Wrapf(types.ErrLookupFailed, "locality %s holds no partition", target)))
			return
		}

		fetchTotal.WithLabelValues("remote").Inc()
		reply, err := o.sub.Invoke(ctx, handle, types.ActionFetch, types.Payload{}).Wait(ctx)
		if err != nil {
			f.Complete(zero, types.Wrap("fetch", o.cfg.Basename, target, err))
			return
		}
		value, err := types.Decode[T](reply)
		if err != nil {
			f.Complete(zero, types.Wrap("fetch", o.cfg.Basename, target,
				errors.Wrap(types.ErrRemoteFault, err.Error())))
			return
		}
		f.Complete(value, nil)
	})
	return f
}
