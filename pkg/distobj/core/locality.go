package core

import (
	"context"

	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// Locality is one simulated process of the fabric. It implements the
// substrate boundary the client handle is constructed against.
type Locality struct {
	fabric *Fabric
	id     types.LocalityID
}

var _ types.Substrate = (*Locality)(nil)

func (l *Locality) Here() types.LocalityID {
	return l.id
}

func (l *Locality) AllLocalities() []types.LocalityID {
	all := make([]types.LocalityID, 0, l.fabric.Size())
	for i := 0; i < l.fabric.Size(); i++ {
		all = append(all, types.LocalityID(i))
	}
	return all
}

func (l *Locality) CreateLocal(server types.Server) (types.GlobalHandle, error) {
	return l.fabric.create(l.id, server)
}

// Invoke dispatches the action on the target component. The dispatch
// runs on a spawned goroutine even for local targets, so the caller
// always observes future semantics.
func (l *Locality) Invoke(ctx context.Context, target types.GlobalHandle, action string, args types.Payload) types.Future[types.Payload] {
	comp, ok := l.fabric.find(target)
	if !ok {
		return Failed[types.Payload](errors.Wrapf(types.ErrRemoteFault, "no component behind %s", target))
	}

	f := NewFuture[types.Payload]()
	l.fabric.cfg.Invoker.Spawn(func() {
		res, err := comp.server.Dispatch(ctx, action, args)
		if err != nil {
			l.fabric.cfg.Logger.Debugf("action %s on %s failed. %v", action, target, err)
			f.Complete(types.Payload{}, errors.Wrapf(types.ErrRemoteFault, "action %s on %s: %v", action, target, err))
			return
		}
		f.Complete(res, nil)
	})
	return f
}

func (l *Locality) GetLocalPtr(handle types.GlobalHandle) (types.Server, error) {
	comp, ok := l.fabric.find(handle)
	if !ok {
		return nil, errors.Wrapf(types.ErrRemoteFault, "no component behind %s", handle)
	}
	if comp.handle.Owner != l.id {
		return nil, errors.Wrapf(types.ErrNotLocal, "%s owned by locality %s", handle, comp.handle.Owner)
	}
	return comp.server, nil
}

func (l *Locality) RegisterName(name string, handle types.GlobalHandle) error {
	return l.fabric.names.register(name, handle)
}

func (l *Locality) UnregisterName(name string) {
	l.fabric.names.unregister(name)
}

func (l *Locality) LookupName(name string) types.Future[types.GlobalHandle] {
	return l.fabric.names.lookup(name)
}

func (l *Locality) Barrier(name string, arity int) types.Barrier {
	return l.fabric.barrier(name, arity)
}

func (l *Locality) Destroy(handle types.GlobalHandle) {
	l.fabric.destroy(handle)
}
