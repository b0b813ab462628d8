package core

import (
	"context"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

const (
	tagRegister   = "meta/register"
	tagMembership = "meta/membership"
)

// MetaRegistry is the rendezvous component of the MetaObject
// construction mode. One instance serves one distributed-object
// construction, resident on the root locality. It collects member
// handles and releases the registering callers only once every
// expected participant arrived.
type MetaRegistry struct {
	expected int
	root     types.LocalityID

	mutex   sync.Mutex
	members types.Membership
	ready   chan struct{}
}

var _ types.Server = (*MetaRegistry)(nil)

func NewMetaRegistry(root types.LocalityID, expected int) (*MetaRegistry, error) {
	if expected <= 0 {
		return nil, errors.Wrapf(types.ErrConfig, "meta registry expects %d members", expected)
	}
	return &MetaRegistry{
		expected: expected,
		root:     root,
		members:  make(types.Membership, expected),
		ready:    make(chan struct{}),
	}, nil
}

func (m *MetaRegistry) Dispatch(ctx context.Context, action string, args types.Payload) (types.Payload, error) {
	switch action {
	case types.ActionRegister:
		if args.Tag != tagRegister {
			return types.Payload{}, errors.Errorf("register payload tagged %q", args.Tag)
		}
		var req types.RegisterRequest
		if err := cbor.Unmarshal(args.Body, &req); err != nil {
			return types.Payload{}, errors.Wrap(err, "decoding register request")
		}
		members, err := m.register(ctx, req)
		if err != nil {
			return types.Payload{}, err
		}
		return EncodeMembership(members)
	case types.ActionServerList:
		return EncodeMembership(m.ServerList())
	default:
		return types.Payload{}, errors.Errorf("unknown action %q", action)
	}
}

// register inserts the member and blocks until the collective is
// full. The mutex publishes the insert, the ready channel provides
// the happens-before to every released caller: no caller observes the
// release without observing all expected entries.
func (m *MetaRegistry) register(ctx context.Context, req types.RegisterRequest) (types.Membership, error) {
	m.mutex.Lock()
	if _, ok := m.members[req.Source]; !ok {
		m.members[req.Source] = req.Handle
		if len(m.members) == m.expected {
			close(m.ready)
		}
	}
	m.mutex.Unlock()

	select {
	case <-m.ready:
		return m.ServerList(), nil
	case <-ctx.Done():
		return nil, errors.Wrapf(types.ErrCollectiveTimeout, "registering locality %s: %v", req.Source, ctx.Err())
	}
}

// ServerList returns a snapshot of the current membership, possibly
// partial. Observers poll it until full.
func (m *MetaRegistry) ServerList() types.Membership {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	snapshot := make(types.Membership, len(m.members))
	for id, handle := range m.members {
		snapshot[id] = handle
	}
	return snapshot
}

// Root yields the locality hosting this registry.
func (m *MetaRegistry) Root() types.LocalityID {
	return m.root
}

// EncodeRegister builds the ActionRegister argument payload.
func EncodeRegister(req types.RegisterRequest) (types.Payload, error) {
	body, err := cbor.Marshal(req)
	if err != nil {
		return types.Payload{}, errors.Wrap(err, "encoding register request")
	}
	return types.Payload{Tag: tagRegister, Body: body}, nil
}

// EncodeMembership builds a membership reply payload.
func EncodeMembership(members types.Membership) (types.Payload, error) {
	body, err := cbor.Marshal(members)
	if err != nil {
		return types.Payload{}, errors.Wrap(err, "encoding membership")
	}
	return types.Payload{Tag: tagMembership, Body: body}, nil
}

// DecodeMembership parses a membership reply payload.
func DecodeMembership(p types.Payload) (types.Membership, error) {
	if p.Tag != tagMembership {
		return nil, errors.Errorf("membership payload tagged %q", p.Tag)
	}
	var members types.Membership
	if err := cbor.Unmarshal(p.Body, &members); err != nil {
		return nil, errors.Wrap(err, "decoding membership")
	}
	return members, nil
}
