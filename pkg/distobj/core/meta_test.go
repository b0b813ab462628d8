package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

func registerPayload(t *testing.T, id types.LocalityID) types.Payload {
	t.Helper()
	args, err := EncodeRegister(types.RegisterRequest{
		Source: id,
		Handle: types.GlobalHandle{UID: "uid-" + id.String(), Owner: id},
	})
	require.NoError(t, err)
	return args
}

// No register call returns before every expected member arrived, and
// every returned map is complete.
func TestMetaRegistry_CollectsBeforeReleasing(t *testing.T) {
	const n = 4
	registry, err := NewMetaRegistry(0, n)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var arrived int32
	var group errgroup.Group
	for i := 0; i < n; i++ {
		id := types.LocalityID(i)
		args := registerPayload(t, id)
		group.Go(func() error {
			atomic.AddInt32(&arrived, 1)
			reply, err := registry.Dispatch(ctx, types.ActionRegister, args)
			if err != nil {
				return err
			}
			if got := atomic.LoadInt32(&arrived); got != n {
				t.Errorf("register returned with %d of %d arrived", got, n)
			}
			members, err := DecodeMembership(reply)
			if err != nil {
				return err
			}
			if len(members) != n {
				t.Errorf("register returned %d members", len(members))
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
}

func TestMetaRegistry_ServerListIsPartialSnapshot(t *testing.T) {
	registry, err := NewMetaRegistry(0, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Empty(t, registry.ServerList())

	args := registerPayload(t, 0)
	done := make(chan error, 1)
	go func() {
		// Blocks until cancelled: the second member never shows up.
		_, err := registry.Dispatch(ctx, types.ActionRegister, args)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(registry.ServerList()) == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, types.ErrCollectiveTimeout)
}

// A straggler registering after release still gets the full map and
// does not grow the membership.
func TestMetaRegistry_RegisterAfterRelease(t *testing.T) {
	registry, err := NewMetaRegistry(0, 1)
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := registry.Dispatch(ctx, types.ActionRegister, registerPayload(t, 0))
	require.NoError(t, err)
	members, err := DecodeMembership(reply)
	require.NoError(t, err)
	require.Len(t, members, 1)

	reply, err = registry.Dispatch(ctx, types.ActionRegister, registerPayload(t, 0))
	require.NoError(t, err)
	members, err = DecodeMembership(reply)
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestMetaRegistry_RejectsBadConfig(t *testing.T) {
	_, err := NewMetaRegistry(0, 0)
	require.ErrorIs(t, err, types.ErrConfig)
}

func TestMetaRegistry_UnknownAction(t *testing.T) {
	registry, err := NewMetaRegistry(0, 1)
	require.NoError(t, err)

	_, err = registry.Dispatch(context.Background(), "mutate", types.Payload{})
	require.Error(t, err)
}
