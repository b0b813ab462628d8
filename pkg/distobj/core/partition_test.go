package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

func TestPartition_SnapshotIsAValueCopy(t *testing.T) {
	partition := NewPartition([]string{"a", "b"})

	snapshot, err := partition.Snapshot()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, snapshot)

	partition.Mutate(func(data *[]string) {
		(*data)[0] = "mutated"
	})
	require.Equal(t, "a", snapshot[0])
}

func TestPartition_FetchDispatch(t *testing.T) {
	partition := NewPartition("hello")

	reply, err := partition.Dispatch(context.Background(), types.ActionFetch, types.Payload{})
	require.NoError(t, err)

	value, err := types.Decode[string](reply)
	require.NoError(t, err)
	require.Equal(t, "hello", value)
}

func TestPartition_UnknownAction(t *testing.T) {
	partition := NewPartition("hello")

	_, err := partition.Dispatch(context.Background(), "drop", types.Payload{})
	require.Error(t, err)
}

func TestPartition_Len(t *testing.T) {
	require.Equal(t, 3, NewPartition([]string{"a", "b", "c"}).Len())
	require.Equal(t, 5, NewPartition("hello").Len())
	require.Equal(t, 0, NewPartition(42).Len())
}

func TestPartition_AccessSeesMutations(t *testing.T) {
	partition := NewPartition([]string{"a"})

	*partition.Access() = append(*partition.Access(), "b")
	snapshot, err := partition.Snapshot()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, snapshot)
}

func TestPartition_CloseStopsFetches(t *testing.T) {
	partition := NewPartition("hello")
	require.NoError(t, partition.Close())

	_, err := partition.Dispatch(context.Background(), types.ActionFetch, types.Payload{})
	require.Error(t, err)
	require.Error(t, partition.Close())
}
