package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int `cbor:"1,keyasint"`
	Y int `cbor:"2,keyasint"`
}

type vector struct {
	Points []point `cbor:"1,keyasint"`
}

func init() {
	MustRegisterType[point]("types/point")
	MustRegisterType[vector]("types/vector")
}

func TestRegistry_Roundtrip(t *testing.T) {
	payload, err := Encode(point{X: 1, Y: 2})
	require.NoError(t, err)
	require.Equal(t, "types/point", payload.Tag)

	decoded, err := Decode[point](payload)
	require.NoError(t, err)
	require.Equal(t, point{X: 1, Y: 2}, decoded)
}

func TestRegistry_RejectsForeignTag(t *testing.T) {
	payload, err := Encode(point{X: 1, Y: 2})
	require.NoError(t, err)

	_, err = Decode[vector](payload)
	require.ErrorContains(t, err, "tagged")
}

func TestRegistry_DuplicateRegistrations(t *testing.T) {
	// Same pair again is fine.
	require.NoError(t, RegisterType[point]("types/point"))

	// Same tag, different type.
	require.Error(t, RegisterType[vector]("types/point"))

	// Same type, different tag.
	require.Error(t, RegisterType[point]("types/point_again"))

	require.Error(t, RegisterType[struct{ Z int }](""))
}

func TestRegistry_UnregisteredType(t *testing.T) {
	type stranger struct{ S string }

	_, err := Encode(stranger{S: "x"})
	require.ErrorContains(t, err, "not registered")
	_, err = TagOf[stranger]()
	require.Error(t, err)
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	original := vector{Points: []point{{X: 1, Y: 2}}}

	cloned, err := Clone(original)
	require.NoError(t, err)
	require.Equal(t, original, cloned)

	cloned.Points[0].X = 99
	require.Equal(t, 1, original.Points[0].X)
}
