package types

import (
	"fmt"
	"strconv"
)

// A LocalityID identifies a single participating process. Ids are
// zero-based and dense for the lifetime of a distributed object.
type LocalityID int

func (l LocalityID) String() string {
	return strconv.Itoa(int(l))
}

// Basename is the caller-chosen public identity of a distributed object.
// Partition names derive from it, one per locality.
type Basename string

// PartitionName is the symbolic key under which the partition owned by
// the given locality is registered on the name service.
func (b Basename) PartitionName(id LocalityID) string {
	return fmt.Sprintf("%s/%s", b, id)
}

// RegistryName is the symbolic key of the meta registry rendezvous.
// Only used by the MetaObject construction mode.
func (b Basename) RegistryName() string {
	return string(b)
}

// GlobalHandle is an opaque, copyable reference to a remote-addressable
// server, produced by the substrate. The zero value is the empty handle.
type GlobalHandle struct {
	UID   string     `cbor:"1,keyasint"`
	Owner LocalityID `cbor:"2,keyasint"`
}

func (h GlobalHandle) IsEmpty() bool {
	return h.UID == ""
}

func (h GlobalHandle) Equal(other GlobalHandle) bool {
	return h.UID == other.UID
}

func (h GlobalHandle) String() string {
	if h.IsEmpty() {
		return "handle{empty}"
	}
	return fmt.Sprintf("handle{%s@%s}", h.UID, h.Owner)
}

// Payload is a tagged encoded value crossing the invocation boundary.
// The tag names the registered codec that produced Body.
type Payload struct {
	Tag  string `cbor:"1,keyasint"`
	Body []byte `cbor:"2,keyasint"`
}

// Actions understood by the core servers.
const (
	// ActionFetch returns a snapshot of the partition value.
	ActionFetch = "fetch"

	// ActionRegister joins the meta registry rendezvous, blocking
	// until every expected participant arrived.
	ActionRegister = "register"

	// ActionServerList returns the current membership snapshot
	// without registering. Observers poll it.
	ActionServerList = "server_list"
)

// Membership is the peer map exchanged by the meta registry.
type Membership map[LocalityID]GlobalHandle

// RegisterRequest is the argument of ActionRegister.
type RegisterRequest struct {
	Source LocalityID   `cbor:"1,keyasint"`
	Handle GlobalHandle `cbor:"2,keyasint"`
}
