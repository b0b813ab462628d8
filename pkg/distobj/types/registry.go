package types

import (
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// The codec registry maps a stable type tag to the value type it
// (de)serializes. Fetch replies carry the tag next to the encoded
// body, so the receiving side can refuse a reply produced by a
// different type than the one it expects.
//
// A type must be registered before a distributed object holding it can
// be constructed, once per process, usually from an init function.
type registry struct {
	mutex  sync.RWMutex
	byTag  map[string]reflect.Type
	byType map[reflect.Type]string
}

var codecs = &registry{
	byTag:  make(map[string]reflect.Type),
	byType: make(map[reflect.Type]string),
}

func typeOf[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

// RegisterType installs the codec for T under the given tag.
// Registering the same pair again is a no-op; reusing a tag for a
// different type, or a second tag for the same type, is an error.
func RegisterType[T any](tag string) error {
	if tag == "" {
		return errors.New("empty type tag")
	}
	rt := typeOf[T]()

	codecs.mutex.Lock()
	defer codecs.mutex.Unlock()

	if existing, ok := codecs.byTag[tag]; ok {
		if existing == rt {
			return nil
		}
		return errors.Errorf("tag %q already registered for %s", tag, existing)
	}
	if existing, ok := codecs.byType[rt]; ok {
		return errors.Errorf("type %s already registered as %q", rt, existing)
	}
	codecs.byTag[tag] = rt
	codecs.byType[rt] = tag
	return nil
}

// MustRegisterType is RegisterType, panicking on error. Meant for
// package init blocks.
func MustRegisterType[T any](tag string) {
	if err := RegisterType[T](tag); err != nil {
		panic(err)
	}
}

// TagOf returns the tag T was registered under.
func TagOf[T any]() (string, error) {
	rt := typeOf[T]()

	codecs.mutex.RLock()
	defer codecs.mutex.RUnlock()

	tag, ok := codecs.byType[rt]
	if !ok {
		return "", errors.Errorf("type %s is not registered", rt)
	}
	return tag, nil
}

// Encode serializes a registered value into a tagged payload.
func Encode[T any](value T) (Payload, error) {
	tag, err := TagOf[T]()
	if err != nil {
		return Payload{}, err
	}
	body, err := cbor.Marshal(value)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "encoding %q", tag)
	}
	return Payload{Tag: tag, Body: body}, nil
}

// Decode deserializes a tagged payload into T, refusing payloads
// produced under a different tag.
func Decode[T any](p Payload) (T, error) {
	var value T
	tag, err := TagOf[T]()
	if err != nil {
		return value, err
	}
	if p.Tag != tag {
		return value, errors.Errorf("payload tagged %q, want %q", p.Tag, tag)
	}
	if err := cbor.Unmarshal(p.Body, &value); err != nil {
		return value, errors.Wrapf(err, "decoding %q", tag)
	}
	return value, nil
}

// Clone produces a value-copy of a registered value by serializer
// roundtrip. Used for local snapshots, so a local fetch observes the
// same value semantics as a remote one.
func Clone[T any](value T) (T, error) {
	p, err := Encode(value)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](p)
}
