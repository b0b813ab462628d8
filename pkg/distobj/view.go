package distobj

import "reflect"

// View is the reference-typed partition variant: it records a borrow
// of caller-owned storage instead of holding a value. Views are
// local-only by construction. They register no names and serve no
// fetches, so the borrow never crosses a serialization boundary; the
// caller guarantees the storage outlives the view.
type View[T any] struct {
	data *T
}

// NewView wraps caller-owned storage. Mutations of the storage are
// visible through the view and vice versa.
func NewView[T any](data *T) *View[T] {
	return &View[T]{data: data}
}

// Local returns the borrowed storage.
func (v *View[T]) Local() *T {
	return v.data
}

// Size returns the length of the borrowed value when it is a slice,
// array, map or string, zero otherwise.
func (v *View[T]) Size() int {
	rv := reflect.ValueOf(*v.data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}
