package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/slabkit/arena/spinlock"
)

// Handle is a counted reference to one item in one Registry.
//
// The zero Handle refers to nothing. Handles compare equal with == exactly
// when they name the same slot of the same registry.
type Handle[T any] struct {
	id  uint64
	reg *Registry[T]
}

// Valid reports whether h refers to an item.
func (h Handle[T]) Valid() bool { return h.reg != nil }

// ID returns the slot id. Ids are recycled once every handle to a slot is
// dropped, so the id is not a stable identity.
func (h Handle[T]) ID() uint64 { return h.id }

// Registry returns the registry h belongs to.
func (h Handle[T]) Registry() *Registry[T] { return h.reg }

// Equal reports whether h and other name the same slot of the same registry.
func (h Handle[T]) Equal(other Handle[T]) bool { return h == other }

// Lock acquires the item's own lock. The registry lock is not involved.
func (h Handle[T]) Lock() spinlock.Guard[T] {
	return h.reg.cells.at(h.id).Lock(h.reg.ic)
}

// With runs fn with the item locked.
func (h Handle[T]) With(fn func(*T)) {
	h.reg.cells.at(h.id).With(h.reg.ic, fn)
}

// Clone takes another reference to the item. Cloning the zero Handle
// returns the zero Handle. Cloning a handle whose slot was already freed
// panics.
func (h Handle[T]) Clone() Handle[T] {
	if h.reg != nil {
		h.reg.lease(h.id)
	}
	return h
}

// Drop releases the reference held by h and zeroes h. The last reference
// destroys the item and recycles its slot. Dropping the zero Handle panics,
// which catches a second Drop through the same variable.
func (h *Handle[T]) Drop() {
	if h.reg == nil {
		panic("registry: drop of empty handle")
	}
	reg, id := h.reg, h.id
	*h = Handle[T]{}
	reg.forget(id)
}

// RefCount returns the current reference count. Diagnostic only; the value
// may be stale as soon as it is read.
func (h Handle[T]) RefCount() uint64 {
	if h.reg == nil {
		return 0
	}
	return atomic.LoadUint64(h.reg.refCount(h.id))
}

func (h Handle[T]) String() string {
	if h.reg == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d", h.reg.name, h.id)
}

// Release drops h if it refers to anything. Use it for optional handles
// held in struct fields.
func (h *Handle[T]) Release() {
	if h.reg != nil {
		h.Drop()
	}
}
