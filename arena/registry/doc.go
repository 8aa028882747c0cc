// Package registry implements reference-counted slab arenas for kernel
// objects.
//
// # Overview
//
// A Registry owns one address-space segment and carves it into fixed-size
// slots, one item of type T per slot. Slots are handed out as Handle values
// that carry a reference count; when the last Handle is dropped the item is
// destroyed and the slot goes on a free list, where the next Insert finds it
// before any new memory is mapped.
//
// Backing memory grows one page at a time. Each page is a frame taken from a
// shared page-frame allocator and mapped into the segment. A registry never
// unmaps memory; freed slots are recycled.
//
// # Slot Layout
//
// Every slot starts with a 16-byte header inside the segment:
//
//	0x00  reference count (uint64, atomic)
//	0x08  next free slot id, valid only while the count is zero
//
// The item itself is kept beside the segment in a chunk table indexed by slot
// id, wrapped in its own spinlock.Lock. Items may hold Go pointers, which must
// not live in memory the garbage collector cannot see.
//
// # Handles
//
// A Handle is the only sanctioned reference to a managed object. Copying a
// Handle value does not take a reference; use Clone. Every Handle obtained
// from Insert, Get, or Clone must be dropped exactly once.
//
//	h, err := reg.Insert(Thread{Name: "idle"})
//	if err != nil {
//	    return err
//	}
//	defer h.Drop()
//
//	h.With(func(t *Thread) { t.State = Running })
//
// Slot ids are recycled. An id observed once may later name an unrelated
// item, so ids must never be used for identity or access decisions.
//
// # Destruction
//
// Item types that own handles implement Dropper. The registry calls Drop on
// the item when its count reaches zero, before the slot is recycled, so
// releasing nested handles never happens under the registry's own lock.
//
// # Lists
//
// ListRegistry layers a doubly-linked list over two registries: one for list
// heads and one for link nodes. Nodes wrap a Handle into a caller-owned
// registry. Insertion and removal are O(1) and never move other nodes.
//
// # Invariant Violations
//
// Cloning a freed slot, dropping more references than were taken, and
// dropping the same Handle variable twice are programming errors. They panic.
package registry
