package registry

import (
	"fmt"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/arena/segment"
	"github.com/joshuapare/slabkit/arena/spinlock"
)

// List is the head of a doubly-linked list of Items. Its fields are only
// meaningful at quiescence; concurrent appends and deletes keep the links
// sound but not the count.
type List[T any] struct {
	first, last Handle[Item[T]]
	count       int
}

// Drop releases the list's references to its end nodes.
func (l *List[T]) Drop() {
	l.first.Release()
	l.last.Release()
	l.count = 0
}

// Item is a list node. It owns the handle it wraps and, while linked, a
// reference to its list and to each neighbor. A node with no list is
// detached.
type Item[T any] struct {
	list       Handle[List[T]]
	prev, next Handle[Item[T]]
	handle     Handle[T]
}

// Drop releases everything the node refers to, including the wrapped handle.
func (it *Item[T]) Drop() {
	it.list.Release()
	it.prev.Release()
	it.next.Release()
	it.handle.Release()
}

// ListRegistry allocates list heads and link nodes for lists whose members
// are handles into another registry of T, owned by the caller.
//
// Locks are taken list first, then one node at a time. Nothing here takes a
// list lock while holding a node lock.
type ListRegistry[T any] struct {
	lists *Registry[List[T]]
	nodes *Registry[Item[T]]
}

// NewListRegistry claims one segment for list heads and one for nodes. Both
// registries share frames and opts; their names get ".lists" and ".items"
// suffixes.
//
// On error lists may already be provisioned and hold a table frame. Neither
// segment can be reused; the caller releases both, as kernel.Boot does with
// its layout.
func NewListRegistry[T any](lists, nodes segment.Segment, frames *spinlock.Lock[pfa.Allocator], opts ...Option) (*ListRegistry[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	name := o.name
	if name == "" {
		name = "list"
	}

	heads, err := New[List[T]](lists, frames, append(opts[:len(opts):len(opts)], WithName(name+".lists"))...)
	if err != nil {
		return nil, err
	}
	links, err := New[Item[T]](nodes, frames, append(opts[:len(opts):len(opts)], WithName(name+".items"))...)
	if err != nil {
		return nil, err
	}
	return &ListRegistry[T]{lists: heads, nodes: links}, nil
}

// Lists returns the registry holding list heads.
func (lr *ListRegistry[T]) Lists() *Registry[List[T]] { return lr.lists }

// Nodes returns the registry holding link nodes.
func (lr *ListRegistry[T]) NodeRegistry() *Registry[Item[T]] { return lr.nodes }

// CreateList allocates an empty list.
func (lr *ListRegistry[T]) CreateList() (Handle[List[T]], error) {
	return lr.lists.Insert(List[T]{})
}

// Append links item after the tail of list and returns a handle to the new
// node. The node takes ownership of item. On error item is still owned by
// the caller.
func (lr *ListRegistry[T]) Append(list Handle[List[T]], item Handle[T]) (Handle[Item[T]], error) {
	node, err := lr.nodes.Insert(Item[T]{handle: item})
	if err != nil {
		return Handle[Item[T]]{}, err
	}

	var stale Handle[Item[T]]

	lg := list.Lock()
	l := lg.Value()

	ng := node.Lock()
	ng.Value().list = list.Clone()
	ng.Value().prev = l.last.Clone()
	ng.Unlock()

	if l.last.Valid() {
		tg := l.last.Lock()
		tg.Value().next = node.Clone()
		tg.Unlock()
		stale = l.last
	} else {
		l.first = node.Clone()
	}
	l.last = node.Clone()
	l.count++
	lg.Unlock()

	stale.Release()
	return node, nil
}

// InsertAfter links item directly after node, in node's list. The new node
// takes ownership of item. It fails with ErrDetached if node is not in a
// list; on error item is still owned by the caller.
func (lr *ListRegistry[T]) InsertAfter(node Handle[Item[T]], item Handle[T]) (Handle[Item[T]], error) {
	list := lr.ListOf(node)
	if !list.Valid() {
		return Handle[Item[T]]{}, ErrDetached
	}
	defer list.Drop()

	added, err := lr.nodes.Insert(Item[T]{handle: item})
	if err != nil {
		return Handle[Item[T]]{}, err
	}

	lg := list.Lock()
	l := lg.Value()

	ng := node.Lock()
	if ng.Value().list != list {
		ng.Unlock()
		lg.Unlock()
		// Hand item back before the node is destroyed.
		added.With(func(it *Item[T]) { it.handle = Handle[T]{} })
		added.Drop()
		return Handle[Item[T]]{}, ErrDetached
	}
	next := ng.Value().next // ownership moves to added.next
	ng.Value().next = added.Clone()
	ng.Unlock()

	ag := added.Lock()
	ag.Value().list = list.Clone()
	ag.Value().prev = node.Clone()
	ag.Value().next = next
	ag.Unlock()

	var stale Handle[Item[T]]
	if next.Valid() {
		xg := next.Lock()
		stale = xg.Value().prev
		xg.Value().prev = added.Clone()
		xg.Unlock()
	} else {
		stale = l.last
		l.last = added.Clone()
	}
	l.count++
	lg.Unlock()

	stale.Release()
	return added, nil
}

// Delete unlinks node from its list and reports whether it was linked. The
// node and the handle it wraps stay alive for as long as the caller holds
// node.
func (lr *ListRegistry[T]) Delete(node Handle[Item[T]]) bool {
	list := lr.ListOf(node)
	if !list.Valid() {
		return false
	}
	defer list.Drop()

	lg := list.Lock()
	l := lg.Value()

	ng := node.Lock()
	n := ng.Value()
	if n.list != list {
		ng.Unlock()
		lg.Unlock()
		return false
	}
	owner, prev, next := n.list, n.prev, n.next
	n.list, n.prev, n.next = Handle[List[T]]{}, Handle[Item[T]]{}, Handle[Item[T]]{}
	ng.Unlock()

	// References to node held by its neighbors or by the list head.
	var back, fwd Handle[Item[T]]
	if prev.Valid() {
		pg := prev.Lock()
		fwd = pg.Value().next
		pg.Value().next = next.Clone()
		pg.Unlock()
	} else {
		fwd = l.first
		l.first = next.Clone()
	}
	if next.Valid() {
		xg := next.Lock()
		back = xg.Value().prev
		xg.Value().prev = prev.Clone()
		xg.Unlock()
	} else {
		back = l.last
		l.last = prev.Clone()
	}
	l.count--
	lg.Unlock()

	fwd.Release()
	back.Release()
	prev.Release()
	next.Release()
	owner.Release()
	return true
}

// Clear unlinks every node of list and returns how many were removed. Nodes
// nobody else holds are destroyed along with the handles they wrap.
func (lr *ListRegistry[T]) Clear(list Handle[List[T]]) int {
	n := 0
	for {
		first := lr.First(list)
		if !first.Valid() {
			return n
		}
		if lr.Delete(first) {
			n++
		}
		first.Drop()
	}
}

// Len returns the number of nodes in list.
func (lr *ListRegistry[T]) Len(list Handle[List[T]]) int {
	g := list.Lock()
	defer g.Unlock()
	return g.Value().count
}

// First returns a new handle to the head node, or the zero Handle.
func (lr *ListRegistry[T]) First(list Handle[List[T]]) Handle[Item[T]] {
	g := list.Lock()
	defer g.Unlock()
	return g.Value().first.Clone()
}

// Last returns a new handle to the tail node, or the zero Handle.
func (lr *ListRegistry[T]) Last(list Handle[List[T]]) Handle[Item[T]] {
	g := list.Lock()
	defer g.Unlock()
	return g.Value().last.Clone()
}

// Value returns a new handle to the item node wraps.
func (lr *ListRegistry[T]) Value(node Handle[Item[T]]) Handle[T] {
	g := node.Lock()
	defer g.Unlock()
	return g.Value().handle.Clone()
}

// ListOf returns a new handle to node's list, or the zero Handle when node
// is detached.
func (lr *ListRegistry[T]) ListOf(node Handle[Item[T]]) Handle[List[T]] {
	g := node.Lock()
	defer g.Unlock()
	return g.Value().list.Clone()
}

// Next returns a new handle to the node after node, or the zero Handle.
func (lr *ListRegistry[T]) Next(node Handle[Item[T]]) Handle[Item[T]] {
	g := node.Lock()
	defer g.Unlock()
	return g.Value().next.Clone()
}

// Prev returns a new handle to the node before node, or the zero Handle.
func (lr *ListRegistry[T]) Prev(node Handle[Item[T]]) Handle[Item[T]] {
	g := node.Lock()
	defer g.Unlock()
	return g.Value().prev.Clone()
}

// Verify checks the linkage of list. Only meaningful at quiescence.
func (lr *ListRegistry[T]) Verify(list Handle[List[T]]) error {
	lg := list.Lock()
	first, last, count := lg.Value().first.Clone(), lg.Value().last.Clone(), lg.Value().count
	lg.Unlock()
	defer first.Release()
	defer last.Release()

	if count == 0 {
		if first.Valid() || last.Valid() {
			return fmt.Errorf("%w: %s is empty but has ends %s, %s", ErrCorrupt, list, first, last)
		}
		return nil
	}
	if !first.Valid() || !last.Valid() {
		return fmt.Errorf("%w: %s has %d nodes but no ends", ErrCorrupt, list, count)
	}

	cur := first.Clone()
	defer cur.Release()
	var prev Handle[Item[T]]
	for i := 0; ; i++ {
		g := cur.Lock()
		n := g.Value()
		owner, back, next := n.list, n.prev, n.next.Clone()
		g.Unlock()

		switch {
		case owner != list:
			next.Release()
			return fmt.Errorf("%w: %s at position %d belongs to %s", ErrCorrupt, cur, i, owner)
		case back != prev:
			next.Release()
			return fmt.Errorf("%w: %s at position %d has prev %s, want %s", ErrCorrupt, cur, i, back, prev)
		}

		if i == count-1 {
			defer next.Release()
			if cur != last {
				return fmt.Errorf("%w: walked %d nodes to %s, want tail %s", ErrCorrupt, count, cur, last)
			}
			if next.Valid() {
				return fmt.Errorf("%w: tail %s has next %s", ErrCorrupt, cur, next)
			}
			return nil
		}
		if !next.Valid() {
			return fmt.Errorf("%w: %s ends after %d nodes, count is %d", ErrCorrupt, list, i+1, count)
		}
		prev = cur
		cur.Release()
		cur = next
	}
}
