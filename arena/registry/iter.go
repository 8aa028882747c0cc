package registry

import "iter"

// Forward yields the item of start and of every node after it. Yielded
// handles are borrowed: they stay valid until the next iteration step and
// must be cloned to be kept.
func (lr *ListRegistry[T]) Forward(start Handle[Item[T]]) iter.Seq[Handle[T]] {
	return func(yield func(Handle[T]) bool) {
		walk(start, nextOf[T], func(_ Handle[Item[T]], item Handle[T]) bool { return yield(item) })
	}
}

// Backward yields the item of start and of every node before it, nearest
// first. Yielded handles are borrowed.
func (lr *ListRegistry[T]) Backward(start Handle[Item[T]]) iter.Seq[Handle[T]] {
	return func(yield func(Handle[T]) bool) {
		walk(start, prevOf[T], func(_ Handle[Item[T]], item Handle[T]) bool { return yield(item) })
	}
}

// All walks back from node to the head of its chain and then yields every
// item front to back. Yielded handles are borrowed.
func (lr *ListRegistry[T]) All(node Handle[Item[T]]) iter.Seq[Handle[T]] {
	return func(yield func(Handle[T]) bool) {
		head := node.Clone()
		for head.Valid() {
			p := lr.Prev(head)
			if !p.Valid() {
				break
			}
			head.Drop()
			head = p
		}
		defer head.Release()
		walk(head, nextOf[T], func(_ Handle[Item[T]], item Handle[T]) bool { return yield(item) })
	}
}

// Items yields the items of list front to back. Yielded handles are
// borrowed.
func (lr *ListRegistry[T]) Items(list Handle[List[T]]) iter.Seq[Handle[T]] {
	return func(yield func(Handle[T]) bool) {
		first := lr.First(list)
		defer first.Release()
		walk(first, nextOf[T], func(_ Handle[Item[T]], item Handle[T]) bool { return yield(item) })
	}
}

// Nodes yields the nodes of list front to back. The yielded node may be
// deleted during iteration; the walk continues with its old successor.
func (lr *ListRegistry[T]) Nodes(list Handle[List[T]]) iter.Seq[Handle[Item[T]]] {
	return func(yield func(Handle[Item[T]]) bool) {
		first := lr.First(list)
		defer first.Release()
		walk(first, nextOf[T], func(node Handle[Item[T]], _ Handle[T]) bool { return yield(node) })
	}
}

func nextOf[T any](it *Item[T]) Handle[Item[T]] { return it.next }
func prevOf[T any](it *Item[T]) Handle[Item[T]] { return it.prev }

// walk follows step from start, holding a reference to the current node
// while yield runs and to its successor before yield is called.
func walk[T any](start Handle[Item[T]], step func(*Item[T]) Handle[Item[T]], yield func(Handle[Item[T]], Handle[T]) bool) {
	cur := start.Clone()
	for cur.Valid() {
		g := cur.Lock()
		item := g.Value().handle
		succ := step(g.Value()).Clone()
		g.Unlock()

		more := yield(cur, item)
		cur.Drop()
		if !more {
			succ.Release()
			return
		}
		cur = succ
	}
}
