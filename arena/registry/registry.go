package registry

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/arena/segment"
	"github.com/joshuapare/slabkit/arena/spinlock"
	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/internal/logger"
)

// Dropper is implemented by items that own handles or other resources. Drop
// is called once, when the item's reference count reaches zero and before
// its slot is recycled.
type Dropper interface {
	Drop()
}

// bookkeeping is guarded by Registry.book.
type bookkeeping struct {
	lastFree   uint64 // head of the free list, format.NoFreeSlot when empty
	totalCount uint64 // slots ever carved from the segment
	totalPages uint64 // pages mapped into the segment
}

// Registry is a slab arena of items of type T backed by one segment.
//
// A Registry is safe for concurrent use. It is created once per segment and
// lives until shutdown.
type Registry[T any] struct {
	name   string
	seg    segment.Segment
	lo     uint64
	span   int
	stride int

	frames *spinlock.Lock[pfa.Allocator]
	ic     spinlock.InterruptController

	book  *spinlock.Lock[bookkeeping]
	cells cellTable[T]
}

// Stats is a snapshot of a registry's occupancy.
type Stats struct {
	Name     string
	Stride   int    // bytes per slot in the segment
	Capacity uint64 // slots the segment can hold
	Slots    uint64 // slots carved so far
	Live     uint64 // slots holding an item
	Free     uint64 // slots on the free list
	Pages    uint64 // pages mapped
}

// New claims seg for a registry of T. frames is the shared page-frame
// allocator, locked whenever the registry grows.
//
// It fails with an error wrapping segment.ErrExists if the segment is
// already populated.
func New[T any](seg segment.Segment, frames *spinlock.Lock[pfa.Allocator], opts ...Option) (*Registry[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	stride := o.slotSize
	if stride == 0 {
		var zero T
		stride = format.Align8(format.SlotHeaderSize + int(unsafe.Sizeof(zero)))
	}
	if stride < format.MinSlotSize || stride&format.SlotAlignmentMask != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSlotSize, stride)
	}

	lo, hi := seg.Range()
	if hi < lo {
		return nil, fmt.Errorf("registry %s: empty segment range 0x%x-0x%x", o.name, lo, hi)
	}
	span := math.MaxInt
	if hi-lo < math.MaxInt {
		span = int(hi - lo + 1)
	}

	g := frames.Lock(o.ic)
	err := seg.ProvisionAsShared(*g.Value())
	g.Unlock()
	if err != nil {
		if errors.Is(err, segment.ErrOutOfMemory) {
			err = fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
		return nil, fmt.Errorf("registry %s: provision: %w", o.name, err)
	}

	r := &Registry[T]{
		name:   o.name,
		seg:    seg,
		lo:     lo,
		span:   span,
		stride: stride,
		frames: frames,
		ic:     o.ic,
		book:   spinlock.New(bookkeeping{lastFree: format.NoFreeSlot}),
	}
	logger.Debug("registry: created", "name", r.name, "lo", fmt.Sprintf("0x%016X", lo),
		"span", span, "stride", stride)
	return r, nil
}

// Name returns the label set with WithName.
func (r *Registry[T]) Name() string { return r.name }

// Stride returns the number of segment bytes each slot occupies.
func (r *Registry[T]) Stride() int { return r.stride }

// Insert stores item in a free slot and returns the only handle to it.
//
// A slot on the free list is reused before the segment grows. Growth maps
// one frame per page the new slot reaches into; it fails with
// ErrRangeExhausted, without side effects, when the slot would not fit in
// the segment, and with ErrOutOfMemory when the allocator runs dry. On error
// the caller keeps ownership of any handles inside item.
func (r *Registry[T]) Insert(item T) (Handle[T], error) {
	id, err := r.insert(item)
	if err != nil {
		return Handle[T]{}, err
	}
	return Handle[T]{id: id, reg: r}, nil
}

// InsertPermanent stores item in a slot that is never recycled and returns
// its id. Use it for objects that live as long as the kernel.
func (r *Registry[T]) InsertPermanent(item T) (uint64, error) {
	return r.insert(item)
}

func (r *Registry[T]) insert(item T) (uint64, error) {
	g := r.book.Lock(r.ic)
	defer g.Unlock()
	bk := g.Value()

	var id uint64
	if bk.lastFree != format.NoFreeSlot {
		id = bk.lastFree
		bk.lastFree = atomic.LoadUint64(r.nextFree(id))
		if n := atomic.AddUint64(r.refCount(id), 1); n != 1 {
			panic(fmt.Sprintf("registry %s: free slot %d had %d references", r.name, id, n-1))
		}
	} else {
		id = bk.totalCount
		if id > math.MaxInt {
			return 0, fmt.Errorf("%w: registry %s at slot %d", ErrRangeExhausted, r.name, id)
		}
		_, end, err := buf.SlotSpan(r.span, int(id), r.stride)
		if err != nil {
			return 0, fmt.Errorf("%w: registry %s slot %d: %w", ErrRangeExhausted, r.name, id, err)
		}
		if pages := uint64(format.PagesFor(end)); pages > bk.totalPages {
			if err := r.grow(bk, pages); err != nil {
				return 0, err
			}
		}
		r.cells.ensure(id + 1)
		bk.totalCount++
		atomic.StoreUint64(r.refCount(id), 1)
	}

	// The count is already 1, so Get can hand out the slot; it cannot run
	// until the bookkeeping lock is released.
	r.cells.at(id).Reset(item)
	return id, nil
}

// grow maps pages until bk.totalPages reaches want. Pages are counted as
// they are mapped, so a failed attempt never maps the same page twice.
func (r *Registry[T]) grow(bk *bookkeeping, want uint64) error {
	g := r.frames.Lock(r.ic)
	defer g.Unlock()
	alloc := *g.Value()

	for bk.totalPages < want {
		frame, ok := alloc.Allocate()
		if !ok {
			logger.Debug("registry: out of frames", "name", r.name, "pages", bk.totalPages)
			return fmt.Errorf("%w: registry %s page %d", ErrOutOfMemory, r.name, bk.totalPages)
		}

		virt := r.lo + bk.totalPages<<format.PageShift
		if err := r.seg.Map(alloc, virt, frame); err != nil {
			alloc.Free(frame)
			logger.Debug("registry: map failed", "name", r.name, "virt", fmt.Sprintf("0x%016X", virt),
				"error", err)
			if errors.Is(err, segment.ErrOutOfMemory) {
				return fmt.Errorf("%w: registry %s: %w", ErrOutOfMemory, r.name, err)
			}
			return fmt.Errorf("registry %s: map 0x%x: %w", r.name, virt, err)
		}
		bk.totalPages++
	}

	logger.Debug("registry: grew", "name", r.name, "pages", bk.totalPages)
	return nil
}

// Get returns a new handle to the item in slot id, or false if the slot is
// vacant or was never carved.
//
// Ids are recycled: the handle may refer to a different item than the one
// that held id when it was observed. Never use Get for access decisions.
// Get takes the registry lock; prefer passing handles around.
func (r *Registry[T]) Get(id uint64) (Handle[T], bool) {
	g := r.book.Lock(r.ic)
	defer g.Unlock()

	if id >= g.Value().totalCount {
		return Handle[T]{}, false
	}

	rc := r.refCount(id)
	for {
		n := atomic.LoadUint64(rc)
		if n == 0 {
			return Handle[T]{}, false
		}
		if atomic.CompareAndSwapUint64(rc, n, n+1) {
			return Handle[T]{id: id, reg: r}, true
		}
	}
}

// lease takes another reference to a live slot.
func (r *Registry[T]) lease(id uint64) {
	rc := r.refCount(id)
	if atomic.AddUint64(rc, 1) == 1 {
		atomic.AddUint64(rc, ^uint64(0))
		panic(fmt.Sprintf("registry %s: clone of freed slot %d", r.name, id))
	}
}

// forget releases a reference. The last one destroys the item and then,
// with the item lock out of the picture, recycles the slot.
func (r *Registry[T]) forget(id uint64) {
	rc := r.refCount(id)
	n := atomic.AddUint64(rc, ^uint64(0))
	if n == ^uint64(0) {
		atomic.AddUint64(rc, 1)
		panic(fmt.Sprintf("registry %s: reference count underflow on slot %d", r.name, id))
	}
	if n != 0 {
		return
	}

	item := r.cells.at(id).Take()
	destroy(&item)

	g := r.book.Lock(r.ic)
	bk := g.Value()
	atomic.StoreUint64(r.nextFree(id), bk.lastFree)
	bk.lastFree = id
	g.Unlock()
}

func destroy[T any](item *T) {
	if d, ok := any(item).(Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(*item).(Dropper); ok {
		d.Drop()
	}
}

func (r *Registry[T]) refCount(id uint64) *uint64 {
	return r.seg.Word(r.lo + id*uint64(r.stride) + format.SlotRefCountOffset)
}

func (r *Registry[T]) nextFree(id uint64) *uint64 {
	return r.seg.Word(r.lo + id*uint64(r.stride) + format.SlotNextFreeOffset)
}

// Stats returns a snapshot of the registry's occupancy. It walks the free
// list under the registry lock.
func (r *Registry[T]) Stats() Stats {
	g := r.book.Lock(r.ic)
	bk := *g.Value()
	var free uint64
	for id := bk.lastFree; id != format.NoFreeSlot && free <= bk.totalCount; id = atomic.LoadUint64(r.nextFree(id)) {
		free++
	}
	g.Unlock()

	return Stats{
		Name:     r.name,
		Stride:   r.stride,
		Capacity: uint64(r.span / r.stride),
		Slots:    bk.totalCount,
		Live:     bk.totalCount - free,
		Free:     free,
		Pages:    bk.totalPages,
	}
}
