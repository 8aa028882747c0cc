package segment

import (
	"fmt"
	"sync"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/internal/vmem"
)

// pagesPerTable is how many pages one leaf page table covers (2 MiB).
const pagesPerTable = 512

// Reserved is a hosted Segment. Its virtual addresses are synthetic kernel
// addresses; the bytes behind them live in a vmem reservation of the same
// size, committed page by page as frames are mapped.
type Reserved struct {
	name   string
	lo     uint64
	span   int
	region *vmem.Region
	pat    pfa.Translator

	mu          sync.Mutex
	provisioned bool
	root        uint64         // top-level table frame, valid once provisioned
	tables      map[int]uint64 // leaf table index -> frame
	frames      map[int]uint64 // page index -> mapped frame
}

// NewReserved reserves span bytes of backing memory for the virtual range
// starting at lo. Both must be page aligned.
func NewReserved(name string, lo uint64, span int, pat pfa.Translator) (*Reserved, error) {
	if lo&format.PageMask != 0 || span <= 0 || span&format.PageMask != 0 {
		return nil, fmt.Errorf("%w: segment %s lo=0x%x span=%d", ErrMisaligned, name, lo, span)
	}
	if lo+uint64(span)-1 < lo {
		return nil, fmt.Errorf("%w: segment %s wraps the address space", ErrOutOfRange, name)
	}

	region, err := vmem.Reserve(span)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", name, err)
	}

	return &Reserved{
		name:   name,
		lo:     lo,
		span:   span,
		region: region,
		pat:    pat,
		tables: make(map[int]uint64),
		frames: make(map[int]uint64),
	}, nil
}

// Name returns the label given at construction.
func (r *Reserved) Name() string { return r.name }

// Range returns the inclusive virtual bounds of the segment.
func (r *Reserved) Range() (lo, hi uint64) {
	return r.lo, r.lo + uint64(r.span) - 1
}

// ProvisionAsShared allocates the segment's top-level table.
func (r *Reserved) ProvisionAsShared(alloc pfa.Allocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.provisioned || len(r.frames) > 0 {
		return fmt.Errorf("%w: segment %s", ErrExists, r.name)
	}

	root, ok := alloc.Allocate()
	if !ok {
		return fmt.Errorf("%w: segment %s root table", ErrOutOfMemory, r.name)
	}
	r.root = root
	r.provisioned = true
	return nil
}

// Map maps phys at virt, allocating a leaf table from alloc the first time a
// 2 MiB window is touched.
func (r *Reserved) Map(alloc pfa.Allocator, virt, phys uint64) error {
	if virt&format.PageMask != 0 || phys&format.PageMask != 0 {
		return fmt.Errorf("%w: segment %s virt=0x%x phys=0x%x", ErrMisaligned, r.name, virt, phys)
	}
	lo, hi := r.Range()
	if virt < lo || virt > hi {
		return fmt.Errorf("%w: segment %s virt=0x%x", ErrOutOfRange, r.name, virt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.provisioned {
		return fmt.Errorf("%w: segment %s", ErrNotProvisioned, r.name)
	}

	page := int((virt - lo) >> format.PageShift)
	if _, ok := r.frames[page]; ok {
		return fmt.Errorf("%w: segment %s virt=0x%x", ErrExists, r.name, virt)
	}

	table := page / pagesPerTable
	if _, ok := r.tables[table]; !ok {
		frame, ok := alloc.Allocate()
		if !ok {
			return fmt.Errorf("%w: segment %s leaf table %d", ErrOutOfMemory, r.name, table)
		}
		r.tables[table] = frame
	}

	if err := r.region.Commit(page<<format.PageShift, format.PageSize); err != nil {
		return fmt.Errorf("segment %s: %w", r.name, err)
	}
	r.frames[page] = phys
	return nil
}

// Word returns the word at virt. virt must be 8-byte aligned and mapped.
func (r *Reserved) Word(virt uint64) *uint64 {
	return r.region.Word(int(virt - r.lo))
}

// Resolve returns the frame mapped at virt and that frame's direct-map
// address according to the segment's translator.
func (r *Reserved) Resolve(virt uint64) (phys, direct uint64, ok bool) {
	lo, hi := r.Range()
	if virt < lo || virt > hi {
		return 0, 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	frame, ok := r.frames[int((virt-lo)>>format.PageShift)]
	if !ok {
		return 0, 0, false
	}
	phys = frame + (virt & format.PageMask)
	if r.pat != nil {
		direct = r.pat.ToVirtual(phys)
	}
	return phys, direct, true
}

// Usage reports how many data pages and table frames the segment holds.
type Usage struct {
	Name        string
	Lo, Hi      uint64
	DataPages   int
	TableFrames int
}

// Usage returns a snapshot of the segment's mappings.
func (r *Reserved) Usage() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()

	lo, hi := r.Range()
	tables := len(r.tables)
	if r.provisioned {
		tables++
	}
	return Usage{Name: r.name, Lo: lo, Hi: hi, DataPages: len(r.frames), TableFrames: tables}
}

// Release drops the backing reservation. Frames mapped into the segment are
// not returned to any allocator; a segment lives until shutdown.
func (r *Reserved) Release() error {
	return r.region.Release()
}

var _ Segment = (*Reserved)(nil)
