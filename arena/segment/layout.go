package segment

import (
	"errors"
	"fmt"

	"github.com/joshuapare/slabkit/arena/pfa"
)

const (
	// TopLevelSpan is the virtual span owned by one top-level page table
	// entry. Each segment in a Layout gets its own entry.
	TopLevelSpan = 1 << 39

	// FirstRegistryIndex is the top-level index of the first registry segment.
	// Lower indices are left to the architecture (recursive map, stacks,
	// direct map, core-local state).
	FirstRegistryIndex = 400

	// DefaultSpan is the hosted reservation per segment.
	DefaultSpan = 16 << 20

	higherHalf = 0xFFFF_0000_0000_0000
)

// IndexBase returns the canonical higher-half address of top-level index idx.
func IndexBase(idx int) uint64 {
	return higherHalf | uint64(idx)<<39
}

// Layout carves one Reserved segment per name, each at its own top-level
// index starting at FirstRegistryIndex, in the order given.
type Layout struct {
	segs   []*Reserved
	byName map[string]*Reserved
}

// NewLayout reserves span bytes for every named segment.
func NewLayout(span int, pat pfa.Translator, names ...string) (*Layout, error) {
	if span > TopLevelSpan {
		return nil, fmt.Errorf("%w: span %d exceeds a top-level entry", ErrOutOfRange, span)
	}
	if FirstRegistryIndex+len(names) > 511 {
		return nil, fmt.Errorf("%w: %d segments do not fit the higher half", ErrOutOfRange, len(names))
	}

	l := &Layout{byName: make(map[string]*Reserved, len(names))}
	for i, name := range names {
		if _, dup := l.byName[name]; dup {
			_ = l.Release()
			return nil, fmt.Errorf("%w: duplicate segment %q", ErrExists, name)
		}
		seg, err := NewReserved(name, IndexBase(FirstRegistryIndex+i), span, pat)
		if err != nil {
			_ = l.Release()
			return nil, err
		}
		l.segs = append(l.segs, seg)
		l.byName[name] = seg
	}
	return l, nil
}

// Segment returns the segment registered under name.
func (l *Layout) Segment(name string) (*Reserved, bool) {
	seg, ok := l.byName[name]
	return seg, ok
}

// Segments returns all segments in layout order.
func (l *Layout) Segments() []*Reserved {
	return append([]*Reserved(nil), l.segs...)
}

// Release drops every reservation.
func (l *Layout) Release() error {
	var errs []error
	for _, seg := range l.segs {
		errs = append(errs, seg.Release())
	}
	return errors.Join(errs...)
}
