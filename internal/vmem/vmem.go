// Package vmem reserves and commits anonymous virtual memory for hosted
// registry segments.
//
// A Region is reserved once with no access rights and committed one page at
// a time as a registry grows, mirroring how a kernel maps physical frames into
// a pre-carved virtual range. Regions never shrink; Release drops the whole
// reservation at shutdown.
package vmem

import (
	"errors"
	"fmt"

	"github.com/joshuapare/slabkit/internal/format"
)

var (
	// ErrMisaligned indicates an offset or length that is not page aligned.
	ErrMisaligned = errors.New("vmem: misaligned range")

	// ErrOutOfRange indicates an offset outside the reservation.
	ErrOutOfRange = errors.New("vmem: range outside reservation")

	// ErrReleased indicates use of a region after Release.
	ErrReleased = errors.New("vmem: region released")
)

func checkReserve(size int) error {
	if size <= 0 || size&format.PageMask != 0 {
		return fmt.Errorf("%w: reserve size %d", ErrMisaligned, size)
	}
	return nil
}

func checkCommit(size, off, n int) error {
	if off&format.PageMask != 0 || n&format.PageMask != 0 || n == 0 {
		return fmt.Errorf("%w: commit off=%d n=%d", ErrMisaligned, off, n)
	}
	if off < 0 || off+n > size {
		return fmt.Errorf("%w: commit off=%d n=%d size=%d", ErrOutOfRange, off, n, size)
	}
	return nil
}
