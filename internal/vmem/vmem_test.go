package vmem

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/internal/format"
)

func TestReserveRejectsMisalignedSize(t *testing.T) {
	_, err := Reserve(format.PageSize + 1)
	require.ErrorIs(t, err, ErrMisaligned)

	_, err = Reserve(0)
	require.ErrorIs(t, err, ErrMisaligned)
}

func TestCommitAndWord(t *testing.T) {
	r, err := Reserve(4 * format.PageSize)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Release()) }()

	require.Equal(t, 4*format.PageSize, r.Len())
	require.NoError(t, r.Commit(format.PageSize, format.PageSize))

	w := r.Word(format.PageSize + 8)
	require.Equal(t, uint64(0), atomic.LoadUint64(w), "fresh pages are zero filled")
	atomic.AddUint64(w, 3)
	require.Equal(t, uint64(3), atomic.LoadUint64(r.Word(format.PageSize+8)))

	// Committing the same page again keeps its contents.
	require.NoError(t, r.Commit(format.PageSize, format.PageSize))
	require.Equal(t, uint64(3), atomic.LoadUint64(w))
}

func TestCommitBounds(t *testing.T) {
	r, err := Reserve(2 * format.PageSize)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Release()) }()

	err = r.Commit(8, format.PageSize)
	require.True(t, errors.Is(err, ErrMisaligned), "got %v", err)

	err = r.Commit(2*format.PageSize, format.PageSize)
	require.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)
}

func TestReleaseTwice(t *testing.T) {
	r, err := Reserve(format.PageSize)
	require.NoError(t, err)
	require.NoError(t, r.Release())
	require.NoError(t, r.Release())
	require.ErrorIs(t, r.Commit(0, format.PageSize), ErrReleased)
}
