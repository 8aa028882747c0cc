package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlign8(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 8}, {8, 8}, {9, 16}, {16, 16}, {2047, 2048},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Align8(c.in), "Align8(%d)", c.in)
	}
}

func TestAlignPageAndPagesFor(t *testing.T) {
	require.Equal(t, 0, AlignPage(0))
	require.Equal(t, PageSize, AlignPage(1))
	require.Equal(t, PageSize, AlignPage(PageSize))
	require.Equal(t, 2*PageSize, AlignPage(PageSize+1))

	require.Equal(t, 0, PagesFor(0))
	require.Equal(t, 1, PagesFor(16))
	require.Equal(t, 1, PagesFor(PageSize))
	require.Equal(t, 2, PagesFor(PageSize+16))
}
