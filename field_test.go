package isosurface_test

import (
	"testing"

	"github.com/soypat/isosurface"
	"github.com/stretchr/testify/require"
)

func TestGridIndexOrder(t *testing.T) {
	g, err := isosurface.NewGrid(3, 4, 5)
	require.NoError(t, err)
	require.Equal(t, 60, g.Len())
	g.Fill(func(x, y, z int) float32 { return float32(x + 10*y + 100*z) })

	data := g.Data()
	require.Equal(t, float32(0), data[0])
	require.Equal(t, float32(1), data[1], "x must be the fastest varying axis")
	require.Equal(t, float32(10), data[3], "y stride is nx")
	require.Equal(t, float32(100), data[12], "z stride is nx*ny")
	require.Equal(t, float32(234), g.At(2, 3, 4))
	require.Equal(t, g.Index(2, 3, 4), 2+3*3+4*12)
}

func TestGridSampleBoundary(t *testing.T) {
	g, err := isosurface.NewGrid(2, 2, 2)
	require.NoError(t, err)
	g.Fill(func(x, y, z int) float32 { return 7 })

	require.Equal(t, float32(7), g.Sample(1, 1, 1))
	for _, c := range [][3]int{
		{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
		{2, 0, 0}, {0, 2, 0}, {0, 0, 2},
		{100, -100, 1},
	} {
		require.Equal(t, float32(0), g.Sample(c[0], c[1], c[2]), "out of range %v must sample zero", c)
	}
	require.Panics(t, func() { g.At(2, 0, 0) })
	require.Panics(t, func() { g.Set(0, 0, -1, 1) })
}

func TestGridViewBorrows(t *testing.T) {
	data := make([]float32, 8)
	g, err := isosurface.NewGridView(data, 2, 2, 2)
	require.NoError(t, err)
	data[7] = 3
	require.Equal(t, float32(3), g.Sample(1, 1, 1))
	g.Set(0, 0, 0, -1)
	require.Equal(t, float32(-1), data[0])

	_, err = isosurface.NewGridView(data, 2, 2, 3)
	require.Error(t, err)
	_, err = isosurface.NewGridView(data, 0, 2, 2)
	require.ErrorIs(t, err, isosurface.ErrBadDims)
}

func TestGridMemoryCeiling(t *testing.T) {
	_, err := isosurface.NewGrid(1024, 1024, 1024)
	require.ErrorIs(t, err, isosurface.ErrGridTooLarge)
	require.Contains(t, err.Error(), "4096 MiB")

	// 512 MiB exactly is allowed.
	require.NoError(t, isosurface.CheckSize(512, 512, 512))
	require.ErrorIs(t, isosurface.CheckSize(513, 512, 512), isosurface.ErrGridTooLarge)
	require.ErrorIs(t, isosurface.CheckSize(0, 1, 1), isosurface.ErrBadDims)
	require.ErrorIs(t, isosurface.CheckSize(1, -3, 1), isosurface.ErrBadDims)
}

func TestGridZeroValue(t *testing.T) {
	var g *isosurface.Grid
	nx, ny, nz := g.Dims()
	require.Zero(t, nx+ny+nz)
	require.Error(t, g.Validate())
	require.Error(t, (&isosurface.Grid{}).Validate())
}

func TestGridStats(t *testing.T) {
	g, err := isosurface.NewGrid(4, 1, 1)
	require.NoError(t, err)
	for i, v := range []float32{-2, 0, 1, 5} {
		g.Set(i, 0, 0, v)
	}
	st := g.Stats()
	require.Equal(t, float32(-2), st.Min)
	require.Equal(t, float32(5), st.Max)
	require.InDelta(t, 1.0, st.Mean, 1e-12)
	require.Equal(t, 4, st.Count)
	require.Equal(t, 16, st.Bytes)
	require.Equal(t, isosurface.Stats{}, (&isosurface.Grid{}).Stats())
}
