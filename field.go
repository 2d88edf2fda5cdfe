// Package isosurface holds the scalar field types consumed by the
// marching cubes renderer in the render package.
package isosurface

import (
	"errors"
	"fmt"
)

// Field is the interface to a scalar field sampled on a regular 3D grid.
type Field interface {
	// Dims returns the amount of samples along each axis.
	Dims() (nx, ny, nz int)
	// Sample returns the scalar value stored at integer grid coordinates.
	// Coordinates outside [0,nx)×[0,ny)×[0,nz) must return 0.
	Sample(x, y, z int) float32
}

// MaxGridBytes is the largest sample storage NewGrid will allocate.
const MaxGridBytes = 512 << 20

const sizeofSample = 4

var (
	// ErrBadDims is returned for grid dimensions that are not positive.
	ErrBadDims = errors.New("grid dimensions must be positive")
	// ErrGridTooLarge is returned when a grid's samples exceed MaxGridBytes.
	ErrGridTooLarge = errors.New("grid exceeds memory ceiling")
)

var _ Field = (*Grid)(nil)

// Grid is a dense scalar field stored as a flat slice indexed
// x + y*nx + z*nx*ny. The zero value is an empty grid.
type Grid struct {
	nx, ny, nz int
	data       []float32
}

// CheckSize reports whether a grid of the given dimensions may be allocated.
// It does not allocate.
func CheckSize(nx, ny, nz int) error {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return fmt.Errorf("%w: got %dx%dx%d", ErrBadDims, nx, ny, nz)
	}
	n := uint64(nx) * uint64(ny) * uint64(nz)
	bytes := n * sizeofSample
	if n/uint64(nx)/uint64(ny) != uint64(nz) || bytes > MaxGridBytes {
		return fmt.Errorf("%w: %dx%dx%d needs %d MiB, limit is %d MiB", ErrGridTooLarge,
			nx, ny, nz, bytes>>20, MaxGridBytes>>20)
	}
	return nil
}

// NewGrid allocates a zero filled grid. Grids whose samples would exceed
// MaxGridBytes are refused before allocation.
func NewGrid(nx, ny, nz int) (*Grid, error) {
	if err := CheckSize(nx, ny, nz); err != nil {
		return nil, err
	}
	return &Grid{
		nx:   nx,
		ny:   ny,
		nz:   nz,
		data: make([]float32, nx*ny*nz),
	}, nil
}

// NewGridView returns a Grid backed by data without copying it. The caller
// keeps ownership of data and must not resize it while the grid is in use.
func NewGridView(data []float32, nx, ny, nz int) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: got %dx%dx%d", ErrBadDims, nx, ny, nz)
	}
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("grid view of %dx%dx%d needs %d samples, got %d", nx, ny, nz, nx*ny*nz, len(data))
	}
	return &Grid{nx: nx, ny: ny, nz: nz, data: data}, nil
}

// Dims returns the grid dimensions. A nil grid has zero dimensions.
func (g *Grid) Dims() (nx, ny, nz int) {
	if g == nil {
		return 0, 0, 0
	}
	return g.nx, g.ny, g.nz
}

// Len returns the amount of samples in the grid.
func (g *Grid) Len() int { return len(g.data) }

// Data returns the backing sample slice.
func (g *Grid) Data() []float32 { return g.data }

// Index returns the position of the (x,y,z) sample in the backing slice.
func (g *Grid) Index(x, y, z int) int {
	return x + y*g.nx + z*g.nx*g.ny
}

// InBounds reports whether (x,y,z) addresses a stored sample.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.nx && y >= 0 && y < g.ny && z >= 0 && z < g.nz
}

// Sample returns the value stored at (x,y,z). Out of range coordinates
// return 0 instead of the nearest sample. Cubes that straddle the
// grid's outer faces therefore see a zero valued ghost layer.
func (g *Grid) Sample(x, y, z int) float32 {
	if !g.InBounds(x, y, z) {
		return 0
	}
	return g.data[x+y*g.nx+z*g.nx*g.ny]
}

// At returns the value stored at (x,y,z). It panics if out of range.
func (g *Grid) At(x, y, z int) float32 {
	if !g.InBounds(x, y, z) {
		panic("isosurface: grid index out of range")
	}
	return g.data[g.Index(x, y, z)]
}

// Set stores v at (x,y,z). It panics if out of range.
func (g *Grid) Set(x, y, z int, v float32) {
	if !g.InBounds(x, y, z) {
		panic("isosurface: grid index out of range")
	}
	g.data[g.Index(x, y, z)] = v
}

// Fill sets every sample to the result of f evaluated at its coordinates.
func (g *Grid) Fill(f func(x, y, z int) float32) {
	i := 0
	for z := 0; z < g.nz; z++ {
		for y := 0; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				g.data[i] = f(x, y, z)
				i++
			}
		}
	}
}

// Validate checks the grid is non-empty and consistent with its dimensions.
func (g *Grid) Validate() error {
	if g == nil {
		return errors.New("nil grid")
	}
	if g.nx <= 0 || g.ny <= 0 || g.nz <= 0 {
		return fmt.Errorf("%w: got %dx%dx%d", ErrBadDims, g.nx, g.ny, g.nz)
	}
	if len(g.data) != g.nx*g.ny*g.nz {
		return fmt.Errorf("grid %dx%dx%d has %d samples", g.nx, g.ny, g.nz, len(g.data))
	}
	return nil
}
