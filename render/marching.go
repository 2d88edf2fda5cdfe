package render

import (
	"errors"
	"fmt"
	"log"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

// ErrInvalidField is returned by extractors configured with a missing field
// or a field with a non-positive dimension. It is a normal outcome:
// the extraction simply produces no surface.
var ErrInvalidField = errors.New("scalar field not configured correctly")

// Boundary selects which cubes of a grid are marched.
type Boundary uint8

const (
	// BoundaryInterior marches only cubes whose 8 corners are stored samples,
	// that is cubes with minimum corner in [0,n-2] along each axis.
	BoundaryInterior Boundary = iota
	// BoundaryPadded also marches the cubes straddling the grid's outer
	// faces, minimum corner in [-1,n-1]. Their out of range corners sample
	// as zero, so surfaces touching the grid boundary are closed against
	// a zero valued ghost layer.
	BoundaryPadded
)

func (b Boundary) String() string {
	switch b {
	case BoundaryInterior:
		return "interior"
	case BoundaryPadded:
		return "padded"
	}
	return fmt.Sprintf("Boundary(%d)", uint8(b))
}

// Extractor extracts an isosurface from a configured scalar field.
// MarchingCubes and ParallelMarchingCubes are interchangeable Extractors
// and produce identical triangle sequences.
type Extractor interface {
	// Configure sets the field to extract from and the isovalue.
	// The field must not be modified during extraction.
	Configure(field isosurface.Field, iso float32)
	// Extract returns the triangles of the isosurface.
	Extract() ([]ms3.Triangle, error)
}

var (
	_ Extractor = (*MarchingCubes)(nil)
	_ Extractor = (*ParallelMarchingCubes)(nil)
)

// MarchingCubes is the single threaded marching cubes extractor over a
// dense grid. The field is borrowed: MarchingCubes never modifies it.
type MarchingCubes struct {
	field    isosurface.Field
	iso      float32
	boundary Boundary
	log      *log.Logger
}

// NewMarchingCubes returns a MarchingCubes configured to extract the iso
// surface of field.
func NewMarchingCubes(field isosurface.Field, iso float32) *MarchingCubes {
	return &MarchingCubes{field: field, iso: iso}
}

// Configure sets the field and isovalue for subsequent extractions.
func (mc *MarchingCubes) Configure(field isosurface.Field, iso float32) {
	mc.field = field
	mc.iso = iso
}

// SetIsoValue sets the isovalue.
func (mc *MarchingCubes) SetIsoValue(iso float32) { mc.iso = iso }

// IsoValue returns the configured isovalue.
func (mc *MarchingCubes) IsoValue() float32 { return mc.iso }

// SetBoundary selects which cubes are marched. The default is BoundaryInterior.
func (mc *MarchingCubes) SetBoundary(b Boundary) { mc.boundary = b }

// SetLogger sets a logger that receives extraction diagnostics.
// A nil logger disables them.
func (mc *MarchingCubes) SetLogger(l *log.Logger) { mc.log = l }

// Extract returns the triangles of the isosurface in a newly allocated slice.
// Cubes are visited with x varying fastest, then y, then z.
// On an invalid configuration Extract returns an empty result and an error
// wrapping ErrInvalidField.
func (mc *MarchingCubes) Extract() ([]ms3.Triangle, error) {
	return mc.AppendTriangles(nil)
}

// AppendTriangles appends the triangles of the isosurface to dst and returns
// the extended slice.
func (mc *MarchingCubes) AppendTriangles(dst []ms3.Triangle) ([]ms3.Triangle, error) {
	lo, hi, err := mc.cubeRange()
	if err != nil {
		return dst, err
	}
	var buf [marchingCubesMaxTriangles]ms3.Triangle
	var c ivec
	for c.z = lo.z; c.z < hi.z; c.z++ {
		for c.y = lo.y; c.y < hi.y; c.y++ {
			for c.x = lo.x; c.x < hi.x; c.x++ {
				n := mcToTriangles(buf[:], mc.field, c, mc.iso)
				dst = append(dst, buf[:n]...)
			}
		}
	}
	return dst, nil
}

// Count returns the amount of triangles Extract would produce without
// computing any vertex.
func (mc *MarchingCubes) Count() (int, error) {
	lo, hi, err := mc.cubeRange()
	if err != nil {
		return 0, err
	}
	return countCubes(mc.field, lo, hi, mc.iso), nil
}

// cubeRange returns the half open range of cube minimum corners to march.
func (mc *MarchingCubes) cubeRange() (lo, hi ivec, err error) {
	if mc.field == nil {
		return lo, hi, mc.diagnose(fmt.Errorf("%w: nil field", ErrInvalidField))
	}
	nx, ny, nz := mc.field.Dims()
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return lo, hi, mc.diagnose(fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidField, nx, ny, nz))
	}
	switch mc.boundary {
	case BoundaryInterior:
		return ivec{}, ivec{x: nx - 1, y: ny - 1, z: nz - 1}, nil
	case BoundaryPadded:
		return ivec{x: -1, y: -1, z: -1}, ivec{x: nx, y: ny, z: nz}, nil
	}
	return lo, hi, mc.diagnose(fmt.Errorf("invalid boundary mode %v", mc.boundary))
}

func (mc *MarchingCubes) diagnose(err error) error {
	if mc.log != nil {
		mc.log.Printf("marching cubes: %v", err)
	}
	return err
}

// countCubes counts triangles of the cubes with minimum corner in [lo,hi).
func countCubes(f isosurface.Field, lo, hi ivec, iso float32) int {
	n := 0
	var c ivec
	for c.z = lo.z; c.z < hi.z; c.z++ {
		for c.y = lo.y; c.y < hi.y; c.y++ {
			for c.x = lo.x; c.x < hi.x; c.x++ {
				n += mcCount(f, c, iso)
			}
		}
	}
	return n
}
