package render

import (
	"io"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

// Renderer streams the triangles of a mesh.
type Renderer interface {
	// ReadTriangles writes triangles into dst and returns the amount written.
	// io.EOF is returned once all triangles have been read.
	ReadTriangles(dst []ms3.Triangle) (n int, err error)
}

var _ Renderer = (*GridRenderer)(nil)

// GridRenderer is a Renderer that marches a grid cube by cube as triangles
// are read, so the whole mesh never needs to be held in memory.
// It yields the same triangles in the same order as MarchingCubes.Extract.
type GridRenderer struct {
	field     isosurface.Field
	iso       float32
	lo, hi    ivec
	next      ivec // minimum corner of the next cube to march.
	unwritten triangle3Buffer
	exhausted bool // all cubes have been marched.
}

// Renderer returns a GridRenderer over the current configuration.
// The configuration is captured: later changes to mc do not affect it.
func (mc *MarchingCubes) Renderer() (*GridRenderer, error) {
	lo, hi, err := mc.cubeRange()
	if err != nil {
		return nil, err
	}
	return &GridRenderer{
		field:     mc.field,
		iso:       mc.iso,
		lo:        lo,
		hi:        hi,
		next:      lo,
		unwritten: triangle3Buffer{buf: make([]ms3.Triangle, 0, marchingCubesMaxTriangles)},
		exhausted: hi.x <= lo.x || hi.y <= lo.y || hi.z <= lo.z,
	}, nil
}

// ReadTriangles writes triangles rendered from the field into dst.
// Returns number of triangles written and io.EOF once the grid is exhausted.
func (gr *GridRenderer) ReadTriangles(dst []ms3.Triangle) (n int, err error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	var tmp [marchingCubesMaxTriangles]ms3.Triangle
	for n < len(dst) {
		if gr.unwritten.Len() > 0 {
			n += gr.unwritten.Read(dst[n:])
			continue
		}
		if gr.exhausted {
			return n, io.EOF
		}
		if len(dst)-n >= marchingCubesMaxTriangles {
			n += mcToTriangles(dst[n:], gr.field, gr.next, gr.iso)
		} else {
			// Not enough room in buffer for all triangles a cube could produce.
			nt := mcToTriangles(tmp[:], gr.field, gr.next, gr.iso)
			gr.unwritten.Write(tmp[:nt])
		}
		gr.advance()
	}
	return n, nil
}

// advance moves to the next cube in x, y, z order.
func (gr *GridRenderer) advance() {
	gr.next.x++
	if gr.next.x < gr.hi.x {
		return
	}
	gr.next.x = gr.lo.x
	gr.next.y++
	if gr.next.y < gr.hi.y {
		return
	}
	gr.next.y = gr.lo.y
	gr.next.z++
	gr.exhausted = gr.next.z >= gr.hi.z
}
