package render

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

// interpEpsilon is the absolute tolerance, in field units, under which
// Interpolate treats a sample as lying on the isosurface.
const interpEpsilon = 1e-5

// mcTriangleCount holds the amount of triangles each configuration emits.
var mcTriangleCount = func() (count [256]uint8) {
	for i := range mcTriangleTable {
		for j := 0; mcTriangleTable[i][j] != -1; j += 3 {
			count[i]++
		}
	}
	return count
}()

// CubeIndex returns the configuration index of a cube. Bit i is set when
// corner i's sample is strictly less than iso, so a sample equal to iso
// counts as outside.
func CubeIndex(values *[8]float32, iso float32) uint8 {
	var index uint8
	for i, v := range values {
		if v < iso {
			index |= 1 << i
		}
	}
	return index
}

// CrossedEdges returns the bitmask of cube edges crossed by the isosurface
// for the configuration index. Zero means the cube has no surface.
func CrossedEdges(index uint8) uint16 { return mcEdgeTable[index] }

// TriangleCount returns the amount of triangles the configuration produces.
func TriangleCount(index uint8) int { return int(mcTriangleCount[index]) }

// Interpolate returns the point on segment p0-p1 where a field linearly
// varying from v0 to v1 equals iso. Samples within interpolation tolerance
// of iso snap to their endpoint, p0 taking precedence. Endpoints with nearly
// equal values return p0.
func Interpolate(p0 ms3.Vec, v0 float32, p1 ms3.Vec, v1 float32, iso float32) ms3.Vec {
	switch {
	case math32.Abs(iso-v0) < interpEpsilon:
		return p0
	case math32.Abs(iso-v1) < interpEpsilon:
		return p1
	case math32.Abs(v0-v1) < interpEpsilon:
		return p0
	}
	t := (iso - v0) / (v1 - v0)
	return ms3.Add(p0, ms3.Scale(t, ms3.Sub(p1, p0)))
}

type ivec struct {
	x int
	y int
	z int
}

func (a ivec) Add(b ivec) ivec { return ivec{x: a.x + b.x, y: a.y + b.y, z: a.z + b.z} }
func (a ivec) Vec() ms3.Vec    { return ms3.Vec{X: float32(a.x), Y: float32(a.y), Z: float32(a.z)} }

// corner returns the grid position of cube corner i.
func (a ivec) corner(i int) ivec {
	off := &mcVertexOffsets[i]
	return ivec{x: a.x + off[0], y: a.y + off[1], z: a.z + off[2]}
}

// cubeValues samples the 8 corners of the cube with minimum corner c.
func cubeValues(f isosurface.Field, c ivec) (values [8]float32) {
	for i := range values {
		p := c.corner(i)
		values[i] = f.Sample(p.x, p.y, p.z)
	}
	return values
}

// mcCount returns the amount of triangles the cube at c produces
// without interpolating any vertices.
func mcCount(f isosurface.Field, c ivec, iso float32) int {
	values := cubeValues(f, c)
	return int(mcTriangleCount[CubeIndex(&values, iso)])
}

// mcToTriangles writes the triangles of the cube with minimum corner c to dst
// and returns the amount written. dst must have room for
// marchingCubesMaxTriangles triangles.
func mcToTriangles(dst []ms3.Triangle, f isosurface.Field, c ivec, iso float32) int {
	values := cubeValues(f, c)
	index := CubeIndex(&values, iso)
	edges := mcEdgeTable[index]
	if edges == 0 {
		return 0
	}
	var vertList [12]ms3.Vec
	for i := range vertList {
		if edges&(1<<i) == 0 {
			continue
		}
		a, b := mcEdgeVertices[i][0], mcEdgeVertices[i][1]
		vertList[i] = Interpolate(c.corner(a).Vec(), values[a], c.corner(b).Vec(), values[b], iso)
	}
	row := &mcTriangleTable[index]
	n := 0
	for i := 0; row[i] != -1; i += 3 {
		dst[n] = ms3.Triangle{vertList[row[i]], vertList[row[i+1]], vertList[row[i+2]]}
		n++
	}
	return n
}
