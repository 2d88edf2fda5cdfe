package render

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Mesh is an indexed triangle mesh. Every three consecutive indices form a
// triangle, with the winding of the triangle soup it was built from.
type Mesh struct {
	Vertices []ms3.Vec
	Indices  []uint32
}

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Weld merges vertices of model closer than tol into shared indexed vertices.
// Marching cubes computes the vertex on an edge shared by neighbouring cubes
// once per cube, sometimes from opposite ends, so the copies may differ in
// the last bits; a small tol such as 1e-4 joins them.
// Each input vertex joins the first welded vertex within tol of it, so
// welded vertices keep the order of first appearance in model.
func Weld(model []ms3.Triangle, tol float32) Mesh {
	verts := make(kdVertices, 0, 3*len(model))
	for _, t := range model {
		for _, v := range t {
			verts = append(verts, kdVertex{v: v, idx: uint32(len(verts))})
		}
	}
	mesh := Mesh{
		Indices: make([]uint32, len(verts)),
	}
	if len(verts) == 0 {
		return mesh
	}
	// kdtree.New reorders its input.
	tree := kdtree.New(append(kdVertices(nil), verts...), false)
	const unset = math.MaxUint32
	for i := range mesh.Indices {
		mesh.Indices[i] = unset
	}
	tol2 := float64(tol) * float64(tol)
	for i, kv := range verts {
		if mesh.Indices[i] != unset {
			continue
		}
		idx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, kv.v)
		mesh.Indices[i] = idx
		near := kdtree.NewDistKeeper(tol2)
		tree.NearestSet(near, kv)
		for _, c := range near.Heap {
			kc, ok := c.Comparable.(kdVertex)
			if !ok {
				continue
			}
			if j := kc.idx; mesh.Indices[j] == unset {
				mesh.Indices[j] = idx
			}
		}
	}
	return mesh
}

var (
	_ kdtree.Comparable = kdVertex{}
	_ kdtree.Interface  = kdVertices{}
)

// kdVertex is a mesh vertex stored in a k-d tree. idx is its position in
// the flattened triangle soup.
type kdVertex struct {
	v   ms3.Vec
	idx uint32
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a kdVertex) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return float64(vecDim(a.v, d) - vecDim(b.(kdVertex).v, d))
}

// Dims returns the number of dimensions described in the Comparable.
func (a kdVertex) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a kdVertex) Distance(b kdtree.Comparable) float64 {
	d := ms3.Sub(a.v, b.(kdVertex).v)
	return float64(d.X)*float64(d.X) + float64(d.Y)*float64(d.Y) + float64(d.Z)*float64(d.Z)
}

func vecDim(v ms3.Vec, d kdtree.Dim) float32 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

type kdVertices []kdVertex

func (k kdVertices) Index(i int) kdtree.Comparable { return k[i] }

// Len returns the length of the list.
func (k kdVertices) Len() int { return len(k) }

// Pivot sorts the list along dimension d and returns the median index.
func (k kdVertices) Pivot(d kdtree.Dim) int {
	sort.Sort(kdPlane{dim: d, vertices: k})
	return len(k) / 2
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k kdVertices) Slice(start, end int) kdtree.Interface { return k[start:end] }

type kdPlane struct {
	dim      kdtree.Dim
	vertices kdVertices
}

func (p kdPlane) Len() int { return len(p.vertices) }
func (p kdPlane) Less(i, j int) bool {
	return vecDim(p.vertices[i].v, p.dim) < vecDim(p.vertices[j].v, p.dim)
}
func (p kdPlane) Swap(i, j int) { p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i] }

// EdgeUses counts how many triangles use each undirected edge of the mesh.
func (m Mesh) EdgeUses() map[[2]uint32]int {
	uses := make(map[[2]uint32]int, len(m.Indices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tri := m.Indices[i : i+3]
		for j := 0; j < 3; j++ {
			a, b := tri[j], tri[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			uses[[2]uint32{a, b}]++
		}
	}
	return uses
}

// IsWatertight reports whether every edge of a non-empty mesh is shared by
// exactly two triangles.
func (m Mesh) IsWatertight() bool {
	if len(m.Indices) == 0 {
		return false
	}
	for _, n := range m.EdgeUses() {
		if n != 2 {
			return false
		}
	}
	return true
}

// DegenerateCount returns the amount of triangles with repeated vertex indices.
func (m Mesh) DegenerateCount() int {
	n := 0
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if a == b || b == c || c == a {
			n++
		}
	}
	return n
}

// Digest returns a 64 bit hash of the exact triangle sequence. Two
// extractions of the same field and isovalue have equal digests.
func Digest(model []ms3.Triangle) uint64 {
	h := xxhash.New()
	var buf [36]byte
	for _, t := range model {
		for i, v := range t {
			binary.LittleEndian.PutUint32(buf[12*i:], math.Float32bits(v.X))
			binary.LittleEndian.PutUint32(buf[12*i+4:], math.Float32bits(v.Y))
			binary.LittleEndian.PutUint32(buf[12*i+8:], math.Float32bits(v.Z))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Bounds returns the bounding box of model.
func Bounds(model []ms3.Triangle) ms3.Box {
	if len(model) == 0 {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: model[0][0], Max: model[0][0]}
	for _, t := range model {
		for _, v := range t {
			bb.Min = ms3.MinElem(bb.Min, v)
			bb.Max = ms3.MaxElem(bb.Max, v)
		}
	}
	return bb
}

// equalElem reports whether a and b differ by at most tol in every component.
func equalElem(a, b ms3.Vec, tol float32) bool {
	return math32.Abs(a.X-b.X) <= tol && math32.Abs(a.Y-b.Y) <= tol && math32.Abs(a.Z-b.Z) <= tol
}
