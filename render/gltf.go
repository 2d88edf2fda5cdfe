package render

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/soypat/glgl/math/ms3"
)

// weldTolerance joins the duplicate vertices marching cubes emits on
// edges shared by neighbouring cubes.
const weldTolerance = 1e-4

// SaveGLB writes model as a binary glTF file with a single indexed mesh.
// Vertices are welded and given smooth normals.
func SaveGLB(path string, model []ms3.Triangle) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	doc := NewGLTFDocument(Weld(model, weldTolerance))
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save GLB %q: %w", path, err)
	}
	return nil
}

// NewGLTFDocument builds a glTF document holding mesh as its only node.
func NewGLTFDocument(mesh Mesh) *gltf.Document {
	positions := make([][3]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		positions[i] = [3]float32{v.X, v.Y, v.Z}
	}
	normals := make([][3]float32, len(mesh.Vertices))
	for i, n := range mesh.vertexNormals() {
		normals[i] = [3]float32{n.X, n.Y, n.Z}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "isosurface marching cubes"
	posAccessor := modeler.WritePosition(doc, positions)
	normalAccessor := modeler.WriteNormal(doc, normals)
	indicesAccessor := modeler.WriteIndices(doc, mesh.Indices)

	prim := &gltf.Primitive{
		Attributes: map[string]int{
			gltf.POSITION: int(posAccessor),
			gltf.NORMAL:   int(normalAccessor),
		},
		Indices:  gltf.Index(int(indicesAccessor)),
		Material: gltf.Index(0),
	}
	doc.Materials = []*gltf.Material{{
		Name:      "isosurface",
		AlphaMode: gltf.AlphaOpaque,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{0.27, 0.54, 0.4, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{Name: "isosurface", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: "isosurface", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

// vertexNormals returns area weighted unit normals of every vertex.
func (m Mesh) vertexNormals() []ms3.Vec {
	normals := make([]ms3.Vec, len(m.Vertices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		tri := ms3.Triangle{m.Vertices[a], m.Vertices[b], m.Vertices[c]}
		n := tri.Normal()
		normals[a] = ms3.Add(normals[a], n)
		normals[b] = ms3.Add(normals[b], n)
		normals[c] = ms3.Add(normals[c], n)
	}
	for i, n := range normals {
		if l := ms3.Norm(n); l > 0 {
			normals[i] = ms3.Scale(1/l, n)
		}
	}
	return normals
}
