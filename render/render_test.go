package render_test

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
	"github.com/soypat/isosurface/render"
)

// wavesGrid returns a field with many disjoint and boundary touching surface
// sheets, which exercises most cube configurations.
func wavesGrid(t testing.TB, nx, ny, nz int) *isosurface.Grid {
	t.Helper()
	g, err := isosurface.NewGrid(nx, ny, nz)
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(func(x, y, z int) float32 {
		fx, fy, fz := 0.45*float64(x), 0.3*float64(y), 0.38*float64(z)
		return float32(math.Sin(fx)*math.Cos(fy) + math.Cos(fy)*math.Sin(fz) + 0.2*math.Sin(fx+fz))
	})
	return g
}

func TestExtractDeterministic(t *testing.T) {
	field := wavesGrid(t, 17, 13, 11)
	mc := render.NewMarchingCubes(field, 0.1)
	first, err := mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 {
		t.Fatal("expected surface in waves field")
	}
	second, err := mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if render.Digest(first) != render.Digest(second) {
		t.Fatal("repeated extraction is not bitwise identical")
	}
	count, err := mc.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != len(first) {
		t.Errorf("Count returned %d, Extract produced %d triangles", count, len(first))
	}
	prefix := []ms3.Triangle{{}}
	appended, err := mc.AppendTriangles(prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(appended) != len(first)+1 || render.Digest(appended[1:]) != render.Digest(first) {
		t.Error("AppendTriangles does not append the extracted surface")
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	field := wavesGrid(t, 21, 19, 23)
	for _, boundary := range []render.Boundary{render.BoundaryInterior, render.BoundaryPadded} {
		mc := render.NewMarchingCubes(field, 0)
		mc.SetBoundary(boundary)
		want, err := mc.Extract()
		if err != nil {
			t.Fatal(err)
		}
		for _, workers := range []int{0, 1, 2, 3, 8, 64} {
			for _, block := range []int{0, 1, 2, 5, 100} {
				pmc := render.NewParallelMarchingCubes(field, 0, workers)
				pmc.BlockSize = block
				pmc.SetBoundary(boundary)
				got, err := pmc.Extract()
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(want) {
					t.Fatalf("%v workers=%d block=%d: got %d triangles, want %d", boundary, workers, block, len(got), len(want))
				}
				for i := range got {
					if got[i] != want[i] {
						t.Fatalf("%v workers=%d block=%d: triangle %d differs", boundary, workers, block, i)
					}
				}
				count, err := pmc.Count()
				if err != nil {
					t.Fatal(err)
				}
				if count != len(want) {
					t.Errorf("%v workers=%d block=%d: Count %d, want %d", boundary, workers, block, count, len(want))
				}
			}
		}
	}
}

func TestParallelEmptyAndThin(t *testing.T) {
	// Fields one sample thick have no interior cubes.
	for _, dims := range [][3]int{{1, 1, 1}, {5, 5, 1}, {1, 7, 7}} {
		g, err := isosurface.NewGrid(dims[0], dims[1], dims[2])
		if err != nil {
			t.Fatal(err)
		}
		got, err := render.NewParallelMarchingCubes(g, 0, 4).Extract()
		if err != nil || len(got) != 0 {
			t.Errorf("%v: got %d triangles, err %v", dims, len(got), err)
		}
	}
}

func TestGridRendererMatchesExtract(t *testing.T) {
	field := wavesGrid(t, 15, 16, 9)
	mc := render.NewMarchingCubes(field, -0.3)
	want, err := mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	for _, bufsize := range []int{1, 2, 4, 5, 7, 1024} {
		r, err := mc.Renderer()
		if err != nil {
			t.Fatal(err)
		}
		buf := make([]ms3.Triangle, bufsize)
		var got []ms3.Triangle
		for {
			n, err := r.ReadTriangles(buf)
			got = append(got, buf[:n]...)
			if err == io.EOF {
				break
			} else if err != nil {
				t.Fatal(err)
			}
		}
		if render.Digest(got) != render.Digest(want) {
			t.Errorf("buffer size %d: rendered %d triangles differ from %d extracted", bufsize, len(got), len(want))
		}
		if n, err := r.ReadTriangles(buf); n != 0 || err != io.EOF {
			t.Errorf("exhausted renderer returned %d, %v", n, err)
		}
	}
	r, _ := mc.Renderer()
	if _, err := r.ReadTriangles(nil); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("empty buffer: want io.ErrShortBuffer, got %v", err)
	}
	all, err := render.RenderAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(want) {
		t.Errorf("RenderAll got %d triangles, want %d", len(all), len(want))
	}
}

func TestSaveGLB(t *testing.T) {
	field := wavesGrid(t, 12, 12, 12)
	model, err := render.NewMarchingCubes(field, 0).Extract()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "waves.glb")
	err = render.SaveGLB(path, model)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("want a single mesh primitive, got %d meshes", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]
	if prim.Indices == nil {
		t.Fatal("mesh is not indexed")
	}
	indices := doc.Accessors[*prim.Indices]
	if int(indices.Count) != 3*len(model) {
		t.Errorf("got %d indices, want %d", indices.Count, 3*len(model))
	}
	mesh := render.Weld(model, 1e-4)
	positions := doc.Accessors[prim.Attributes[gltf.POSITION]]
	if int(positions.Count) != len(mesh.Vertices) {
		t.Errorf("got %d vertices, want %d", positions.Count, len(mesh.Vertices))
	}
	if err := render.SaveGLB(path, nil); err == nil {
		t.Error("expected error saving empty model")
	}
}

func TestWeldSharedVertices(t *testing.T) {
	a, b, c, d := ms3.Vec{}, ms3.Vec{X: 1}, ms3.Vec{Y: 1}, ms3.Vec{X: 1, Y: 1}
	model := []ms3.Triangle{
		{a, b, c},
		{ms3.Add(b, ms3.Vec{X: 1e-6}), d, c},
	}
	mesh := render.Weld(model, 1e-4)
	if len(mesh.Vertices) != 4 || mesh.TriangleCount() != 2 {
		t.Fatalf("got %d vertices and %d triangles, want 4 and 2", len(mesh.Vertices), mesh.TriangleCount())
	}
	if mesh.IsWatertight() {
		t.Error("open quad reported watertight")
	}
	uses := mesh.EdgeUses()
	if uses[[2]uint32{1, 2}] != 2 {
		t.Errorf("shared diagonal used %d times, want 2", uses[[2]uint32{1, 2}])
	}
	bb := render.Bounds(model)
	if bb.Min != a || bb.Max != ms3.Add(d, ms3.Vec{X: 1e-6}) {
		t.Errorf("unexpected bounds %+v", bb)
	}
	if render.Weld(nil, 1e-4).IsWatertight() {
		t.Error("empty mesh reported watertight")
	}
}

func TestWeldFirstWithinTolerance(t *testing.T) {
	model, err := render.NewMarchingCubes(wavesGrid(t, 12, 10, 9), 0.1).Extract()
	if err != nil {
		t.Fatal(err)
	}
	// Jitter every other triangle so welding has to look past exact matches.
	for i := 0; i < len(model); i += 2 {
		for j := range model[i] {
			model[i][j] = ms3.Add(model[i][j], ms3.Vec{X: 3e-5, Y: -2e-5})
		}
	}
	for _, tol := range []float32{0, 1e-4, 0.3} {
		var (
			wantVerts   []ms3.Vec
			wantIndices []uint32
		)
		tol2 := float64(tol) * float64(tol)
		for _, tri := range model {
			for _, v := range tri {
				idx := -1
				for k, w := range wantVerts {
					dx, dy, dz := float64(v.X-w.X), float64(v.Y-w.Y), float64(v.Z-w.Z)
					if dx*dx+dy*dy+dz*dz <= tol2 {
						idx = k
						break
					}
				}
				if idx < 0 {
					idx = len(wantVerts)
					wantVerts = append(wantVerts, v)
				}
				wantIndices = append(wantIndices, uint32(idx))
			}
		}
		mesh := render.Weld(model, tol)
		if len(mesh.Vertices) != len(wantVerts) || len(mesh.Indices) != len(wantIndices) {
			t.Fatalf("tol %g: got %d vertices and %d indices, want %d and %d",
				tol, len(mesh.Vertices), len(mesh.Indices), len(wantVerts), len(wantIndices))
		}
		for i := range wantVerts {
			if mesh.Vertices[i] != wantVerts[i] {
				t.Fatalf("tol %g: vertex %d is %v, want %v", tol, i, mesh.Vertices[i], wantVerts[i])
			}
		}
		for i := range wantIndices {
			if mesh.Indices[i] != wantIndices[i] {
				t.Fatalf("tol %g: index %d is %d, want %d", tol, i, mesh.Indices[i], wantIndices[i])
			}
		}
	}
}

func BenchmarkMarchingCubes(b *testing.B) {
	field := wavesGrid(b, 64, 64, 64)
	mc := render.NewMarchingCubes(field, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mc.Extract()
	}
}

func BenchmarkParallelMarchingCubes(b *testing.B) {
	field := wavesGrid(b, 64, 64, 64)
	pmc := render.NewParallelMarchingCubes(field, 0, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pmc.Extract()
	}
}

func BenchmarkWeld(b *testing.B) {
	model, err := render.NewMarchingCubes(wavesGrid(b, 64, 64, 64), 0).Extract()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		render.Weld(model, 1e-4)
	}
}
