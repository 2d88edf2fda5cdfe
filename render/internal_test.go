package render

import (
	"bytes"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

func TestMarchingCubesTables(t *testing.T) {
	max := 0
	for index, row := range mcTriangleTable {
		n := 0
		var used uint16
		for _, e := range row {
			if e == -1 {
				break
			}
			if e < 0 || e > 11 {
				t.Fatalf("configuration %d: edge %d out of range", index, e)
			}
			used |= 1 << e
			n++
		}
		if n%3 != 0 {
			t.Errorf("configuration %d: %d edge entries is not a whole amount of triangles", index, n)
		}
		if used != mcEdgeTable[index] {
			t.Errorf("configuration %d: triangles use edges %012b, edge table has %012b", index, used, mcEdgeTable[index])
		}
		if n/3 > max {
			max = n / 3
		}
		if row[len(row)-1] != -1 {
			t.Errorf("configuration %d: row not terminated", index)
		}
	}
	if max != marchingCubesMaxTriangles {
		t.Errorf("mismatch marching cubes max triangles. got %d. want %d", max, marchingCubesMaxTriangles)
	}
	for i, ev := range mcEdgeVertices {
		a, b := mcVertexOffsets[ev[0]], mcVertexOffsets[ev[1]]
		diff := 0
		for k := range a {
			if a[k] != b[k] {
				diff++
			}
		}
		if diff != 1 {
			t.Errorf("edge %d does not join adjacent corners %v and %v", i, a, b)
		}
	}
}

func TestCubeIndex(t *testing.T) {
	var values [8]float32
	for i := range values {
		values[i] = 1
	}
	if got := CubeIndex(&values, 0); got != 0 {
		t.Errorf("all outside: got index %d", got)
	}
	if CrossedEdges(0) != 0 || TriangleCount(0) != 0 {
		t.Error("configuration 0 must produce no surface")
	}
	for i := range values {
		values[i] = -1
	}
	if got := CubeIndex(&values, 0); got != 255 {
		t.Errorf("all inside: got index %d", got)
	}
	if CrossedEdges(255) != 0 || TriangleCount(255) != 0 {
		t.Error("configuration 255 must produce no surface")
	}
	// A sample equal to the isovalue is not below it.
	values = [8]float32{0.5, 1, 1, 1, 1, 1, 1, 1}
	if got := CubeIndex(&values, 0.5); got != 0 {
		t.Errorf("sample equal to iso: got index %d", got)
	}
	values[0] = 0.25
	if got := CubeIndex(&values, 0.5); got != 1 {
		t.Errorf("single corner inside: got index %d", got)
	}
	if TriangleCount(1) != 1 || CrossedEdges(1) != 1<<0|1<<3|1<<8 {
		t.Errorf("configuration 1: got %d triangles over edges %012b", TriangleCount(1), CrossedEdges(1))
	}
}

func TestInterpolate(t *testing.T) {
	p0 := ms3.Vec{X: 0, Y: 0, Z: 0}
	p1 := ms3.Vec{X: 1, Y: 0, Z: 0}
	for _, test := range []struct {
		name   string
		v0, v1 float32
		iso    float32
		want   ms3.Vec
	}{
		{name: "midpoint", v0: 0, v1: 1, iso: 0.5, want: ms3.Vec{X: 0.5}},
		{name: "quarter", v0: -1, v1: 3, iso: 0, want: ms3.Vec{X: 0.25}},
		{name: "reversed", v0: 3, v1: -1, iso: 0, want: ms3.Vec{X: 0.75}},
		{name: "snap p0", v0: 1e-6, v1: 1, iso: 0, want: p0},
		{name: "snap p1", v0: -1, v1: -1e-6, iso: 0, want: p1},
		{name: "p1 snap before flat edge", v0: 1.2e-5, v1: 2e-6, iso: 0, want: p1},
		{name: "both on iso", v0: 0, v1: 0, iso: 0, want: p0},
		{name: "flat", v0: 2, v1: 2 + 1e-6, iso: 0, want: p0},
	} {
		got := Interpolate(p0, test.v0, p1, test.v1, test.iso)
		if !equalElem(got, test.want, 1e-6) {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestSphereSurface(t *testing.T) {
	const (
		n      = 32
		radius = 6.4
	)
	center := ms3.Vec{X: n / 2, Y: n / 2, Z: n / 2}
	field := sphereGrid(t, n, center, radius)
	model, err := NewMarchingCubes(field, 0).Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(model) == 0 {
		t.Fatal("no triangles extracted from sphere")
	}
	var volume float64
	for i, tri := range model {
		for _, v := range tri {
			if dev := math32.Abs(ms3.Norm(ms3.Sub(v, center)) - radius); dev > 0.05 {
				t.Fatalf("triangle %d vertex %v deviates %g from sphere", i, v, dev)
			}
		}
		a, b, c := ms3.Sub(tri[0], center), ms3.Sub(tri[1], center), ms3.Sub(tri[2], center)
		volume += float64(ms3.Dot(a, ms3.Cross(b, c))) / 6
	}
	want := 4. / 3 * math.Pi * radius * radius * radius
	if math.Abs(volume-want) > 0.05*want {
		t.Errorf("enclosed volume %.1f, want about %.1f with outward facing triangles", volume, want)
	}
	mesh := Weld(model, 1e-4)
	if !mesh.IsWatertight() {
		t.Error("sphere mesh is not watertight")
	}
	if d := mesh.DegenerateCount(); d != 0 {
		t.Errorf("%d degenerate triangles after weld", d)
	}
	// Every directed edge appears once in a consistently oriented closed mesh.
	directed := make(map[[2]uint32]bool)
	for i := 0; i < len(mesh.Indices); i += 3 {
		tri := mesh.Indices[i : i+3]
		for j := 0; j < 3; j++ {
			e := [2]uint32{tri[j], tri[(j+1)%3]}
			if directed[e] {
				t.Fatalf("edge %v used twice with same direction", e)
			}
			directed[e] = true
		}
	}
}

func TestBoundaryPadded(t *testing.T) {
	const n = 4
	field, err := isosurface.NewGrid(n, n, n)
	if err != nil {
		t.Fatal(err)
	}
	field.Fill(func(x, y, z int) float32 { return -1 })
	mc := NewMarchingCubes(field, 0)
	model, err := mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != 0 {
		t.Errorf("interior boundary produced %d triangles for uniform field", len(model))
	}
	mc.SetBoundary(BoundaryPadded)
	model, err = mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(model) == 0 {
		t.Fatal("padded boundary did not close field against ghost layer")
	}
	if !Weld(model, 1e-4).IsWatertight() {
		t.Error("padded shell is not watertight")
	}
	bb := Bounds(model)
	// Crossings snap to the zero valued ghost samples one step outside the grid.
	const lo, hi = -1, n
	if !equalElem(bb.Min, ms3.Vec{X: lo, Y: lo, Z: lo}, 1e-5) || !equalElem(bb.Max, ms3.Vec{X: hi, Y: hi, Z: hi}, 1e-5) {
		t.Errorf("unexpected shell bounds %+v", bb)
	}

	// Samples equal to the ghost layer value are outside at iso 0.
	field.Fill(func(x, y, z int) float32 { return 1 })
	model, err = mc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != 0 {
		t.Errorf("got %d triangles for field entirely outside", len(model))
	}
}

func TestInvalidField(t *testing.T) {
	var logbuf bytes.Buffer
	for _, field := range []isosurface.Field{nil, (*isosurface.Grid)(nil), &isosurface.Grid{}} {
		mc := NewMarchingCubes(field, 0)
		mc.SetLogger(log.New(&logbuf, "", 0))
		model, err := mc.Extract()
		if !errors.Is(err, ErrInvalidField) {
			t.Errorf("want ErrInvalidField, got %v", err)
		}
		if len(model) != 0 {
			t.Errorf("invalid field produced %d triangles", len(model))
		}
		if _, err = mc.Renderer(); !errors.Is(err, ErrInvalidField) {
			t.Errorf("renderer: want ErrInvalidField, got %v", err)
		}
		pmc := NewParallelMarchingCubes(field, 0, 2)
		model, err = pmc.Extract()
		if !errors.Is(err, ErrInvalidField) || len(model) != 0 {
			t.Errorf("parallel: want empty result and ErrInvalidField, got %d triangles and %v", len(model), err)
		}
	}
	if !bytes.Contains(logbuf.Bytes(), []byte("marching cubes:")) {
		t.Error("invalid field diagnostic not logged")
	}
}

func sphereGrid(t testing.TB, n int, center ms3.Vec, radius float32) *isosurface.Grid {
	t.Helper()
	g, err := isosurface.NewGrid(n, n, n)
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(func(x, y, z int) float32 {
		p := ivec{x: x, y: y, z: z}.Vec()
		return radius - ms3.Norm(ms3.Sub(p, center))
	})
	return g
}
