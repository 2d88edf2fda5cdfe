package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// WriteSTL writes model triangles to a writer in binary STL file format.
func WriteSTL(w io.Writer, model []ms3.Triangle) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	nt := int64(len(model)) // int64 cast so that next line works correctly on 32bit machines.
	if nt > math.MaxUint32 {
		return errors.New("amount of triangles in model exceeds STL design limits")
	}
	var buf [stlHeaderSize]byte
	stlHeader{Count: uint32(nt)}.put(buf[:])
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	for _, triangle := range model {
		stlTriangleFrom(triangle).put(buf[:])
		if _, err := w.Write(buf[:stlTriangleSize]); err != nil {
			return err
		}
	}
	return nil
}

// CreateSTL streams the triangles of a Renderer into a binary STL file
// created at path. The triangle count is written to the header once the
// renderer is exhausted.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	err = writeSTLFile(file, r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("create STL %q: %w", path, err)
	}
	return nil
}

func writeSTLFile(file *os.File, r Renderer) error {
	// Do not write header yet, the triangle count is unknown.
	_, err := file.Seek(stlHeaderSize, io.SeekStart)
	if err != nil {
		return err
	}
	rd := &stlReader{r: r}
	n, err := io.CopyBuffer(file, rd, make([]byte, stlTriangleSize*trianglesInBuffer))
	if err != nil {
		return err
	}
	nt := n / stlTriangleSize
	if nt > math.MaxUint32 {
		return errors.New("amount of triangles in model exceeds STL design limits")
	}
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	var buf [stlHeaderSize]byte
	stlHeader{Count: uint32(nt)}.put(buf[:])
	_, err = file.Write(buf[:])
	return err
}

const trianglesInBuffer = 1 << 10

// stlReader adapts a Renderer into an io.Reader of STL triangle records.
type stlReader struct {
	r   Renderer
	buf [trianglesInBuffer]ms3.Triangle
}

func (w *stlReader) Read(b []byte) (int, error) {
	ntMax := min(len(b)/stlTriangleSize, len(w.buf))
	if ntMax == 0 {
		return 0, errors.New("stlReader requires at least 50 bytes to write a single triangle")
	}
	var (
		err error
		it  int // Number of triangles written to byte buffer
		nt  int // number of triangles read during ReadTriangles
	)
	for it < ntMax && err == nil {
		nt, err = w.r.ReadTriangles(w.buf[:ntMax-it])
		if nt > ntMax-it {
			panic("bug: ReadTriangles read more triangles than available in buffer")
		}
		for _, triangle := range w.buf[:nt] {
			stlTriangleFrom(triangle).put(b[it*stlTriangleSize:])
			it++
		}
	}
	return it * stlTriangleSize, err
}

// ReadSTL reads a binary STL. Triangles whose stored normal disagrees with
// the normal computed from its vertices are returned alongside an error
// matching ErrNormalMismatch; callers may choose to ignore it.
func ReadSTL(r io.Reader) (output []ms3.Triangle, readErr error) {
	var hbuf [stlHeaderSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, errors.New("STL header read failed: " + err.Error())
	}
	var header stlHeader
	header.get(hbuf[:])
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		buf            [stlTriangleSize]byte
		d              stlTriangle
		i              int
		normMismatches int
	)
	defer func() {
		if readErr != nil && !errors.Is(readErr, ErrNormalMismatch) {
			readErr = fmt.Errorf("%d/%d STL triangles read: %w", i+1, header.Count, readErr)
		}
	}()
	output = make([]ms3.Triangle, 0, min(int(header.Count), 1<<20))
	for i = 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			if !errors.Is(err, ErrNormalMismatch) {
				return nil, err
			}
			normMismatches++
			readErr = err
		}
		output = append(output, d.Triangle())
	}
	if normMismatches > 0 {
		readErr = fmt.Errorf("%w in %d triangles", ErrNormalMismatch, normMismatches)
	}
	return output, readErr
}

// ErrNormalMismatch is returned by ReadSTL when stored triangle normals do
// not match the vertex winding. Ignore this error if the model is OK.
var ErrNormalMismatch = errors.New("triangle normal not approximately equal to normal calculated from vertices")

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

func (h stlHeader) put(b []byte) {
	_ = b[83] // early bounds check
	for i := range b[:80] {
		b[i] = 0
	}
	binary.LittleEndian.PutUint32(b[80:], h.Count)
}

func (h *stlHeader) get(b []byte) {
	_ = b[83] // early bounds check
	h.Count = binary.LittleEndian.Uint32(b[80:])
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

func stlTriangleFrom(t ms3.Triangle) (d stlTriangle) {
	n := t.Normal()
	if l := ms3.Norm(n); l > 0 {
		n = ms3.Scale(1/l, n)
	}
	d.Normal = [3]float32{n.X, n.Y, n.Z}
	d.Vertex1 = [3]float32{t[0].X, t[0].Y, t[0].Z}
	d.Vertex2 = [3]float32{t[1].X, t[1].Y, t[1].Z}
	d.Vertex3 = [3]float32{t[2].X, t[2].Y, t[2].Z}
	return d
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0) // Zero out attributes.
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
	// no attributes supported yet.
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func (t stlTriangle) validate() error {
	const normTol = 5e-2
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	gotNormal := vecFromArray(t.Normal)
	if gotNormal == (ms3.Vec{}) {
		// Degenerate triangles are written with a zero normal.
		return nil
	}
	calcNormal := t.normalFromVertices()
	calcNormalNeg := ms3.Scale(-1, calcNormal)
	if !equalElem(calcNormal, gotNormal, normTol) && !equalElem(calcNormalNeg, gotNormal, normTol) {
		return ErrNormalMismatch // sometimes may fail
	}
	return nil
}

func vecFromArray(f [3]float32) ms3.Vec {
	return ms3.Vec{X: f[0], Y: f[1], Z: f[2]}
}

func (t stlTriangle) normalFromVertices() ms3.Vec {
	v1 := ms3.Scale(10, vecFromArray(t.Vertex1))
	v2 := ms3.Scale(10, vecFromArray(t.Vertex2))
	v3 := ms3.Scale(10, vecFromArray(t.Vertex3))
	e1 := ms3.Sub(v2, v1)
	e2 := ms3.Sub(v3, v1)
	return ms3.Unit(ms3.Cross(e1, e2))
}

// Triangle returns the triangle's vertices.
func (t stlTriangle) Triangle() ms3.Triangle {
	return ms3.Triangle{vecFromArray(t.Vertex1), vecFromArray(t.Vertex2), vecFromArray(t.Vertex3)}
}
