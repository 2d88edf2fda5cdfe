package render

import (
	"io"

	"github.com/soypat/glgl/math/ms3"
)

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.ReadAll implementation.
func RenderAll(r Renderer) ([]ms3.Triangle, error) {
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, 1024)
	buf := make([]ms3.Triangle, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		result = append(result, buf[:nt]...)
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// SliceRenderer returns a Renderer that streams the triangles of model.
func SliceRenderer(model []ms3.Triangle) Renderer {
	return &triangle3Buffer{buf: model}
}

type triangle3Buffer struct {
	buf []ms3.Triangle
}

// Read reads from this buffer.
func (b *triangle3Buffer) Read(t []ms3.Triangle) int {
	n := copy(t, b.buf)
	b.buf = b.buf[n:]
	return n
}

// Write appends triangles to this buffer.
func (b *triangle3Buffer) Write(t []ms3.Triangle) int {
	b.buf = append(b.buf, t...)
	return len(t)
}

func (b *triangle3Buffer) Len() int { return len(b.buf) }

// ReadTriangles implements Renderer.
func (b *triangle3Buffer) ReadTriangles(dst []ms3.Triangle) (int, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	return b.Read(dst), nil
}
