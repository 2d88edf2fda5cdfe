// Package preview renders triangle meshes to images using a software
// rasterizer, for quick visual inspection of extracted isosurfaces.
package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms3"
)

// View configures the camera and output image of a preview.
// The mesh is first fit in a bi-unit cube centered at the origin,
// so camera positions are relative to that cube.
type View struct {
	Width, Height int
	// Supersampling factor used for antialiasing. Values <= 1 disable it.
	Scale  int
	Eye    ms3.Vec // camera position.
	Center ms3.Vec // view center position.
	Up     ms3.Vec // up direction.
	// Vertical field of view in degrees.
	Fovy      float64
	Near, Far float64
	// Object and background colors as hex strings.
	Color, Background string
}

// DefaultView returns an isometric-like 800x600 view of the mesh.
func DefaultView() View {
	return View{
		Width:      800,
		Height:     600,
		Scale:      2,
		Eye:        ms3.Vec{X: 3, Y: 3, Z: 3},
		Up:         ms3.Vec{Z: 1},
		Fovy:       30,
		Near:       1,
		Far:        10,
		Color:      "#468966",
		Background: "#FFF8E3",
	}
}

// Render rasterizes model as seen from view.
func Render(model []ms3.Triangle, view View) (image.Image, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, fmt.Errorf("bad preview size %dx%d", view.Width, view.Height)
	}
	scale := max(view.Scale, 1)
	mesh := fauxglMesh(model)
	var (
		eye    = fauxglVec(view.Eye)
		center = fauxglVec(view.Center)
		up     = fauxglVec(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize() // light direction
	)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	mesh.SmoothNormalsThreshold(fauxgl.Radians(30))
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.Fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	img := context.Image()
	if scale > 1 {
		// downsample image for antialiasing
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePNG renders model and writes the image to path.
func SavePNG(path string, model []ms3.Triangle, view View) error {
	img, err := Render(model, view)
	if err == nil {
		err = fauxgl.SavePNG(path, img)
	}
	if err != nil {
		return fmt.Errorf("preview %q: %w", path, err)
	}
	return nil
}

func fauxglMesh(model []ms3.Triangle) *fauxgl.Mesh {
	triangles := make([]*fauxgl.Triangle, len(model))
	for i, t := range model {
		triangles[i] = fauxgl.NewTriangleForPoints(fauxglVec(t[0]), fauxglVec(t[1]), fauxglVec(t[2]))
	}
	return fauxgl.NewTriangleMesh(triangles)
}

func fauxglVec(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
