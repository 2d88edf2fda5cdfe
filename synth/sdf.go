package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

// Sampling maps grid coordinates of a sampled SDF back to model space.
type Sampling struct {
	Origin  ms3.Vec // model space position of sample (0,0,0).
	Spacing float32 // distance between neighbouring samples.
}

// ToWorld returns the model space position of grid point p.
func (s Sampling) ToWorld(p ms3.Vec) ms3.Vec {
	return ms3.Add(s.Origin, ms3.Scale(s.Spacing, p))
}

// Transform converts the vertices of model from grid to model space in place.
func (s Sampling) Transform(model []ms3.Triangle) {
	for i := range model {
		for j := range model[i] {
			model[i][j] = s.ToWorld(model[i][j])
		}
	}
}

// SampleSDF samples s on a regular grid covering its bounding box plus one
// sample of margin on every side, so the extracted surface is closed.
// n is the amount of samples along the longest side of the bounding box;
// the other axes use the same spacing. Samples hold the negated signed
// distance so the field is positive inside the solid.
func SampleSDF(s sdf.SDF3, n int) (*isosurface.Grid, Sampling, error) {
	if s == nil {
		return nil, Sampling{}, errors.New("nil SDF")
	}
	if n < 4 {
		return nil, Sampling{}, fmt.Errorf("need at least 4 samples along longest axis, got %d", n)
	}
	bb := s.BoundingBox()
	size := bb.Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	if !(longest > 0) || math.IsInf(longest, 0) {
		return nil, Sampling{}, fmt.Errorf("bad SDF bounding box %v", bb)
	}
	spacing := longest / float64(n-3)
	axisSamples := func(l float64) int { return int(math.Ceil(l/spacing)) + 3 }
	nx, ny, nz := axisSamples(size.X), axisSamples(size.Y), axisSamples(size.Z)
	g, err := isosurface.NewGrid(nx, ny, nz)
	if err != nil {
		return nil, Sampling{}, err
	}
	origin := bb.Min.Sub(v3.Vec{X: spacing, Y: spacing, Z: spacing})
	g.Fill(func(x, y, z int) float32 {
		p := v3.Vec{
			X: origin.X + spacing*float64(x),
			Y: origin.Y + spacing*float64(y),
			Z: origin.Z + spacing*float64(z),
		}
		return float32(-s.Evaluate(p))
	})
	return g, Sampling{
		Origin:  ms3.Vec{X: float32(origin.X), Y: float32(origin.Y), Z: float32(origin.Z)},
		Spacing: float32(spacing),
	}, nil
}

// Shape returns a named sdfx solid of characteristic size size:
// "box", "sphere", "cylinder" or "csg", a rounded box with a spherical
// cavity and a cylindrical hole drilled through it.
func Shape(name string, size float64) (sdf.SDF3, error) {
	if size <= 0 {
		return nil, errors.New("shape size must be positive")
	}
	switch name {
	case "box":
		return sdf.Box3D(v3.Vec{X: size, Y: 0.75 * size, Z: 0.5 * size}, 0.05*size)
	case "sphere":
		return sdf.Sphere3D(size / 2)
	case "cylinder":
		return sdf.Cylinder3D(size, size/4, 0.02*size)
	case "csg":
		box, err := sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0.1*size)
		if err != nil {
			return nil, err
		}
		cavity, err := sdf.Sphere3D(0.35 * size)
		if err != nil {
			return nil, err
		}
		hole, err := sdf.Cylinder3D(2*size, 0.2*size, 0)
		if err != nil {
			return nil, err
		}
		return sdf.Difference3D(box, sdf.Union3D(cavity, hole)), nil
	}
	return nil, fmt.Errorf("unknown shape %q", name)
}
