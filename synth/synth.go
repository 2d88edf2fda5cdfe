// Package synth generates synthetic scalar fields for testing and
// benchmarking isosurface extraction. Every generated field is positive
// inside the shape and negative outside, so the surface sits at isovalue 0.
package synth

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/soypat/isosurface"
)

// FieldType selects the shape generated by Generate.
type FieldType uint8

const (
	Sphere FieldType = iota
	MultipleSpheres
	Waves
	Torus
	Combined
)

var fieldTypeNames = [...]string{
	Sphere:          "sphere",
	MultipleSpheres: "spheres",
	Waves:           "waves",
	Torus:           "torus",
	Combined:        "combined",
}

func (ft FieldType) String() string {
	if int(ft) < len(fieldTypeNames) {
		return fieldTypeNames[ft]
	}
	return fmt.Sprintf("FieldType(%d)", uint8(ft))
}

// ParseFieldType returns the FieldType named s, as printed by String.
func ParseFieldType(s string) (FieldType, error) {
	for i, name := range fieldTypeNames {
		if name == s {
			return FieldType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

const (
	wavesFrequency = 0.08
	wavesAmplitude = 10
)

// Config describes a synthetic field.
type Config struct {
	Nx, Ny, Nz int
	Type       FieldType
	// Every sample is transformed to v*Scale + Offset.
	// A zero Scale is treated as 1.
	Scale  float32
	Offset float32
	// Seed drives the random placement of MultipleSpheres.
	Seed int64
}

// NewConfig returns the configuration of an n×n×n field of type ft.
func NewConfig(n int, ft FieldType) Config {
	return Config{Nx: n, Ny: n, Nz: n, Type: ft, Scale: 1, Seed: 42}
}

// Generate allocates and fills a grid as described by cfg. The grid size is
// checked against isosurface.MaxGridBytes before allocation.
func Generate(cfg Config) (*isosurface.Grid, error) {
	g, err := isosurface.NewGrid(cfg.Nx, cfg.Ny, cfg.Nz)
	if err != nil {
		return nil, err
	}
	var f func(x, y, z float32) float32
	nx, ny, nz := float32(cfg.Nx), float32(cfg.Ny), float32(cfg.Nz)
	center := [3]float32{nx / 2, ny / 2, nz / 2}
	switch cfg.Type {
	case Sphere:
		f = sphere(center, 0.25*nx)
	case MultipleSpheres:
		f = spheres(cfg.Seed, nx, ny, nz)
	case Waves:
		f = waves(wavesFrequency, wavesAmplitude)
	case Torus:
		f = torus(center, 0.3*nx, 0.1*nx)
	case Combined:
		t := torus(center, 0.3*nx, 0.1*nx)
		s := sphere(center, 0.15*nx)
		w := waves(4*wavesFrequency, 0.03*nx)
		f = func(x, y, z float32) float32 {
			return math32.Max(t(x, y, z), s(x, y, z)) + w(x, y, z)
		}
	default:
		return nil, fmt.Errorf("unknown field type %v", cfg.Type)
	}
	scale := cfg.Scale
	if scale == 0 {
		scale = 1
	}
	g.Fill(func(x, y, z int) float32 {
		return f(float32(x), float32(y), float32(z))*scale + cfg.Offset
	})
	return g, nil
}

func sphere(c [3]float32, r float32) func(x, y, z float32) float32 {
	return func(x, y, z float32) float32 {
		return r - math32.Hypot(math32.Hypot(x-c[0], y-c[1]), z-c[2])
	}
}

// spheres returns the union of a handful of randomly placed spheres.
func spheres(seed int64, nx, ny, nz float32) func(x, y, z float32) float32 {
	rng := rand.New(rand.NewSource(seed))
	const count = 5
	var balls [count]func(x, y, z float32) float32
	for i := range balls {
		r := nx * (0.08 + 0.1*rng.Float32())
		c := [3]float32{
			nx * (0.25 + 0.5*rng.Float32()),
			ny * (0.25 + 0.5*rng.Float32()),
			nz * (0.25 + 0.5*rng.Float32()),
		}
		balls[i] = sphere(c, r)
	}
	return func(x, y, z float32) float32 {
		v := balls[0](x, y, z)
		for _, b := range balls[1:] {
			v = math32.Max(v, b(x, y, z))
		}
		return v
	}
}

func waves(freq, amp float32) func(x, y, z float32) float32 {
	return func(x, y, z float32) float32 {
		wy := math32.Cos(freq * y)
		return amp * (math32.Sin(freq*x)*wy + wy*math32.Sin(freq*z))
	}
}

// torus lies in the xy plane around c with major radius R and tube radius r.
func torus(c [3]float32, R, r float32) func(x, y, z float32) float32 {
	return func(x, y, z float32) float32 {
		q := math32.Hypot(x-c[0], y-c[1]) - R
		return r - math32.Hypot(q, z-c[2])
	}
}
