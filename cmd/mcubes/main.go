// Command mcubes generates scalar field volumes and extracts their
// isosurfaces with marching cubes.
//
// Usage:
//
//	mcubes gen [-type sphere|spheres|waves|torus|combined] [-sdf box|sphere|cylinder|csg] [-n 32] -o field.bin
//	mcubes info [-hist hist.png] field.bin
//	mcubes extract [-iso 0] [-workers N] [-block B] [-padded] [-o mesh.stl|mesh.glb] [-png preview.png] field.bin
//
// Volume files ending in .zst are zstd compressed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
	"github.com/soypat/isosurface/preview"
	"github.com/soypat/isosurface/render"
	"github.com/soypat/isosurface/synth"
	"github.com/soypat/isosurface/volume"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mcubes: ")
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "gen":
		err = gen(args)
	case "info":
		err = info(args)
	case "extract":
		err = extract(args)
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mcubes gen|info|extract [flags] [file]")
	fmt.Fprintln(os.Stderr, "run 'mcubes <command> -h' for command flags")
	os.Exit(2)
}

func gen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	var (
		typ    = fs.String("type", "sphere", "field type: sphere, spheres, waves, torus or combined")
		shape  = fs.String("sdf", "", "sample an sdfx solid instead: box, sphere, cylinder or csg; only -n and -o apply and the volume is in grid units")
		n      = fs.Int("n", 32, "samples along each axis")
		nx     = fs.Int("nx", 0, "samples along x, overrides -n")
		ny     = fs.Int("ny", 0, "samples along y, overrides -n")
		nz     = fs.Int("nz", 0, "samples along z, overrides -n")
		scale  = fs.Float64("scale", 1, "sample scale factor")
		offset = fs.Float64("offset", 0, "sample offset added after scaling")
		seed   = fs.Int64("seed", 42, "random seed for multiple spheres")
		output = fs.String("o", "field.bin", "output volume file")
	)
	fs.Parse(args)

	var (
		g   *isosurface.Grid
		err error
	)
	start := time.Now()
	if *shape != "" {
		if err := sdfFlagConflicts(fs); err != nil {
			return err
		}
		s, err := synth.Shape(*shape, 1)
		if err != nil {
			return err
		}
		var sampling synth.Sampling
		g, sampling, err = synth.SampleSDF(s, *n)
		if err != nil {
			return err
		}
		log.Printf("sampled %s: origin %v spacing %g", *shape, sampling.Origin, sampling.Spacing)
	} else {
		ft, err := synth.ParseFieldType(*typ)
		if err != nil {
			return err
		}
		cfg := synth.NewConfig(*n, ft)
		cfg.Nx, cfg.Ny, cfg.Nz = orDefault(*nx, *n), orDefault(*ny, *n), orDefault(*nz, *n)
		cfg.Scale, cfg.Offset, cfg.Seed = float32(*scale), float32(*offset), *seed
		g, err = synth.Generate(cfg)
		if err != nil {
			return err
		}
	}
	err = volume.Save(*output, g)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %v (%s)\n", *output, g.Stats(), time.Since(start).Round(time.Millisecond))
	return nil
}

func info(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var (
		hist = fs.String("hist", "", "write a histogram of the samples to this image file")
		bins = fs.Int("bins", 64, "histogram bins")
	)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("info: expected one volume file, got %d", fs.NArg())
	}
	g, err := volume.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	nx, ny, nz := g.Dims()
	st := g.Stats()
	fmt.Printf("dimensions: %dx%dx%d\n", nx, ny, nz)
	fmt.Printf("samples:    %d\n", st.Count)
	fmt.Printf("range:      [%g, %g]\n", st.Min, st.Max)
	fmt.Printf("mean:       %g\n", st.Mean)
	fmt.Printf("memory:     %.2f MiB\n", float64(st.Bytes)/(1<<20))
	if *hist != "" {
		return volume.SaveHistogram(*hist, g, *bins)
	}
	return nil
}

func extract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var (
		iso     = fs.Float64("iso", 0, "isovalue")
		workers = fs.Int("workers", 1, "extraction goroutines, 0 uses all CPUs")
		block   = fs.Int("block", render.DefaultBlockSize, "cube layers per parallel work block")
		padded  = fs.Bool("padded", false, "march the cubes straddling the grid faces against a zero ghost layer")
		output  = fs.String("o", "", "output mesh file (.stl or .glb)")
		png     = fs.String("png", "", "output preview image")
		verbose = fs.Bool("v", false, "log extraction diagnostics")
	)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("extract: expected one volume file, got %d", fs.NArg())
	}
	g, err := volume.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	boundary := render.BoundaryInterior
	if *padded {
		boundary = render.BoundaryPadded
	}

	start := time.Now()
	var model []ms3.Triangle
	if *workers == 1 {
		mc := render.NewMarchingCubes(g, float32(*iso))
		mc.SetBoundary(boundary)
		if *verbose {
			mc.SetLogger(log.Default())
		}
		model, err = mc.Extract()
	} else {
		pmc := render.NewParallelMarchingCubes(g, float32(*iso), *workers)
		pmc.BlockSize = *block
		pmc.SetBoundary(boundary)
		if *verbose {
			pmc.SetLogger(log.Default())
		}
		model, err = pmc.Extract()
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	mesh := render.Weld(model, 1e-4)
	fmt.Printf("triangles:  %d\n", len(model))
	fmt.Printf("vertices:   %d (welded)\n", len(mesh.Vertices))
	fmt.Printf("watertight: %v\n", mesh.IsWatertight())
	fmt.Printf("digest:     %016x\n", render.Digest(model))
	fmt.Printf("time:       %s\n", elapsed.Round(time.Microsecond))
	if len(model) > 0 {
		fmt.Printf("bounds:     %v\n", render.Bounds(model))
	}

	if *output != "" {
		if len(model) == 0 {
			return fmt.Errorf("extract: no surface at isovalue %g, %s not written", *iso, *output)
		}
		switch ext := strings.ToLower(filepath.Ext(*output)); ext {
		case ".stl":
			err = render.CreateSTL(*output, render.SliceRenderer(model))
		case ".glb":
			err = render.SaveGLB(*output, model)
		default:
			err = fmt.Errorf("extract: unsupported mesh format %q", ext)
		}
		if err != nil {
			return err
		}
	}
	if *png != "" && len(model) > 0 {
		return preview.SavePNG(*png, model, preview.DefaultView())
	}
	return nil
}

// sdfFlagConflicts returns an error naming the generator flags that were set
// on fs alongside -sdf, which sizes its grid from -n alone.
func sdfFlagConflicts(fs *flag.FlagSet) error {
	var ignored []string
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type", "nx", "ny", "nz", "scale", "offset", "seed":
			ignored = append(ignored, "-"+f.Name)
		}
	})
	if len(ignored) > 0 {
		return fmt.Errorf("gen: %s cannot be used with -sdf", strings.Join(ignored, ", "))
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
