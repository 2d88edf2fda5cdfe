package volume

import (
	"errors"
	"fmt"

	"github.com/soypat/isosurface"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram returns a plot of the distribution of the samples of g in bins bins.
func Histogram(g *isosurface.Grid, bins int) (*plot.Plot, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if bins <= 0 {
		return nil, errors.New("histogram needs at least one bin")
	}
	data := g.Data()
	values := make(plotter.Values, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, err
	}
	nx, ny, nz := g.Dims()
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%dx%dx%d sample distribution", nx, ny, nz)
	p.X.Label.Text = "value"
	p.Y.Label.Text = "samples"
	p.Add(h)
	return p, nil
}

// SaveHistogram writes the sample histogram of g to path. The image format
// is chosen from the file extension (.png, .svg, .pdf, ...).
func SaveHistogram(path string, g *isosurface.Grid, bins int) error {
	p, err := Histogram(g, bins)
	if err == nil {
		err = p.Save(6*vg.Inch, 4*vg.Inch, path)
	}
	if err != nil {
		return fmt.Errorf("volume: histogram %q: %w", path, err)
	}
	return nil
}
