package isosurface

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Stats summarizes the samples of a Grid.
type Stats struct {
	Min, Max float32
	Mean     float64
	Count    int

	// Bytes is the memory used by the samples.
	Bytes int
}

func (s Stats) String() string {
	return fmt.Sprintf("min=%.2f max=%.2f mean=%.2f samples=%d mem=%dMiB",
		s.Min, s.Max, s.Mean, s.Count, s.Bytes>>20)
}

// Stats computes the minimum, maximum and mean of the grid's samples.
// An empty grid returns the zero Stats.
func (g *Grid) Stats() Stats {
	if g == nil || len(g.data) == 0 {
		return Stats{}
	}
	st := Stats{
		Min:   g.data[0],
		Max:   g.data[0],
		Count: len(g.data),
		Bytes: len(g.data) * sizeofSample,
	}
	var sum float64
	for _, v := range g.data {
		st.Min = math32.Min(st.Min, v)
		st.Max = math32.Max(st.Max, v)
		sum += float64(v)
	}
	st.Mean = sum / float64(len(g.data))
	return st
}
