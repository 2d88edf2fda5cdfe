package render

import (
	"log"
	"runtime"
	"sync"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurface"
)

// DefaultBlockSize is the amount of cube layers along z in each block of
// work handed to a ParallelMarchingCubes worker.
const DefaultBlockSize = 4

// ParallelMarchingCubes extracts an isosurface with several goroutines.
// The grid is partitioned into blocks of cube layers along z. A first pass
// counts the triangles of every block so that the second pass can have each
// worker write straight into its own window of an exactly sized result.
// The result is identical, including order, to MarchingCubes.Extract.
type ParallelMarchingCubes struct {
	mc MarchingCubes
	// Workers is the amount of goroutines used. Values <= 0 use runtime.NumCPU().
	Workers int
	// BlockSize is the amount of cube layers along z per block.
	// Values <= 0 use DefaultBlockSize.
	BlockSize int
}

// NewParallelMarchingCubes returns a parallel extractor using workers goroutines.
func NewParallelMarchingCubes(field isosurface.Field, iso float32, workers int) *ParallelMarchingCubes {
	return &ParallelMarchingCubes{
		mc:      MarchingCubes{field: field, iso: iso},
		Workers: workers,
	}
}

// Configure sets the field and isovalue for subsequent extractions.
func (pmc *ParallelMarchingCubes) Configure(field isosurface.Field, iso float32) {
	pmc.mc.Configure(field, iso)
}

// SetBoundary selects which cubes are marched. The default is BoundaryInterior.
func (pmc *ParallelMarchingCubes) SetBoundary(b Boundary) { pmc.mc.SetBoundary(b) }

// SetLogger sets a logger that receives extraction diagnostics.
func (pmc *ParallelMarchingCubes) SetLogger(l *log.Logger) { pmc.mc.SetLogger(l) }

// Extract returns the triangles of the isosurface. On an invalid
// configuration it returns an empty result and an error wrapping ErrInvalidField.
func (pmc *ParallelMarchingCubes) Extract() ([]ms3.Triangle, error) {
	lo, hi, err := pmc.mc.cubeRange()
	if err != nil {
		return nil, err
	}
	blocks := pmc.blocks(lo, hi)
	if len(blocks) == 0 {
		return nil, nil
	}
	field, iso := pmc.mc.field, pmc.mc.iso

	// First pass: triangle count per block.
	counts := make([]int, len(blocks))
	pmc.run(len(blocks), func(i int) {
		counts[i] = countCubes(field, blocks[i].lo, blocks[i].hi, iso)
	})
	// Exclusive prefix sum gives each block its output offset.
	offsets := make([]int, len(blocks)+1)
	for i, c := range counts {
		offsets[i+1] = offsets[i] + c
	}
	result := make([]ms3.Triangle, offsets[len(blocks)])

	// Second pass: every block writes to a disjoint window of result.
	pmc.run(len(blocks), func(i int) {
		dst := result[offsets[i]:offsets[i+1]]
		var buf [marchingCubesMaxTriangles]ms3.Triangle
		n := 0
		b := blocks[i]
		var c ivec
		for c.z = b.lo.z; c.z < b.hi.z; c.z++ {
			for c.y = b.lo.y; c.y < b.hi.y; c.y++ {
				for c.x = b.lo.x; c.x < b.hi.x; c.x++ {
					nt := mcToTriangles(buf[:], field, c, iso)
					n += copy(dst[n:], buf[:nt])
				}
			}
		}
		if n != len(dst) {
			panic("bug: parallel marching cubes block count mismatch")
		}
	})
	return result, nil
}

// Count returns the amount of triangles Extract would produce.
func (pmc *ParallelMarchingCubes) Count() (int, error) {
	lo, hi, err := pmc.mc.cubeRange()
	if err != nil {
		return 0, err
	}
	blocks := pmc.blocks(lo, hi)
	counts := make([]int, len(blocks))
	pmc.run(len(blocks), func(i int) {
		counts[i] = countCubes(pmc.mc.field, blocks[i].lo, blocks[i].hi, pmc.mc.iso)
	})
	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}

type cubeBlock struct {
	lo, hi ivec
}

// blocks partitions the cube range [lo,hi) into slabs along z.
func (pmc *ParallelMarchingCubes) blocks(lo, hi ivec) []cubeBlock {
	if hi.x <= lo.x || hi.y <= lo.y || hi.z <= lo.z {
		return nil
	}
	size := pmc.BlockSize
	if size <= 0 {
		size = DefaultBlockSize
	}
	blocks := make([]cubeBlock, 0, (hi.z-lo.z+size-1)/size)
	for z := lo.z; z < hi.z; z += size {
		b := cubeBlock{lo: lo, hi: hi}
		b.lo.z = z
		b.hi.z = min(z+size, hi.z)
		blocks = append(blocks, b)
	}
	return blocks
}

// run calls job for every block index in [0,n) using the configured workers.
func (pmc *ParallelMarchingCubes) run(n int, job func(i int)) {
	workers := pmc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, n)
	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				job(i)
			}
		}()
	}
	wg.Wait()
}
