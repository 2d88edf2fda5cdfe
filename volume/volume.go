// Package volume reads and writes scalar grids in the binary volume format:
// a header of three little endian int32 dimensions nx, ny, nz followed by
// nx*ny*nz little endian float32 samples in x + y*nx + z*nx*ny order.
// Files with a .zst extension hold the same bytes compressed with zstd.
package volume

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/soypat/isosurface"
)

const (
	headerSize = 12
	// ZstdExt is the file extension that selects zstd compression.
	ZstdExt = ".zst"
	// samples decoded per read of the body.
	chunkSamples = 1 << 14
)

// ErrShortBody is returned when a volume holds fewer samples than its
// header declares.
var ErrShortBody = errors.New("volume body shorter than header dimensions")

// Read decodes a volume from r. The dimensions in the header are checked
// against the grid memory ceiling before any sample storage is allocated.
func Read(r io.Reader) (*isosurface.Grid, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.New("encountered EOF while reading volume header")
		}
		return nil, err
	}
	nx := int(int32(binary.LittleEndian.Uint32(hdr[0:])))
	ny := int(int32(binary.LittleEndian.Uint32(hdr[4:])))
	nz := int(int32(binary.LittleEndian.Uint32(hdr[8:])))
	g, err := isosurface.NewGrid(nx, ny, nz)
	if err != nil {
		return nil, fmt.Errorf("bad volume header: %w", err)
	}
	data := g.Data()
	buf := make([]byte, 4*min(len(data), chunkSamples))
	for off := 0; off < len(data); {
		n := min(len(data)-off, chunkSamples)
		if _, err := io.ReadFull(r, buf[:4*n]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: %d/%d samples read", ErrShortBody, off, len(data))
			}
			return nil, err
		}
		for i := 0; i < n; i++ {
			data[off+i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		off += n
	}
	return g, nil
}

// Write encodes g to w in the binary volume format.
func Write(w io.Writer, g *isosurface.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	nx, ny, nz := g.Dims()
	if nx > math.MaxInt32 || ny > math.MaxInt32 || nz > math.MaxInt32 {
		return errors.New("grid dimension exceeds volume format limits")
	}
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(nx))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(ny))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(nz))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	data := g.Data()
	buf := make([]byte, 4*min(len(data), chunkSamples))
	for off := 0; off < len(data); {
		n := min(len(data)-off, chunkSamples)
		for i, v := range data[off : off+n] {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
		}
		if _, err := w.Write(buf[:4*n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// Load reads the volume file at path, decompressing it if path ends in ".zst".
func Load(path string) (*isosurface.Grid, error) {
	g, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("volume: load %q: %w", path, err)
	}
	return g, nil
}

func load(path string) (*isosurface.Grid, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	var r io.Reader = bufio.NewReader(fp)
	if IsCompressed(path) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	return Read(r)
}

// Save writes g to the volume file at path, compressing it if path ends in ".zst".
func Save(path string, g *isosurface.Grid) error {
	err := save(path, g)
	if err != nil {
		return fmt.Errorf("volume: save %q: %w", path, err)
	}
	return nil
}

func save(path string, g *isosurface.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	err = encode(fp, g, IsCompressed(path))
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	return err
}

func encode(fp io.Writer, g *isosurface.Grid, compress bool) error {
	bw := bufio.NewWriter(fp)
	if !compress {
		if err := Write(bw, g); err != nil {
			return err
		}
		return bw.Flush()
	}
	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := Write(enc, g); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// IsCompressed reports whether path names a zstd compressed volume.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ZstdExt)
}
