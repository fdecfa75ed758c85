// Package noise provides the deterministic fractal noise field that drives
// cave generation. A Field is a pure function of (seed, frequency, octaves,
// x, y): the same parameters always produce bit-identical samples.
package noise

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Kind selects the coherent noise backend.
type Kind string

const (
	KindOpenSimplex Kind = "opensimplex"
	KindPerlin      Kind = "perlin"
)

// fBm weighting.
const (
	lacunarity  = 2.0
	persistence = 0.5
)

// layer evaluates single-octave coherent noise in roughly [-1, 1].
type layer interface {
	Eval2(x, y float64) float64
}

// perlinLayer adapts go-perlin to the layer contract. Its single-octave
// output spans about ±√2/2, so it is rescaled before fBm summation.
type perlinLayer struct {
	p *perlin.Perlin
}

func (l perlinLayer) Eval2(x, y float64) float64 {
	return l.p.Noise2D(x, y) * math.Sqrt2
}

// Field samples multi-octave fBm noise.
type Field struct {
	kind      Kind
	seed      int64
	frequency float64
	octaves   int
	layers    []layer
}

// New builds a field. Each octave gets its own generator seeded from seed so
// octaves do not share lattice artefacts.
func New(kind Kind, seed int64, frequency float64, octaves int) (*Field, error) {
	if octaves < 1 {
		return nil, fmt.Errorf("noise: octaves must be >= 1, got %d", octaves)
	}
	if frequency <= 0 {
		return nil, fmt.Errorf("noise: frequency must be > 0, got %g", frequency)
	}

	f := &Field{kind: kind, seed: seed, frequency: frequency, octaves: octaves}
	for i := 0; i < octaves; i++ {
		octaveSeed := seed + int64(i)*1013
		switch kind {
		case KindOpenSimplex, "":
			f.layers = append(f.layers, opensimplex.New(octaveSeed))
		case KindPerlin:
			f.layers = append(f.layers, perlinLayer{p: perlin.NewPerlin(2, 2, 1, octaveSeed)})
		default:
			return nil, fmt.Errorf("noise: unknown kind %q", kind)
		}
	}
	if f.kind == "" {
		f.kind = KindOpenSimplex
	}
	return f, nil
}

// Kind returns the backend in use.
func (f *Field) Kind() Kind { return f.kind }

// Sample returns the fBm value at (x, y), clamped to [-1, 1].
func (f *Field) Sample(x, y float64) float32 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	freq := f.frequency

	for _, l := range f.layers {
		total += l.Eval2(x*freq, y*freq) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		freq *= lacunarity
	}

	v := total / maxVal
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return float32(v)
}

// Raster samples a w×h block starting at (startX, startY) in row-major order.
func (f *Field) Raster(startX, startY, w, h int) []float32 {
	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = f.Sample(float64(startX+x), float64(startY+y))
		}
	}
	return out
}
