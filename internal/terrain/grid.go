// Package terrain holds the occupancy grid and the cellular automaton that
// turns thresholded noise into smooth cave walls.
package terrain

// Grid is a W×H occupancy raster stored row-major. true means solid rock.
type Grid struct {
	W, H  int
	cells []bool
}

// NewGrid allocates an all-empty grid.
func NewGrid(w, h int) *Grid {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &Grid{W: w, H: h, cells: make([]bool, w*h)}
}

// Sampler is anything that yields noise in [-1, 1] at a point.
type Sampler interface {
	Sample(x, y float64) float32
}

// BuildGrid thresholds the sampler over a w×h region starting at
// (startX, startY). A cell is solid when its noise, remapped to [0, 1],
// is below threshold: caves open where noise is high.
func BuildGrid(s Sampler, startX, startY, w, h int, threshold float64) *Grid {
	g := NewGrid(w, h)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := float64(s.Sample(float64(startX+x), float64(startY+y)))
			g.cells[g.Index(x, y)] = (v+1)/2 < threshold
		}
	}
	return g
}

// Index returns the linear slice index for (x, y).
func (g *Grid) Index(x, y int) int { return y*g.W + x }

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H
}

// Solid returns the cell value; out-of-bounds reads as empty.
func (g *Grid) Solid(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.cells[g.Index(x, y)]
}

// Set writes a cell; out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, solid bool) {
	if g.InBounds(x, y) {
		g.cells[g.Index(x, y)] = solid
	}
}

// Cells exposes the backing slice.
func (g *Grid) Cells() []bool { return g.cells }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, cells: make([]bool, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Equal reports whether both grids have the same shape and contents.
func (g *Grid) Equal(o *Grid) bool {
	if o == nil || g.W != o.W || g.H != o.H {
		return false
	}
	for i, v := range g.cells {
		if o.cells[i] != v {
			return false
		}
	}
	return true
}

// SolidCount returns the number of solid cells.
func (g *Grid) SolidCount() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// FromRows builds a grid from strings where '#' is solid. Handy in tests and
// for hand-authored fixtures.
func FromRows(rows ...string) *Grid {
	h := len(rows)
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	g := NewGrid(w, h)
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			g.Set(x, y, r[x] == '#')
		}
	}
	return g
}
