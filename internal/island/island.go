// Package island extracts 4-connected solid components from an occupancy
// grid and traces each one's boundary into a closed polygon.
package island

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
)

// Cell is an absolute grid coordinate.
type Cell struct {
	X, Y int
}

// Island is one solid component: its cells and traced outer contour, both in
// absolute grid coordinates. Islands are built once and never mutated.
type Island struct {
	Contour geom.Polygon
	Cells   []Cell

	set                    map[Cell]struct{}
	minX, minY, maxX, maxY int
	untracedEdges          int
}

// FromCells builds an island from a cell list and traces its contour.
func FromCells(cells []Cell) *Island {
	is := &Island{
		Cells: cells,
		set:   make(map[Cell]struct{}, len(cells)),
	}
	if len(cells) > 0 {
		is.minX, is.minY = cells[0].X, cells[0].Y
		is.maxX, is.maxY = cells[0].X, cells[0].Y
	}
	for _, c := range cells {
		is.set[c] = struct{}{}
		is.minX = min(is.minX, c.X)
		is.minY = min(is.minY, c.Y)
		is.maxX = max(is.maxX, c.X)
		is.maxY = max(is.maxY, c.Y)
	}
	is.Contour, is.untracedEdges = traceContour(is)
	return is
}

// Contains reports whether the absolute cell (x, y) belongs to the island.
func (is *Island) Contains(x, y int) bool {
	_, ok := is.set[Cell{x, y}]
	return ok
}

// ContainsPoint tests the cell under p.
func (is *Island) ContainsPoint(p mgl64.Vec2) bool {
	return is.Contains(int(math.Floor(p[0])), int(math.Floor(p[1])))
}

// touchEpsilon nudges sample points off grid lines so that a point lying on
// the island's own boundary reads as solid.
const touchEpsilon = 1e-3

// TouchesPoint is true when p is inside a solid cell or on the border of
// one. Boundary edges of the contour therefore never read as void.
func (is *Island) TouchesPoint(p mgl64.Vec2) bool {
	for _, dx := range [2]float64{-touchEpsilon, touchEpsilon} {
		for _, dy := range [2]float64{-touchEpsilon, touchEpsilon} {
			if is.ContainsPoint(mgl64.Vec2{p[0] + dx, p[1] + dy}) {
				return true
			}
		}
	}
	return false
}

// NearPoint is the lenient test used for long-bridge rejection: true when
// any cell of the 2×2 block whose shared corner is nearest p is solid.
func (is *Island) NearPoint(p mgl64.Vec2) bool {
	ix := int(math.Floor(p[0]))
	iy := int(math.Floor(p[1]))
	return is.Contains(ix, iy) || is.Contains(ix-1, iy) ||
		is.Contains(ix, iy-1) || is.Contains(ix-1, iy-1)
}

// Bounds returns the inclusive cell bounding box.
func (is *Island) Bounds() (minX, minY, maxX, maxY int) {
	return is.minX, is.minY, is.maxX, is.maxY
}

// Area is the raster area in cells².
func (is *Island) Area() float64 { return float64(len(is.Cells)) }

// HasHoles reports whether the component's boundary had edges outside the
// traced loop. Only the first loop is followed, so such islands have an
// incomplete contour: any enclosed void is not represented.
func (is *Island) HasHoles() bool { return is.untracedEdges > 0 }

// boundingRect is the degenerate-contour fallback.
func (is *Island) boundingRect() geom.Polygon {
	x0, y0 := float64(is.minX), float64(is.minY)
	x1, y1 := float64(is.maxX+1), float64(is.maxY+1)
	return geom.Polygon{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}}
}
