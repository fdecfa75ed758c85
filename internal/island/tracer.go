package island

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/terrain"
)

// simplifyEpsilon is the collinearity tolerance for contour simplification.
const simplifyEpsilon = 1e-3

// Extract flood-fills every 4-connected solid component of g and returns
// them as islands translated by (offsetX, offsetY).
func Extract(g *terrain.Grid, offsetX, offsetY int) []*Island {
	visited := make([]bool, g.W*g.H)
	var islands []*Island

	// Column-major scan: the first cell of a component is its top cell in
	// the leftmost column, whose left side is always on the outer boundary.
	for x := 0; x < g.W; x++ {
		for y := 0; y < g.H; y++ {
			if !g.Solid(x, y) || visited[g.Index(x, y)] {
				continue
			}
			local := floodFill(g, visited, x, y)
			cells := make([]Cell, len(local))
			for i, c := range local {
				cells[i] = Cell{c.X + offsetX, c.Y + offsetY}
			}
			islands = append(islands, FromCells(cells))
		}
	}
	return islands
}

func floodFill(g *terrain.Grid, visited []bool, startX, startY int) []Cell {
	var cells []Cell
	queue := []Cell{{startX, startY}}
	visited[g.Index(startX, startY)] = true

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		cells = append(cells, c)

		for _, n := range [4]Cell{{c.X + 1, c.Y}, {c.X - 1, c.Y}, {c.X, c.Y + 1}, {c.X, c.Y - 1}} {
			if !g.Solid(n.X, n.Y) || visited[g.Index(n.X, n.Y)] {
				continue
			}
			visited[g.Index(n.X, n.Y)] = true
			queue = append(queue, n)
		}
	}
	return cells
}

type edge struct {
	from, to mgl64.Vec2
}

type pointKey struct {
	x, y int64
}

func keyOf(p mgl64.Vec2) pointKey {
	return pointKey{int64(math.Round(p[0] * 1000)), int64(math.Round(p[1] * 1000))}
}

// boundaryEdges emits one unit edge per cell side not shared with another
// cell of the island. Edges run so the solid side is always on the same
// hand, which makes every outer loop wind the same way.
func boundaryEdges(is *Island) []edge {
	var edges []edge
	for _, c := range is.Cells {
		x, y := float64(c.X), float64(c.Y)
		if !is.Contains(c.X-1, c.Y) {
			edges = append(edges, edge{mgl64.Vec2{x, y}, mgl64.Vec2{x, y + 1}})
		}
		if !is.Contains(c.X+1, c.Y) {
			edges = append(edges, edge{mgl64.Vec2{x + 1, y + 1}, mgl64.Vec2{x + 1, y}})
		}
		if !is.Contains(c.X, c.Y-1) {
			edges = append(edges, edge{mgl64.Vec2{x + 1, y}, mgl64.Vec2{x, y}})
		}
		if !is.Contains(c.X, c.Y+1) {
			edges = append(edges, edge{mgl64.Vec2{x, y + 1}, mgl64.Vec2{x + 1, y + 1}})
		}
	}
	return edges
}

// traceContour stitches the boundary edges into the first closed loop and
// simplifies it. It also returns how many boundary edges were left over.
func traceContour(is *Island) (geom.Polygon, int) {
	if len(is.Cells) == 0 {
		return nil, 0
	}
	edges := boundaryEdges(is)
	if len(edges) == 0 {
		return is.boundingRect(), 0
	}

	byStart := make(map[pointKey][]int, len(edges))
	for i, e := range edges {
		k := keyOf(e.from)
		byStart[k] = append(byStart[k], i)
	}

	first := outerEdge(is, edges)
	used := make([]bool, len(edges))
	used[first] = true
	usedCount := 1
	start := edges[first].from
	loop := geom.Polygon{start}
	prevDir := edges[first].to.Sub(edges[first].from)
	current := edges[first].to

	for steps := 0; steps <= len(edges); steps++ {
		if keyOf(current) == keyOf(start) {
			break
		}
		loop = append(loop, current)

		next := pickNext(edges, byStart[keyOf(current)], used, prevDir)
		if next < 0 {
			break
		}
		used[next] = true
		usedCount++
		prevDir = edges[next].to.Sub(edges[next].from)
		current = edges[next].to
	}

	simplified := simplify(loop)
	if len(simplified) < 3 {
		return is.boundingRect(), len(edges) - usedCount
	}
	return simplified, len(edges) - usedCount
}

// outerEdge returns the left edge of the lowest (X, Y) cell. Nothing lies
// further left, so that edge is always on the outer loop whatever order the
// cells came in.
func outerEdge(is *Island, edges []edge) int {
	lo := is.Cells[0]
	for _, c := range is.Cells[1:] {
		if c.X < lo.X || (c.X == lo.X && c.Y < lo.Y) {
			lo = c
		}
	}
	from := mgl64.Vec2{float64(lo.X), float64(lo.Y)}
	to := mgl64.Vec2{float64(lo.X), float64(lo.Y + 1)}
	for i, e := range edges {
		if e.from == from && e.to == to {
			return i
		}
	}
	return 0
}

// pickNext chooses among unused edges leaving the current point. At a pinch
// vertex two edges leave the same corner; turning toward the solid side
// keeps the loop from crossing itself.
func pickNext(edges []edge, candidates []int, used []bool, prevDir mgl64.Vec2) int {
	best := -1
	bestRank := math.MaxInt
	for _, idx := range candidates {
		if used[idx] {
			continue
		}
		dir := edges[idx].to.Sub(edges[idx].from)
		rank := turnRank(prevDir, dir)
		if rank < bestRank {
			best, bestRank = idx, rank
		}
	}
	return best
}

// turnRank orders turns: toward the solid side first, then straight, then
// away. Solid lies on the negative-cross side of every edge.
func turnRank(in, out mgl64.Vec2) int {
	c := geom.Cross(in, out)
	switch {
	case c < 0:
		return 0
	case c == 0 && in.Dot(out) > 0:
		return 1
	case c > 0:
		return 2
	}
	return 3
}

// simplify drops vertices collinear with both neighbours. Axis-aligned
// staircases lose only the midpoints of straight runs.
func simplify(vertices geom.Polygon) geom.Polygon {
	n := len(vertices)
	if n < 3 {
		return vertices
	}
	out := make(geom.Polygon, 0, n)
	for i := 0; i < n; i++ {
		prev := vertices[(i-1+n)%n]
		curr := vertices[i]
		next := vertices[(i+1)%n]
		if math.Abs(geom.Cross(curr.Sub(prev), next.Sub(prev))) < simplifyEpsilon {
			continue
		}
		out = append(out, curr)
	}
	return out
}
