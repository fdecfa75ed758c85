package terrain

import "log/slog"

// VoidStats summarises a void-sealing pass.
type VoidStats struct {
	Total  int // 4-connected empty regions found
	Filled int // regions sealed because they never reach the edge
	Cells  int // cells converted to solid
}

// Smooth runs iterations of the 8-neighbour majority rule and optionally
// seals enclosed voids. The input grid is not modified.
//
// A cell becomes solid when at least solidThreshold of its 8 neighbours are
// solid; neighbours outside the grid count as solid so chunk edges read as
// walls.
func Smooth(g *Grid, iterations, solidThreshold int, fillIsolatedVoids bool) *Grid {
	cur := g.Clone()
	nxt := NewGrid(g.W, g.H)

	for iter := 0; iter < iterations; iter++ {
		for y := 0; y < cur.H; y++ {
			for x := 0; x < cur.W; x++ {
				nxt.cells[nxt.Index(x, y)] = countSolidNeighbors(cur, x, y) >= solidThreshold
			}
		}
		cur, nxt = nxt, cur
	}

	if fillIsolatedVoids {
		var stats VoidStats
		cur, stats = FillEnclosedVoids(cur)
		slog.Debug("voids sealed", "total", stats.Total, "filled", stats.Filled, "kept", stats.Total-stats.Filled, "cells", stats.Cells)
	}
	return cur
}

// FillEnclosedVoids seals every 4-connected empty region that never touches
// the grid's outer edge. Edge-touching regions are kept since they may
// continue into the next chunk.
func FillEnclosedVoids(g *Grid) (*Grid, VoidStats) {
	out := g.Clone()
	visited := make([]bool, len(g.cells))
	var stats VoidStats

	var queue, region [][2]int
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			idx := g.Index(x, y)
			if g.cells[idx] || visited[idx] {
				continue
			}
			stats.Total++

			queue = append(queue[:0], [2]int{x, y})
			region = region[:0]
			visited[idx] = true
			touchesBorder := false

			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				region = append(region, c)
				cx, cy := c[0], c[1]
				if cx == 0 || cx == g.W-1 || cy == 0 || cy == g.H-1 {
					touchesBorder = true
				}
				for _, d := range neighbors4 {
					nx, ny := cx+d[0], cy+d[1]
					if !g.InBounds(nx, ny) {
						continue
					}
					nidx := g.Index(nx, ny)
					if g.cells[nidx] || visited[nidx] {
						continue
					}
					visited[nidx] = true
					queue = append(queue, [2]int{nx, ny})
				}
			}

			if touchesBorder {
				continue
			}
			for _, c := range region {
				out.cells[out.Index(c[0], c[1])] = true
			}
			stats.Filled++
			stats.Cells += len(region)
		}
	}
	return out, stats
}

var neighbors4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func countSolidNeighbors(g *Grid, x, y int) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !g.InBounds(nx, ny) || g.cells[g.Index(nx, ny)] {
				count++
			}
		}
	}
	return count
}
