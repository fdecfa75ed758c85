package shard

import (
	"log/slog"
	"math"
	"sort"

	"github.com/talgya/cavegen/internal/geom"
)

// EnsureConvex splits poly into convex pieces. Convex input passes through
// (after cleanup). Otherwise pieces are split along reflex-vertex diagonals
// from a FIFO work queue; at most maxIter splits happen, after which any
// remaining non-convex piece is ear-clipped. Every returned polygon has at
// least 3 vertices, positive area and passes IsConvex.
func EnsureConvex(poly geom.Polygon, maxIter int) []geom.Polygon {
	var out []geom.Polygon
	queue := []geom.Polygon{poly}
	splits := 0

	for len(queue) > 0 {
		p := geom.Clean(queue[0])
		queue = queue[1:]
		if !p.Valid() {
			continue
		}
		if p.IsConvex() {
			out = append(out, p)
			continue
		}
		if splits >= maxIter {
			out = append(out, triangulate(p)...)
			continue
		}
		a, b, ok := splitAtReflex(p)
		if !ok {
			slog.Debug("no valid diagonal, triangulating", "vertices", len(p))
			out = append(out, triangulate(p)...)
			continue
		}
		splits++
		queue = append(queue, a, b)
	}
	return out
}

func triangulate(p geom.Polygon) []geom.Polygon {
	var out []geom.Polygon
	for _, tri := range geom.Triangulate(p) {
		if tri.Valid() && tri.IsConvex() {
			out = append(out, tri)
		}
	}
	return out
}

// reflexVertices lists vertices turning against the polygon's winding.
func reflexVertices(p geom.Polygon) []int {
	winding := p.SignedArea()
	n := len(p)
	var out []int
	for i := 0; i < n; i++ {
		prev := p[(i-1+n)%n]
		next := p[(i+1)%n]
		turn := geom.Cross(p[i].Sub(prev), next.Sub(p[i]))
		if math.Abs(turn) < geom.SideEpsilon {
			continue
		}
		if (turn > 0) != (winding > 0) {
			out = append(out, i)
		}
	}
	return out
}

// splitAtReflex finds the shortest valid diagonal from a reflex vertex and
// cuts the polygon along it.
func splitAtReflex(p geom.Polygon) (geom.Polygon, geom.Polygon, bool) {
	n := len(p)
	for _, i := range reflexVertices(p) {
		candidates := make([]int, 0, n-3)
		for j := 0; j < n; j++ {
			if j == i || j == (i+1)%n || j == (i-1+n)%n {
				continue
			}
			candidates = append(candidates, j)
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			da := p[candidates[a]].Sub(p[i])
			db := p[candidates[b]].Sub(p[i])
			return da.Dot(da) < db.Dot(db)
		})

		for _, j := range candidates {
			if !validDiagonal(p, i, j) {
				continue
			}
			return splitAlong(p, i, j), splitAlong(p, j, i), true
		}
	}
	return nil, nil, false
}

// validDiagonal requires the segment i-j to cross no edge, pass through no
// other vertex and have its midpoint strictly inside.
func validDiagonal(p geom.Polygon, i, j int) bool {
	n := len(p)
	a, b := p[i], p[j]
	for k := 0; k < n; k++ {
		k2 := (k + 1) % n
		if k != i && k != j && geom.OnSegment(p[k], a, b) {
			return false
		}
		if k == i || k == j || k2 == i || k2 == j {
			continue
		}
		if geom.SegmentsCross(a, b, p[k], p[k2]) {
			return false
		}
	}
	return p.ContainsStrict(a.Add(b).Mul(0.5))
}

// splitAlong returns vertices from i to j inclusive, walking forward.
func splitAlong(p geom.Polygon, i, j int) geom.Polygon {
	n := len(p)
	out := geom.Polygon{p[i]}
	for k := (i + 1) % n; k != j; k = (k + 1) % n {
		out = append(out, p[k])
	}
	return append(out, p[j])
}
