package geom

import "math"

// Triangulate ear-clips a simple polygon of either winding. Triangles that
// come out degenerate are dropped; a polygon with no usable area yields nil.
// The outer loop is capped at n²+10 iterations so self-intersecting input
// still terminates with whatever ears were found.
func Triangulate(p Polygon) []Polygon {
	if len(p) < 3 {
		return nil
	}
	signed := p.SignedArea()
	if math.Abs(signed) < AreaEpsilon {
		return nil
	}
	ccw := signed > 0

	remaining := make([]int, len(p))
	for i := range remaining {
		remaining[i] = i
	}

	var out []Polygon
	emit := func(a, b, c int) {
		tri := Polygon{p[a], p[b], p[c]}
		if tri.Valid() {
			out = append(out, tri)
		}
	}

	maxIter := len(p)*len(p) + 10
	for iter := 0; len(remaining) > 3 && iter < maxIter; iter++ {
		found := false
		n := len(remaining)
		for i := 0; i < n; i++ {
			prev := remaining[(i-1+n)%n]
			curr := remaining[i]
			next := remaining[(i+1)%n]
			if !isEar(p, prev, curr, next, remaining, ccw) {
				continue
			}
			emit(prev, curr, next)
			remaining = append(remaining[:i], remaining[i+1:]...)
			found = true
			break
		}
		if !found {
			break
		}
	}
	if len(remaining) == 3 {
		emit(remaining[0], remaining[1], remaining[2])
	}
	return out
}

func isEar(p Polygon, prev, curr, next int, remaining []int, ccw bool) bool {
	a, b, c := p[prev], p[curr], p[next]
	turn := Cross(b.Sub(a), c.Sub(a))
	if ccw && turn <= 0 {
		return false
	}
	if !ccw && turn >= 0 {
		return false
	}
	for _, other := range remaining {
		if other == prev || other == curr || other == next {
			continue
		}
		if PointInTriangle(p[other], a, b, c) {
			return false
		}
	}
	return true
}
