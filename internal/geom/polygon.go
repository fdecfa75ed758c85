// Package geom provides the planar polygon primitives shared by the shard
// pipeline: areas, centroids, convexity, half-plane and edge clipping.
// Points are mgl64.Vec2; polygons are closed implicitly (last → first).
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Tolerances are stratified by operation. Do not merge them.
const (
	SideEpsilon      = 1e-6  // side-of-line and convexity tests
	IntersectEpsilon = 1e-10 // line intersection denominators
	AreaEpsilon      = 1e-6  // minimum polygon area worth keeping
)

// Polygon is an ordered vertex loop.
type Polygon []mgl64.Vec2

// Cross returns the z component of a×b.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// Side reports which side of the directed line a→b the point p lies on.
// Positive is left of the line in a y-up frame.
func Side(p, a, b mgl64.Vec2) float64 {
	return Cross(b.Sub(a), p.Sub(a))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Clone returns an independent copy.
func (p Polygon) Clone() Polygon {
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// SignedArea is positive for counter-clockwise loops in a y-up frame.
func (p Polygon) SignedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return area / 2
}

// Area returns the absolute enclosed area.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// Valid reports whether the polygon can be used as a collision fixture.
func (p Polygon) Valid() bool {
	return len(p) >= 3 && p.Area() > AreaEpsilon
}

// VertexCentroid is the average of the vertices.
func (p Polygon) VertexCentroid() mgl64.Vec2 {
	var sum mgl64.Vec2
	if len(p) == 0 {
		return sum
	}
	for _, v := range p {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(p)))
}

// Centroid returns the area centroid, falling back to the vertex average
// for degenerate loops.
func (p Polygon) Centroid() mgl64.Vec2 {
	n := len(p)
	var area, cx, cy float64
	for i := 0; i < n; i++ {
		curr := p[i]
		next := p[(i+1)%n]
		c := curr[0]*next[1] - next[0]*curr[1]
		area += c
		cx += (curr[0] + next[0]) * c
		cy += (curr[1] + next[1]) * c
	}
	area *= 0.5
	if math.Abs(area) < IntersectEpsilon {
		return p.VertexCentroid()
	}
	return mgl64.Vec2{cx / (6 * area), cy / (6 * area)}
}

// Translate returns the polygon shifted by d.
func (p Polygon) Translate(d mgl64.Vec2) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(d)
	}
	return out
}

// Scale returns the polygon with every coordinate multiplied by s.
func (p Polygon) Scale(s float64) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Mul(s)
	}
	return out
}

// Bounds returns the axis-aligned bounding box.
func (p Polygon) Bounds() (min, max mgl64.Vec2) {
	if len(p) == 0 {
		return
	}
	min, max = p[0], p[0]
	for _, v := range p[1:] {
		min = mgl64.Vec2{math.Min(min[0], v[0]), math.Min(min[1], v[1])}
		max = mgl64.Vec2{math.Max(max[0], v[0]), math.Max(max[1], v[1])}
	}
	return
}

// IsConvex reports whether consecutive edge turns never change sign.
// Collinear edges are ignored.
func (p Polygon) IsConvex() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	dir := 0
	for i := 0; i < n; i++ {
		a := p[i]
		b := p[(i+1)%n]
		c := p[(i+2)%n]
		turn := Cross(b.Sub(a), c.Sub(b))
		if math.Abs(turn) < SideEpsilon {
			continue
		}
		s := sign(turn)
		if dir == 0 {
			dir = s
		} else if s != dir {
			return false
		}
	}
	return dir != 0
}

// IsSimple reports whether no two non-adjacent edges intersect.
func (p Polygon) IsSimple() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := p[i], p[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := p[j], p[(j+1)%n]
			if SegmentsTouch(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

// Clean drops repeated vertices and collinear runs until stable. Zero-width
// spikes collapse because their tip is collinear with its neighbours.
func Clean(p Polygon) Polygon {
	out := p.Clone()
	for pass := 0; pass < len(p)+1; pass++ {
		changed := false
		n := len(out)
		if n < 3 {
			return out
		}
		kept := make(Polygon, 0, n)
		for i := 0; i < n; i++ {
			prev := out[(i-1+n)%n]
			if len(kept) > 0 {
				prev = kept[len(kept)-1]
			}
			curr := out[i]
			next := out[(i+1)%n]
			if curr.Sub(prev).Len() < SideEpsilon {
				changed = true
				continue
			}
			if math.Abs(Cross(curr.Sub(prev), next.Sub(curr))) < SideEpsilon {
				changed = true
				continue
			}
			kept = append(kept, curr)
		}
		out = kept
		if !changed {
			break
		}
	}
	return out
}
