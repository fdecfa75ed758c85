package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LineIntersect intersects the infinite lines through a1-a2 and b1-b2.
// ok is false when the lines are parallel.
func LineIntersect(a1, a2, b1, b2 mgl64.Vec2) (p mgl64.Vec2, ok bool) {
	d1 := a2.Sub(a1)
	d2 := b2.Sub(b1)
	denom := Cross(d1, d2)
	if math.Abs(denom) < IntersectEpsilon {
		return p, false
	}
	t := Cross(b1.Sub(a1), d2) / denom
	return a1.Add(d1.Mul(t)), true
}

// ClipHalfPlane keeps the part of p where dot(v-point, normal) >= 0.
// Used to cut Voronoi cells along perpendicular bisectors.
func ClipHalfPlane(p Polygon, point, normal mgl64.Vec2) Polygon {
	if len(p) < 3 {
		return p
	}
	out := make(Polygon, 0, len(p)+1)
	n := len(p)
	for i := 0; i < n; i++ {
		curr := p[i]
		next := p[(i+1)%n]
		currDist := curr.Sub(point).Dot(normal)
		nextDist := next.Sub(point).Dot(normal)

		if currDist >= 0 {
			out = append(out, curr)
			if nextDist < 0 {
				out = append(out, planeIntersect(curr, next, point, normal))
			}
		} else if nextDist >= 0 {
			out = append(out, planeIntersect(curr, next, point, normal))
		}
	}
	return out
}

func planeIntersect(a, b, point, normal mgl64.Vec2) mgl64.Vec2 {
	d := b.Sub(a)
	denom := d.Dot(normal)
	if math.Abs(denom) < IntersectEpsilon {
		return a
	}
	t := point.Sub(a).Dot(normal) / denom
	return a.Add(d.Mul(t))
}

// ClipByEdge is one Sutherland–Hodgman step: it keeps the part of p lying
// on the same side of line a→b as ref. Points within SideEpsilon of the
// line count as kept. A ref on the line leaves p untouched.
func ClipByEdge(p Polygon, a, b, ref mgl64.Vec2) Polygon {
	if len(p) < 3 {
		return p
	}
	refSide := sign(Side(ref, a, b))
	if refSide == 0 {
		return p
	}
	inside := func(v mgl64.Vec2) bool {
		s := Side(v, a, b)
		return sign(s) == refSide || math.Abs(s) < SideEpsilon
	}

	out := make(Polygon, 0, len(p)+2)
	n := len(p)
	for i := 0; i < n; i++ {
		curr := p[i]
		next := p[(i+1)%n]
		currIn := inside(curr)
		nextIn := inside(next)

		if currIn {
			out = append(out, curr)
			if !nextIn {
				if x, ok := LineIntersect(curr, next, a, b); ok {
					out = append(out, x)
				}
			}
		} else if nextIn {
			if x, ok := LineIntersect(curr, next, a, b); ok {
				out = append(out, x)
			}
		}
	}
	return out
}

// ClipConvex clips subject against every edge of the convex polygon clip,
// keeping the side containing ref. Stops early once fewer than 3 points
// remain.
func ClipConvex(subject, clip Polygon, ref mgl64.Vec2) Polygon {
	out := subject.Clone()
	for i := 0; i < len(clip) && len(out) >= 3; i++ {
		out = ClipByEdge(out, clip[i], clip[(i+1)%len(clip)], ref)
	}
	return out
}

// ConvexIntersectionArea returns the area of a ∩ b. b must be convex.
func ConvexIntersectionArea(a, b Polygon) float64 {
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	clipped := ClipConvex(a, b, b.Centroid())
	if len(clipped) < 3 {
		return 0
	}
	return clipped.Area()
}

// SegmentsCross reports a proper crossing of a-b and c-d. Shared endpoints
// and touching do not count.
func SegmentsCross(a, b, c, d mgl64.Vec2) bool {
	d1 := Side(c, a, b)
	d2 := Side(d, a, b)
	d3 := Side(a, c, d)
	d4 := Side(b, c, d)
	return d1*d2 < 0 && d3*d4 < 0
}

// SegmentsTouch reports any contact between a-b and c-d, including
// collinear overlap and endpoint contact.
func SegmentsTouch(a, b, c, d mgl64.Vec2) bool {
	if SegmentsCross(a, b, c, d) {
		return true
	}
	return OnSegment(c, a, b) || OnSegment(d, a, b) || OnSegment(a, c, d) || OnSegment(b, c, d)
}

// OnSegment reports whether p lies on the closed segment a-b.
func OnSegment(p, a, b mgl64.Vec2) bool {
	if math.Abs(Side(p, a, b)) > SideEpsilon {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-SideEpsilon && p[0] <= math.Max(a[0], b[0])+SideEpsilon &&
		p[1] >= math.Min(a[1], b[1])-SideEpsilon && p[1] <= math.Max(a[1], b[1])+SideEpsilon
}

// PointInTriangle includes the triangle boundary.
func PointInTriangle(p, a, b, c mgl64.Vec2) bool {
	d1 := Side(p, a, b)
	d2 := Side(p, b, c)
	d3 := Side(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// ContainsStrict reports whether pt is inside p and not on its boundary.
func (p Polygon) ContainsStrict(pt mgl64.Vec2) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if OnSegment(pt, p[i], p[(i+1)%n]) {
			return false
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a[1] > pt[1]) != (b[1] > pt[1]) {
			x := (b[0]-a[0])*(pt[1]-a[1])/(b[1]-a[1]) + a[0]
			if pt[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}
