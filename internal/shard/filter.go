package shard

import (
	"math"
	"sort"

	"github.com/talgya/cavegen/internal/geom"
)

// rectAngleTolerance is how far from 90° every corner of a quad may be for
// it to count as a leftover rectangle.
const rectAngleTolerance = 6 * math.Pi / 180

// Filter runs the three cleanup passes in order: enclosure removal,
// near-rectangle removal, small-area removal. Input order is preserved.
func Filter(shards []geom.Polygon, minArea, enclosureThreshold float64) []geom.Polygon {
	kept := removeEnclosed(shards, enclosureThreshold)

	out := kept[:0]
	for _, s := range kept {
		if IsNearRectangle(s) {
			continue
		}
		if s.Area() < minArea {
			continue
		}
		out = append(out, s)
	}
	return out
}

// removeEnclosed drops each shard whose overlap with a larger surviving
// sibling covers at least threshold of its own area. Larger shards must be
// convex. A dropped shard takes no part in later comparisons.
func removeEnclosed(shards []geom.Polygon, threshold float64) []geom.Polygon {
	if threshold <= 0 || len(shards) < 2 {
		return append([]geom.Polygon(nil), shards...)
	}

	areas := make([]float64, len(shards))
	order := make([]int, len(shards))
	for i, s := range shards {
		areas[i] = s.Area()
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return areas[order[a]] < areas[order[b]] })

	dropped := make([]bool, len(shards))
	for oi, small := range order {
		if areas[small] <= 0 {
			dropped[small] = true
			continue
		}
		for _, large := range order[oi+1:] {
			if dropped[large] {
				continue
			}
			inter := geom.ConvexIntersectionArea(shards[small], shards[large])
			if inter/areas[small] >= threshold {
				dropped[small] = true
				break
			}
		}
	}

	var out []geom.Polygon
	for i, s := range shards {
		if !dropped[i] {
			out = append(out, s)
		}
	}
	return out
}

// IsNearRectangle reports a 4-vertex polygon whose corners are all within
// six degrees of square.
func IsNearRectangle(p geom.Polygon) bool {
	if len(p) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		prev := p[(i+3)%4]
		curr := p[i]
		next := p[(i+1)%4]
		a := prev.Sub(curr)
		b := next.Sub(curr)
		la, lb := a.Len(), b.Len()
		if la == 0 || lb == 0 {
			return false
		}
		cos := a.Dot(b) / (la * lb)
		angle := math.Acos(math.Max(-1, math.Min(1, cos)))
		if math.Abs(angle-math.Pi/2) > rectAngleTolerance {
			return false
		}
	}
	return true
}
