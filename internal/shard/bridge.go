package shard

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/island"
)

// Clipping a concave contour against a convex cell can join two separate
// pieces of rock with an edge running across open cave. These "bridges" are
// found by sampling along each edge and patched by walking the contour.

func sampleCount(a, b mgl64.Vec2, perUnit int) int {
	return max(int(b.Sub(a).Len()*float64(perUnit)), 4)
}

// edgeCrossesEmpty reports whether any interior sample of a-b sits in void.
func edgeCrossesEmpty(is *island.Island, a, b mgl64.Vec2, p Params) bool {
	steps := sampleCount(a, b, p.SamplesPerUnit)
	d := b.Sub(a)
	for s := 1; s < steps; s++ {
		pt := a.Add(d.Mul(float64(s) / float64(steps)))
		if !is.TouchesPoint(pt) {
			return true
		}
	}
	return false
}

// edgeHasLongBridge reports a run of at least LongBridgeRun samples with no
// solid cell nearby. Edges shorter than two cells are ignored.
func edgeHasLongBridge(is *island.Island, a, b mgl64.Vec2, p Params) bool {
	d := b.Sub(a)
	if d.Len() < 2 {
		return false
	}
	steps := sampleCount(a, b, p.SamplesPerUnit)
	run := 0
	for s := 1; s < steps; s++ {
		pt := a.Add(d.Mul(float64(s) / float64(steps)))
		if is.NearPoint(pt) {
			run = 0
			continue
		}
		run++
		if run >= p.LongBridgeRun {
			return true
		}
	}
	return false
}

func hasAnyBridge(is *island.Island, poly geom.Polygon, p Params) bool {
	for i := range poly {
		if edgeCrossesEmpty(is, poly[i], poly[(i+1)%len(poly)], p) {
			return true
		}
	}
	return false
}

func hasLongBridge(is *island.Island, poly geom.Polygon, p Params) bool {
	for i := range poly {
		if edgeHasLongBridge(is, poly[i], poly[(i+1)%len(poly)], p) {
			return true
		}
	}
	return false
}

// repairBridges replaces every bridging edge with the shorter contour walk
// between the contour vertices nearest its endpoints. Up to
// BridgeRepairPasses passes; the last attempt is returned either way.
func repairBridges(is *island.Island, poly geom.Polygon, p Params) geom.Polygon {
	current := poly
	for pass := 0; pass < p.BridgeRepairPasses; pass++ {
		n := len(current)
		out := make(geom.Polygon, 0, n)
		found := false
		for i := 0; i < n; i++ {
			curr := current[i]
			next := current[(i+1)%n]
			out = append(out, curr)
			if edgeCrossesEmpty(is, curr, next, p) {
				found = true
				out = append(out, contourPath(is.Contour, curr, next)...)
			}
		}
		if !found {
			return current
		}
		current = out
	}
	return current
}

// contourPath walks the contour from the vertex nearest from to the vertex
// nearest to, in whichever direction visits fewer vertices. Both end
// vertices are included.
func contourPath(contour geom.Polygon, from, to mgl64.Vec2) geom.Polygon {
	n := len(contour)
	fromIdx := nearestVertex(contour, from)
	toIdx := nearestVertex(contour, to)
	if fromIdx == toIdx {
		return geom.Polygon{contour[fromIdx]}
	}

	forward := geom.Polygon{contour[fromIdx]}
	for k := (fromIdx + 1) % n; k != toIdx && len(forward) <= n; k = (k + 1) % n {
		forward = append(forward, contour[k])
	}
	forward = append(forward, contour[toIdx])

	backward := geom.Polygon{contour[fromIdx]}
	for k := (fromIdx - 1 + n) % n; k != toIdx && len(backward) <= n; k = (k - 1 + n) % n {
		backward = append(backward, contour[k])
	}
	backward = append(backward, contour[toIdx])

	if len(forward) <= len(backward) {
		return forward
	}
	return backward
}

func nearestVertex(contour geom.Polygon, p mgl64.Vec2) int {
	best := 0
	bestDist := -1.0
	for i, v := range contour {
		d := v.Sub(p)
		dist := d.Dot(d)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
