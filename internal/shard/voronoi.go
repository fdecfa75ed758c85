// Package shard decomposes islands into convex collision polygons: a relaxed
// Voronoi partition clipped against the island contour, bridge repair,
// convexity enforcement and shard filtering.
package shard

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/island"
)

// Params tunes the decomposition. The bridge constants were found by trial
// and are kept configurable.
type Params struct {
	CellsPerSite int `json:"cells_per_site"` // one Voronoi site per this many island cells
	MinSites     int `json:"min_sites"`
	MaxSites     int `json:"max_sites"`
	LloydPasses  int `json:"lloyd_passes"`

	SamplesPerUnit     int `json:"samples_per_unit"` // bridge probe density along an edge
	BridgeRepairPasses int `json:"bridge_repair_passes"`
	LongBridgeRun      int `json:"long_bridge_run"` // consecutive void samples that reject a shard

	MaxConvexIterations int `json:"max_convex_iterations"`
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		CellsPerSite:        100,
		MinSites:            3,
		MaxSites:            20,
		LloydPasses:         2,
		SamplesPerUnit:      4,
		BridgeRepairPasses:  3,
		LongBridgeRun:       6,
		MaxConvexIterations: 200,
	}
}

// SiteCount is clamp(cells/CellsPerSite, MinSites, MaxSites).
func (p Params) SiteCount(cells int) int {
	per := p.CellsPerSite
	if per <= 0 {
		per = 1
	}
	return min(max(cells/per, p.MinSites), p.MaxSites)
}

// boundarySearchSteps bounds the bisection used to find where a cell edge
// leaves the island raster.
const boundarySearchSteps = 16

// Generate splits an island into Voronoi shards in absolute grid
// coordinates. The result is deterministic for a given island and seed.
// Shards are not yet guaranteed convex; see EnsureConvex.
func Generate(is *island.Island, seed int64, p Params) []geom.Polygon {
	if len(is.Cells) < 3 || len(is.Contour) < 3 {
		return nil
	}

	sites := placeSites(is, seed, p.SiteCount(len(is.Cells)))
	if len(sites) < 2 {
		return []geom.Polygon{is.Contour.Clone()}
	}

	for pass := 0; pass < p.LloydPasses; pass++ {
		relax(is, sites)
	}

	cells := voronoiCells(sites)
	var shards []geom.Polygon
	for i, cell := range cells {
		clipped := clipCell(is, cell, sites[i], p)
		if len(clipped) >= 3 {
			shards = append(shards, clipped)
		}
	}

	if len(shards) == 0 {
		slog.Debug("no shard survived clipping, using whole island", "cells", len(is.Cells))
		return []geom.Polygon{is.Contour.Clone()}
	}
	return shards
}

// placeSites rejection-samples points inside the island's cells.
func placeSites(is *island.Island, seed int64, n int) []mgl64.Vec2 {
	rng := rand.New(rand.NewSource(seed))
	minX, minY, maxX, maxY := is.Bounds()
	spanX := float64(maxX - minX + 1)
	spanY := float64(maxY - minY + 1)

	sites := make([]mgl64.Vec2, 0, n)
	for attempts := 0; len(sites) < n && attempts < n*100; attempts++ {
		pt := mgl64.Vec2{
			float64(minX) + rng.Float64()*spanX,
			float64(minY) + rng.Float64()*spanY,
		}
		if is.ContainsPoint(pt) {
			sites = append(sites, pt)
		}
	}
	return sites
}

// voronoiCells builds each site's cell by cutting a large quad with the
// perpendicular bisector against every other site.
func voronoiCells(sites []mgl64.Vec2) []geom.Polygon {
	bounds := geom.Polygon(sites)
	lo, hi := bounds.Bounds()
	margin := math.Max(hi[0]-lo[0], hi[1]-lo[1]) + 100

	cells := make([]geom.Polygon, len(sites))
	for i, site := range sites {
		cell := geom.Polygon{
			{lo[0] - margin, lo[1] - margin},
			{hi[0] + margin, lo[1] - margin},
			{hi[0] + margin, hi[1] + margin},
			{lo[0] - margin, hi[1] + margin},
		}
		for j, other := range sites {
			if i == j {
				continue
			}
			mid := site.Add(other).Mul(0.5)
			cell = geom.ClipHalfPlane(cell, mid, site.Sub(other))
			if len(cell) < 3 {
				break
			}
		}
		cells[i] = cell
	}
	return cells
}

// relax performs one Lloyd pass: every site moves to the centroid of its
// raster-clipped cell when that centroid is still on the island.
func relax(is *island.Island, sites []mgl64.Vec2) {
	cells := voronoiCells(sites)
	for i, cell := range cells {
		clipped := rasterClip(is, cell)
		if len(clipped) < 3 {
			continue
		}
		c := clipped.Centroid()
		if is.ContainsPoint(c) {
			sites[i] = c
		}
	}
}

// rasterClip is a cheap approximation of cell ∩ island used only for
// relaxation: vertices off the island are replaced by the point where their
// edge leaves it.
func rasterClip(is *island.Island, cell geom.Polygon) geom.Polygon {
	if len(cell) < 3 {
		return cell
	}
	allIn := true
	for _, v := range cell {
		if !is.ContainsPoint(v) {
			allIn = false
			break
		}
	}
	if allIn {
		return cell
	}

	var out geom.Polygon
	n := len(cell)
	for i := 0; i < n; i++ {
		curr := cell[i]
		next := cell[(i+1)%n]
		currIn := is.ContainsPoint(curr)
		nextIn := is.ContainsPoint(next)
		if currIn {
			out = append(out, curr)
			if !nextIn {
				out = append(out, findBoundary(is, curr, next))
			}
		} else if nextIn {
			out = append(out, findBoundary(is, next, curr))
		}
	}
	return out
}

func findBoundary(is *island.Island, inside, outside mgl64.Vec2) mgl64.Vec2 {
	for i := 0; i < boundarySearchSteps; i++ {
		mid := inside.Add(outside).Mul(0.5)
		if is.ContainsPoint(mid) {
			inside = mid
		} else {
			outside = mid
		}
	}
	return inside
}

// ClipToContour intersects the island contour with a convex Voronoi cell by
// Sutherland–Hodgman, keeping the side of each cell edge that holds site.
// Fewer than 3 points back means the cell misses the island.
func ClipToContour(contour, cell geom.Polygon, site mgl64.Vec2) geom.Polygon {
	if len(cell) < 3 || len(contour) < 3 {
		return nil
	}
	return geom.ClipConvex(contour, cell, site)
}

// clipCell produces the final shard for one cell, or nil to drop it.
func clipCell(is *island.Island, cell geom.Polygon, site mgl64.Vec2, p Params) geom.Polygon {
	clipped := ClipToContour(is.Contour, cell, site)

	if len(clipped) >= 3 {
		clipped = repairBridges(is, clipped, p)
		// Contour walks can stray into neighbouring cells; clip back so
		// sibling shards stay disjoint.
		clipped = geom.Clean(geom.ClipConvex(clipped, cell, site))
		if clipped.Valid() && !hasLongBridge(is, clipped, p) {
			return clipped
		}
	}

	// A cell lying wholly on solid rock is usable as is.
	for _, v := range cell {
		if !is.ContainsPoint(v) {
			return nil
		}
	}
	if hasAnyBridge(is, cell, p) {
		return nil
	}
	return cell
}
