package shard

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/island"
)

func rectIsland(w, h int) *island.Island {
	cells := make([]island.Cell, 0, w*h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			cells = append(cells, island.Cell{X: x, Y: y})
		}
	}
	return island.FromCells(cells)
}

func diskIsland(r int) *island.Island {
	var cells []island.Cell
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				cells = append(cells, island.Cell{X: x, Y: y})
			}
		}
	}
	return island.FromCells(cells)
}

func lHexagon() geom.Polygon {
	return geom.Polygon{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
}

func TestSiteCount(t *testing.T) {
	p := DefaultParams()
	cases := map[int]int{
		0:     3,
		150:   3,
		300:   3,
		1000:  10,
		50000: 20,
	}
	for cells, want := range cases {
		if got := p.SiteCount(cells); got != want {
			t.Errorf("SiteCount(%d) = %d, want %d", cells, got, want)
		}
	}
}

func TestRectangleIslandShards(t *testing.T) {
	is := rectIsland(20, 15)
	if len(is.Cells) != 300 {
		t.Fatalf("cells = %d, want 300", len(is.Cells))
	}
	p := DefaultParams()
	raw := Generate(is, 7, p)
	if len(raw) < 1 || len(raw) > 3 {
		t.Fatalf("raw shards = %d, want 1..3", len(raw))
	}

	var pieces []geom.Polygon
	for _, s := range raw {
		pieces = append(pieces, EnsureConvex(s, p.MaxConvexIterations)...)
	}
	if len(pieces) < 1 || len(pieces) > 3 {
		t.Fatalf("convex shards = %d, want 1..3", len(pieces))
	}
	total := 0.0
	for _, s := range pieces {
		if !s.Valid() || !s.IsConvex() {
			t.Fatalf("bad shard %v", s)
		}
		total += s.Area()
	}
	if total > is.Area()+1e-4 {
		t.Fatalf("shard area %v exceeds raster area %v", total, is.Area())
	}
	if math.Abs(total-is.Area()) > 1e-4 {
		t.Fatalf("rectangle should be fully covered: %v vs %v", total, is.Area())
	}
}

func TestGenerateDeterministic(t *testing.T) {
	is := diskIsland(9)
	a := Generate(is, 1234, DefaultParams())
	b := Generate(is, 1234, DefaultParams())
	if len(a) != len(b) {
		t.Fatalf("shard counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			t.Fatalf("shard %d differs", i)
		}
	}
}

func TestDiskPipelineOutputsConvex(t *testing.T) {
	is := diskIsland(10)
	p := DefaultParams()
	var pieces []geom.Polygon
	for _, s := range Generate(is, 99, p) {
		pieces = append(pieces, EnsureConvex(s, p.MaxConvexIterations)...)
	}
	if len(pieces) == 0 {
		t.Fatal("disk produced no shards")
	}
	for _, s := range Filter(pieces, 0.5, 0.8) {
		if len(s) < 3 || s.Area() <= geom.AreaEpsilon || !s.IsConvex() {
			t.Fatalf("bad shard %v", s)
		}
	}
}

func TestEnsureConvexLHexagon(t *testing.T) {
	poly := lHexagon()
	pieces := EnsureConvex(poly, 200)
	if len(pieces) < 2 {
		t.Fatalf("pieces = %d, want >= 2", len(pieces))
	}
	total := 0.0
	for _, p := range pieces {
		if !p.IsConvex() || !p.Valid() {
			t.Fatalf("piece %v is not a valid convex polygon", p)
		}
		total += p.Area()
	}
	if math.Abs(total-poly.Area()) > 1e-6 {
		t.Fatalf("area %v, want %v", total, poly.Area())
	}
}

func TestEnsureConvexStar(t *testing.T) {
	var star geom.Polygon
	for i := 0; i < 10; i++ {
		r := 2.0
		if i%2 == 1 {
			r = 0.8
		}
		a := float64(i) * math.Pi / 5
		star = append(star, mgl64.Vec2{r * math.Cos(a), r * math.Sin(a)})
	}
	for _, maxIter := range []int{0, 1, 200} {
		pieces := EnsureConvex(star, maxIter)
		total := 0.0
		for _, p := range pieces {
			if !p.IsConvex() || !p.Valid() {
				t.Fatalf("maxIter=%d: piece %v is not convex", maxIter, p)
			}
			total += p.Area()
		}
		if math.Abs(total-star.Area()) > 1e-6 {
			t.Fatalf("maxIter=%d: area %v, want %v", maxIter, total, star.Area())
		}
	}
}

func TestEnsureConvexPassesConvexThrough(t *testing.T) {
	sq := geom.Polygon{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	pieces := EnsureConvex(sq, 10)
	if len(pieces) != 1 || len(pieces[0]) != 4 {
		t.Fatalf("convex input changed: %v", pieces)
	}
	if got := EnsureConvex(geom.Polygon{{0, 0}, {1, 0}, {2, 0}}, 10); len(got) != 0 {
		t.Fatalf("degenerate input should vanish, got %v", got)
	}
}

func TestClipCellOutsideIsland(t *testing.T) {
	contour := geom.Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	cell := geom.Polygon{{50, 50}, {55, 50}, {55, 55}, {50, 55}}
	if got := ClipToContour(contour, cell, mgl64.Vec2{52, 52}); len(got) >= 3 {
		t.Fatalf("cell outside the island clipped to %v", got)
	}

	inside := geom.Polygon{{2, 2}, {6, 2}, {6, 6}, {2, 6}}
	got := ClipToContour(contour, inside, mgl64.Vec2{4, 4})
	if math.Abs(got.Area()-16) > 1e-9 {
		t.Fatalf("contained cell area = %v, want 16", got.Area())
	}
}

func TestBridgeDetection(t *testing.T) {
	// Two pillars joined only along the bottom row.
	var cells []island.Cell
	for y := 0; y < 8; y++ {
		cells = append(cells, island.Cell{X: 0, Y: y}, island.Cell{X: 9, Y: y})
	}
	for x := 1; x < 9; x++ {
		cells = append(cells, island.Cell{X: x, Y: 7})
	}
	is := island.FromCells(cells)
	p := DefaultParams()

	across := [2]mgl64.Vec2{{0.5, 1}, {9.5, 1}}
	if !edgeCrossesEmpty(is, across[0], across[1], p) {
		t.Fatal("edge over the gap should cross empty space")
	}
	if !edgeHasLongBridge(is, across[0], across[1], p) {
		t.Fatal("edge over the gap should be a long bridge")
	}
	along := [2]mgl64.Vec2{{0, 8}, {10, 8}}
	if edgeCrossesEmpty(is, along[0], along[1], p) {
		t.Fatal("edge on the island's own boundary must not read as a bridge")
	}
	short := [2]mgl64.Vec2{{0.5, 1}, {1.5, 1}}
	if edgeHasLongBridge(is, short[0], short[1], p) {
		t.Fatal("edges shorter than two cells are never long bridges")
	}
}

func TestContourPathTakesShorterWay(t *testing.T) {
	c := geom.Polygon{{0, 0}, {0, 1}, {0, 2}, {1, 2}, {2, 2}, {2, 1}, {2, 0}, {1, 0}}
	path := contourPath(c, mgl64.Vec2{0, 0}, mgl64.Vec2{2, 0})
	if len(path) != 3 {
		t.Fatalf("path = %v, want 3 vertices along the bottom", path)
	}
	if path[0] != c[0] || path[2] != c[6] {
		t.Fatalf("path endpoints = %v, %v", path[0], path[2])
	}
}

func TestFilter(t *testing.T) {
	big := geom.Polygon{{0, 0}, {10, 0}, {0, 10}}
	inner := geom.Polygon{{1, 1}, {2, 1}, {1, 2}}
	tiny := geom.Polygon{{20, 20}, {20.5, 20}, {20, 20.5}}
	rect := geom.Polygon{{30, 0}, {34, 0}, {34, 3}, {30, 3}}
	other := geom.Polygon{{40, 0}, {44, 0}, {40, 4}}

	got := Filter([]geom.Polygon{big, inner, tiny, rect, other}, 0.5, 0.8)
	if len(got) != 2 {
		t.Fatalf("kept %d shards, want 2: %v", len(got), got)
	}
	if !slices.Equal(got[0], big) || !slices.Equal(got[1], other) {
		t.Fatalf("wrong shards kept or order changed: %v", got)
	}

	partial := geom.Polygon{{9, 0}, {12, 0}, {9, 3}}
	got = Filter([]geom.Polygon{big, partial}, 0, 0.8)
	if len(got) != 2 {
		t.Fatalf("partially overlapping shard should survive, got %v", got)
	}
}

func TestIsNearRectangle(t *testing.T) {
	if !IsNearRectangle(geom.Polygon{{0, 0}, {3, 0}, {3, 2}, {0, 2}}) {
		t.Fatal("rectangle not detected")
	}
	if !IsNearRectangle(geom.Polygon{{0, 0}, {3, 0.1}, {3, 2}, {0, 2}}) {
		t.Fatal("slightly skewed rectangle not detected")
	}
	if IsNearRectangle(geom.Polygon{{0, 0}, {2, 0}, {3, 1}, {1, 1}}) {
		t.Fatal("parallelogram detected as rectangle")
	}
	if IsNearRectangle(geom.Polygon{{0, 0}, {1, 0}, {0, 1}}) {
		t.Fatal("triangle detected as rectangle")
	}
}

func combIsland() *island.Island {
	var cells []island.Cell
	for x := 0; x <= 20; x++ {
		for y := 0; y < 12; y++ {
			if y >= 10 || x%4 < 2 {
				cells = append(cells, island.Cell{X: x, Y: y})
			}
		}
	}
	return island.FromCells(cells)
}

// Bridge repair walks the contour; whatever it adds must stay inside the
// site's own cell, so shards of different sites never overlap.
func TestRepairedShardsStayDisjoint(t *testing.T) {
	is := combIsland()
	p := DefaultParams()
	p.CellsPerSite = 8

	for seed := int64(1); seed <= 6; seed++ {
		var groups [][]geom.Polygon
		for _, s := range Generate(is, seed, p) {
			groups = append(groups, EnsureConvex(s, p.MaxConvexIterations))
		}
		if len(groups) < 2 {
			t.Fatalf("seed %d: %d shards, want several", seed, len(groups))
		}
		for i := range groups {
			for j := i + 1; j < len(groups); j++ {
				for _, a := range groups[i] {
					for _, b := range groups[j] {
						if ov := geom.ConvexIntersectionArea(a, b); ov > 1e-4 {
							t.Fatalf("seed %d: shards %d and %d overlap by %v", seed, i, j, ov)
						}
					}
				}
			}
		}
	}
}
