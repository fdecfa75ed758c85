// Package world turns a GenConfig and chunk coordinates into cave chunks:
// noise → occupancy grid → cellular smoothing → islands → convex shards.
package world

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/island"
	"github.com/talgya/cavegen/internal/noise"
	"github.com/talgya/cavegen/internal/shard"
	"github.com/talgya/cavegen/internal/terrain"
)

// ErrIslandFailed marks an island dropped because a stage panicked.
var ErrIslandFailed = errors.New("island decomposition failed")

// Shard is one convex collision polygon. Polygon is relative to Position;
// both are in world units.
type Shard struct {
	Position mgl64.Vec2   `json:"position"`
	Polygon  geom.Polygon `json:"polygon"`
}

// WorldPolygon returns the shard's vertices in absolute world coordinates.
func (s Shard) WorldPolygon() geom.Polygon {
	return s.Polygon.Translate(s.Position)
}

// IslandShards pairs an island with the shards that survived filtering.
type IslandShards struct {
	Island *island.Island
	Shards []Shard
}

// ChunkStats summarises one generated chunk.
type ChunkStats struct {
	Islands        int `json:"islands"`
	DroppedIslands int `json:"dropped_islands"` // failed, or too small to yield a shard
	Shards         int `json:"shards"`
	Vertices       int `json:"vertices"` // contour vertices across islands
	SolidCells     int `json:"solid_cells"`
	TotalCells     int `json:"total_cells"`
}

// SolidRatio is the smoothed grid's solid fraction.
func (s ChunkStats) SolidRatio() float64 {
	if s.TotalCells == 0 {
		return 0
	}
	return float64(s.SolidCells) / float64(s.TotalCells)
}

// Chunk is the unit handed to physics and visualisation.
type Chunk struct {
	Coord   ChunkCoord
	Islands []IslandShards
	Stats   ChunkStats
}

// Shards flattens the chunk's shards in island order.
func (c *Chunk) Shards() []Shard {
	var out []Shard
	for _, is := range c.Islands {
		out = append(out, is.Shards...)
	}
	return out
}

// DebugRasters carries the intermediate stages for visualisation only.
type DebugRasters struct {
	Coord    ChunkCoord
	Size     int
	RawNoise []float32 // row-major, Size×Size
	Grid     *terrain.Grid
	Smoothed *terrain.Grid
	Polygons []geom.Polygon // absolute world coordinates
}

// Generator produces chunks. It holds only the validated config and the
// pure noise field, so calls never influence one another.
type Generator struct {
	cfg   GenConfig
	field *noise.Field
}

// NewGenerator validates cfg and prepares the noise field.
func NewGenerator(cfg GenConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	field, err := noise.New(cfg.NoiseKind, cfg.Seed, cfg.Frequency, cfg.Octaves)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Generator{cfg: cfg, field: field}, nil
}

// Config returns the generator's configuration.
func (g *Generator) Config() GenConfig { return g.cfg }

// Field exposes the noise field.
func (g *Generator) Field() *noise.Field { return g.field }

// GenerateChunk runs the full pipeline for one chunk. An island whose
// decomposition fails is dropped; the chunk itself always completes.
func (g *Generator) GenerateChunk(cx, cy int) (*Chunk, *DebugRasters) {
	cfg := g.cfg
	coord := ChunkCoord{X: cx, Y: cy}
	size := cfg.ChunkSize
	startX, startY := coord.Origin(size)

	raw := g.field.Raster(startX, startY, size, size)
	grid := terrain.BuildGrid(g.field, startX, startY, size, size, cfg.Threshold)
	smoothed := terrain.Smooth(grid, cfg.SmoothIterations, cfg.SolidNeighborThreshold, cfg.FillIsolatedVoids)

	islands := island.Extract(smoothed, startX, startY)

	chunk := &Chunk{Coord: coord}
	debug := &DebugRasters{Coord: coord, Size: size, RawNoise: raw, Grid: grid, Smoothed: smoothed}

	seed := coord.Seed(cfg.Seed)
	for _, is := range islands {
		if len(is.Contour) < 3 {
			continue
		}
		if is.HasHoles() {
			slog.Debug("island contour misses inner loops", "chunk", coord.String(), "cells", len(is.Cells))
		}

		polys, err := ShardIsland(is, seed, cfg)
		seed++
		if err != nil {
			slog.Warn("island dropped", "chunk", coord.String(), "cells", len(is.Cells), "error", err)
			chunk.Stats.DroppedIslands++
			continue
		}
		if len(polys) == 0 {
			slog.Debug("island too small to shard", "chunk", coord.String(), "cells", len(is.Cells))
			chunk.Stats.DroppedIslands++
			continue
		}

		entry := IslandShards{Island: is}
		for _, p := range polys {
			s := shapeShard(p, cfg.CellSize)
			entry.Shards = append(entry.Shards, s)
			debug.Polygons = append(debug.Polygons, s.WorldPolygon())
		}
		chunk.Islands = append(chunk.Islands, entry)
		chunk.Stats.Shards += len(entry.Shards)
		chunk.Stats.Vertices += len(is.Contour)
	}

	chunk.Stats.Islands = len(chunk.Islands)
	chunk.Stats.SolidCells = smoothed.SolidCount()
	chunk.Stats.TotalCells = size * size

	slog.Info("chunk generated",
		"chunk_x", cx,
		"chunk_y", cy,
		"islands", chunk.Stats.Islands,
		"shards", chunk.Stats.Shards,
		"vertices", chunk.Stats.Vertices,
		"solid_pct", fmt.Sprintf("%.1f", 100*chunk.Stats.SolidRatio()),
	)
	return chunk, debug
}

// ShardIsland runs Voronoi decomposition, convexity enforcement and
// filtering for one island. Output is in absolute grid coordinates. A panic
// in any stage is reported as ErrIslandFailed.
func ShardIsland(is *island.Island, seed int64, cfg GenConfig) (polys []geom.Polygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			polys = nil
			err = fmt.Errorf("%w: %v", ErrIslandFailed, r)
		}
	}()

	raw := shard.Generate(is, seed, cfg.Shard)

	var convex []geom.Polygon
	for _, p := range raw {
		convex = append(convex, shard.EnsureConvex(p, cfg.Shard.MaxConvexIterations)...)
	}

	return shard.Filter(convex, cfg.MinShardArea, cfg.EnclosureThreshold), nil
}

// shapeShard anchors a grid-space polygon at its vertex centroid and scales
// it to world units.
func shapeShard(p geom.Polygon, cellSize float64) Shard {
	center := p.VertexCentroid()
	return Shard{
		Position: center.Mul(cellSize),
		Polygon:  p.Translate(center.Mul(-1)).Scale(cellSize),
	}
}
