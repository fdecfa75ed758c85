package world

import (
	"fmt"
	"sort"
)

// Map holds a generated rectangular region of chunks.
type Map struct {
	Chunks map[ChunkCoord]*Chunk        `json:"-"`
	Debug  map[ChunkCoord]*DebugRasters `json:"-"`
	Min    ChunkCoord                   `json:"min"`
	Max    ChunkCoord                   `json:"max"` // inclusive
	Config GenConfig                    `json:"config"`
}

// NewMap creates an empty map covering [min, max] inclusive.
func NewMap(cfg GenConfig, min, max ChunkCoord) *Map {
	return &Map{
		Chunks: make(map[ChunkCoord]*Chunk),
		Debug:  make(map[ChunkCoord]*DebugRasters),
		Min:    min,
		Max:    max,
		Config: cfg,
	}
}

// Get returns the chunk at coord, or nil if it was not generated.
func (m *Map) Get(coord ChunkCoord) *Chunk {
	return m.Chunks[coord]
}

// Set stores a chunk and its debug rasters. debug may be nil.
func (m *Map) Set(c *Chunk, debug *DebugRasters) {
	m.Chunks[c.Coord] = c
	if debug != nil {
		m.Debug[c.Coord] = debug
	}
}

// InBounds reports whether coord lies in the map's chunk rectangle.
func (m *Map) InBounds(coord ChunkCoord) bool {
	return coord.X >= m.Min.X && coord.X <= m.Max.X && coord.Y >= m.Min.Y && coord.Y <= m.Max.Y
}

// Width and Height are in chunks.
func (m *Map) Width() int  { return m.Max.X - m.Min.X + 1 }
func (m *Map) Height() int { return m.Max.Y - m.Min.Y + 1 }

// ChunkCount returns the number of generated chunks.
func (m *Map) ChunkCount() int {
	return len(m.Chunks)
}

// Coords lists generated chunk coordinates in row-major order.
func (m *Map) Coords() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(m.Chunks))
	for c := range m.Chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Totals sums chunk stats across the map.
func (m *Map) Totals() ChunkStats {
	var t ChunkStats
	for _, c := range m.Chunks {
		t.Islands += c.Stats.Islands
		t.DroppedIslands += c.Stats.DroppedIslands
		t.Shards += c.Stats.Shards
		t.Vertices += c.Stats.Vertices
		t.SolidCells += c.Stats.SolidCells
		t.TotalCells += c.Stats.TotalCells
	}
	return t
}

// String returns a summary of the map.
func (m *Map) String() string {
	t := m.Totals()
	return fmt.Sprintf("Map(%s..%s, chunks=%d, islands=%d, shards=%d)",
		m.Min, m.Max, m.ChunkCount(), t.Islands, t.Shards)
}

// GenerateRegion generates every chunk in [min, max] inclusive, row by row.
func (g *Generator) GenerateRegion(minX, minY, maxX, maxY int) *Map {
	if maxX < minX {
		minX, maxX = maxX, minX
	}
	if maxY < minY {
		minY, maxY = maxY, minY
	}
	m := NewMap(g.cfg, ChunkCoord{X: minX, Y: minY}, ChunkCoord{X: maxX, Y: maxY})
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			chunk, debug := g.GenerateChunk(cx, cy)
			m.Set(chunk, debug)
		}
	}
	return m
}
