package world

import "fmt"

// ChunkCoord addresses a chunk on the infinite chunk lattice.
type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Origin returns the absolute cell coordinate of the chunk's first cell.
func (c ChunkCoord) Origin(chunkSize int) (x, y int) {
	return c.X * chunkSize, c.Y * chunkSize
}

// Seed derives the first island seed for this chunk. Chunks share nothing
// but this derivation.
func (c ChunkCoord) Seed(base int64) int64 {
	return base + int64(c.X)*1000 + int64(c.Y)
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// RegionAround lists the (2r+1)² chunks centred on c in row-major order.
func RegionAround(c ChunkCoord, radius int) []ChunkCoord {
	if radius < 0 {
		radius = 0
	}
	out := make([]ChunkCoord, 0, (2*radius+1)*(2*radius+1))
	for y := c.Y - radius; y <= c.Y+radius; y++ {
		for x := c.X - radius; x <= c.X+radius; x++ {
			out = append(out, ChunkCoord{X: x, Y: y})
		}
	}
	return out
}
