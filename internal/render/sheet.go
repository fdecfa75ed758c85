// Package render draws the debug rasters of a generated region into a PNG
// contact sheet: raw noise, thresholded grid, smoothed grid and shard
// outlines, side by side.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/terrain"
	"github.com/talgya/cavegen/internal/world"
)

// Panels in sheet order.
const (
	PanelNoise = iota
	PanelGrid
	PanelSmoothed
	PanelShards
	panelCount
)

const panelGap = 8

var (
	solidColor   = color.RGBA{0x3a, 0x2e, 0x26, 0xff}
	voidColor    = color.RGBA{0xe8, 0xe2, 0xd0, 0xff}
	borderColor  = color.RGBA{0xd0, 0x30, 0x30, 0xff}
	outlineColor = color.RGBA{0x20, 0xa0, 0xe0, 0xff}
	gapColor     = color.RGBA{0x10, 0x10, 0x10, 0xff}
)

// PanelSize returns the pixel size of one panel for m.
func PanelSize(m *world.Map, cellPixels int) (w, h int) {
	size := m.Config.ChunkSize
	return m.Width() * size * cellPixels, m.Height() * size * cellPixels
}

// ChunkSheet renders every chunk of m that carries debug rasters.
func ChunkSheet(m *world.Map, cellPixels int) *image.RGBA {
	if cellPixels < 1 {
		cellPixels = 1
	}
	pw, ph := PanelSize(m, cellPixels)
	img := image.NewRGBA(image.Rect(0, 0, panelCount*pw+(panelCount-1)*panelGap, ph))
	for p := 1; p < panelCount; p++ {
		fillRect(img, p*(pw+panelGap)-panelGap, 0, panelGap, ph, gapColor)
	}

	size := m.Config.ChunkSize
	buf := make([]byte, size*size*4)
	cells := make([]uint8, size*size)

	for _, coord := range m.Coords() {
		d := m.Debug[coord]
		if d == nil || d.Size != size {
			continue
		}
		ox := (coord.X - m.Min.X) * size * cellPixels
		oy := (coord.Y - m.Min.Y) * size * cellPixels

		fillGrayRGBA(buf, d.RawNoise)
		blitScaled(img.Pix, img.Stride, buf, size, PanelX(PanelNoise, pw)+ox, oy, cellPixels)

		gridCells(cells, d.Grid)
		fillBinaryRGBA(buf, cells, solidColor, voidColor)
		blitScaled(img.Pix, img.Stride, buf, size, PanelX(PanelGrid, pw)+ox, oy, cellPixels)

		gridCells(cells, d.Smoothed)
		fillBinaryRGBA(buf, cells, solidColor, voidColor)
		blitScaled(img.Pix, img.Stride, buf, size, PanelX(PanelSmoothed, pw)+ox, oy, cellPixels)
		blitScaled(img.Pix, img.Stride, buf, size, PanelX(PanelShards, pw)+ox, oy, cellPixels)
	}

	// Outlines go on after every chunk is painted so they cross borders.
	dc := gg.NewContextForRGBA(img)
	dc.DrawRectangle(float64(PanelX(PanelShards, pw)), 0, float64(pw), float64(ph))
	dc.Clip()
	dc.SetColor(outlineColor)
	dc.SetLineWidth(1)
	scale := float64(cellPixels) / m.Config.CellSize
	origin := mgl64.Vec2{float64(m.Min.X * size * cellPixels), float64(m.Min.Y * size * cellPixels)}
	base := mgl64.Vec2{float64(PanelX(PanelShards, pw)), 0}
	for _, coord := range m.Coords() {
		d := m.Debug[coord]
		if d == nil {
			continue
		}
		for _, poly := range d.Polygons {
			for i, v := range poly {
				pt := v.Mul(scale).Sub(origin).Add(base)
				if i == 0 {
					dc.MoveTo(pt[0], pt[1])
				} else {
					dc.LineTo(pt[0], pt[1])
				}
			}
			dc.ClosePath()
		}
	}
	dc.Stroke()

	for p := 0; p < panelCount; p++ {
		drawChunkBorders(img, m, PanelX(p, pw), size*cellPixels)
	}

	slog.Debug("sheet rendered", "width", img.Bounds().Dx(), "height", img.Bounds().Dy(), "chunks", m.ChunkCount())
	return img
}

// PanelX is the left pixel edge of panel p for panel width pw.
func PanelX(p, pw int) int { return p * (pw + panelGap) }

func gridCells(dst []uint8, g *terrain.Grid) {
	for i := range dst {
		dst[i] = 0
	}
	if g == nil {
		return
	}
	for i, solid := range g.Cells() {
		if i >= len(dst) {
			break
		}
		if solid {
			dst[i] = 1
		}
	}
}

func drawChunkBorders(img *image.RGBA, m *world.Map, ox, chunkPixels int) {
	w, h := m.Width()*chunkPixels, m.Height()*chunkPixels
	for cx := 0; cx <= m.Width(); cx++ {
		x := min(cx*chunkPixels, w-1)
		fillRect(img, ox+x, 0, 1, h, borderColor)
	}
	for cy := 0; cy <= m.Height(); cy++ {
		y := min(cy*chunkPixels, h-1)
		fillRect(img, ox, y, w, 1, borderColor)
	}
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	r := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			img.SetRGBA(px, py, c)
		}
	}
}

// EncodePNG writes img as PNG to w.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNG writes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	slog.Info("sheet written", "path", path)
	return nil
}
