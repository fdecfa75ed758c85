//go:build ebiten

// Command caveview shows the debug sheet of a generated region in a window.
// Arrow keys pan, O toggles shard outlines on the smoothed panel, S reseeds,
// Q or Escape quits.
package main

import (
	"errors"
	"flag"
	"image/color"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/talgya/cavegen/internal/render"
	"github.com/talgya/cavegen/internal/world"
)

const panSpeed = 8

var highlight = color.RGBA{0xf0, 0xc0, 0x20, 0xff}

type viewer struct {
	cfg        world.GenConfig
	radius     int
	cellPixels int

	m     *world.Map
	sheet *ebiten.Image
	panX  float64
	panY  float64

	outlines bool
	winW     int
	winH     int
}

func (v *viewer) regenerate() error {
	gen, err := world.NewGenerator(v.cfg)
	if err != nil {
		return err
	}
	v.m = gen.GenerateRegion(-v.radius, -v.radius, v.radius, v.radius)
	v.sheet = ebiten.NewImageFromImage(render.ChunkSheet(v.m, v.cellPixels))
	return nil
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		v.outlines = !v.outlines
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		v.cfg.Seed = time.Now().UnixNano()
		slog.Info("reseeding", "seed", v.cfg.Seed)
		if err := v.regenerate(); err != nil {
			return err
		}
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.panX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.panX += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		v.panY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		v.panY += panSpeed
	}

	b := v.sheet.Bounds()
	v.panX = max(0, min(v.panX, float64(b.Dx()-v.winW)))
	v.panY = max(0, min(v.panY, float64(b.Dy()-v.winH)))
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-v.panX, -v.panY)
	screen.DrawImage(v.sheet, op)

	if !v.outlines {
		return
	}
	pw, _ := render.PanelSize(v.m, v.cellPixels)
	size := v.m.Config.ChunkSize
	scale := float64(v.cellPixels) / v.m.Config.CellSize
	ox := float64(render.PanelX(render.PanelSmoothed, pw)) - float64(v.m.Min.X*size*v.cellPixels) - v.panX
	oy := -float64(v.m.Min.Y*size*v.cellPixels) - v.panY
	for _, c := range v.m.Coords() {
		for _, s := range v.m.Get(c).Shards() {
			poly := s.WorldPolygon()
			n := len(poly)
			for i := 0; i < n; i++ {
				a, b := poly[i].Mul(scale), poly[(i+1)%n].Mul(scale)
				vector.StrokeLine(screen,
					float32(a[0]+ox), float32(a[1]+oy),
					float32(b[0]+ox), float32(b[1]+oy),
					1, highlight, false)
			}
		}
	}
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.winW, v.winH
}

func main() {
	configPath := flag.String("config", "", "JSON config overlay")
	radius := flag.Int("radius", 1, "chunks around the origin in each direction")
	cellPixels := flag.Int("scale", 3, "pixels per grid cell")
	flag.Parse()

	cfg, err := world.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	v := &viewer{cfg: cfg, radius: *radius, cellPixels: *cellPixels, winW: 1280, winH: 720}
	if err := v.regenerate(); err != nil {
		slog.Error("generation failed", "error", err)
		os.Exit(1)
	}

	ebiten.SetWindowTitle("caveview")
	ebiten.SetWindowSize(v.winW, v.winH)
	if err := ebiten.RunGame(v); err != nil && !errors.Is(err, ebiten.Termination) {
		slog.Error("viewer stopped", "error", err)
		os.Exit(1)
	}
}
