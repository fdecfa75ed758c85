package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/cavegen/internal/world"
)

func testMap(t *testing.T) *world.Map {
	t.Helper()
	gen, err := world.NewGenerator(world.SmallTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	return gen.GenerateRegion(0, 0, 1, 0)
}

func TestChunkSheetLayout(t *testing.T) {
	m := testMap(t)
	img := ChunkSheet(m, 2)

	pw, ph := PanelSize(m, 2)
	if pw != 96 || ph != 48 {
		t.Fatalf("panel = %dx%d, want 96x48", pw, ph)
	}
	b := img.Bounds()
	if b.Dx() != 4*96+3*panelGap || b.Dy() != 48 {
		t.Fatalf("sheet = %dx%d", b.Dx(), b.Dy())
	}

	if got := img.RGBAAt(pw+1, 10); got != gapColor {
		t.Fatalf("gap pixel = %v, want %v", got, gapColor)
	}
	if got := img.RGBAAt(0, 0); got != borderColor {
		t.Fatalf("corner pixel = %v, want border", got)
	}
	// Smoothing walls off chunk corners.
	if got := img.RGBAAt(PanelX(PanelSmoothed, pw)+1, 1); got != solidColor {
		t.Fatalf("smoothed corner = %v, want solid", got)
	}
}

func TestChunkSheetDrawsOutlines(t *testing.T) {
	m := testMap(t)
	if m.Totals().Shards == 0 {
		t.Skip("region produced no shards")
	}
	img := ChunkSheet(m, 4)
	pw, ph := PanelSize(m, 4)

	// The shards panel is the smoothed panel plus outlines.
	changed := 0
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if img.RGBAAt(PanelX(PanelShards, pw)+x, y) != img.RGBAAt(PanelX(PanelSmoothed, pw)+x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Fatal("no shard outlines on the shards panel")
	}

	// Strokes are clipped to their panel.
	for y := 0; y < ph; y++ {
		for x := PanelX(PanelShards, pw) - panelGap; x < PanelX(PanelShards, pw); x++ {
			if got := img.RGBAAt(x, y); got != gapColor {
				t.Fatalf("gap pixel (%d,%d) = %v, outlines leaked", x, y, got)
			}
		}
	}
}

func TestWritePNG(t *testing.T) {
	img := ChunkSheet(testMap(t), 1)
	path := filepath.Join(t.TempDir(), "sheet.png")
	if err := WritePNG(path, img); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("decoded bounds %v, want %v", decoded.Bounds(), img.Bounds())
	}

	if err := WritePNG(filepath.Join(t.TempDir(), "missing", "sheet.png"), img); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFillBinaryRGBA(t *testing.T) {
	buf := make([]byte, 8)
	on := color.RGBA{1, 2, 3, 255}
	off := color.RGBA{9, 8, 7, 255}
	fillBinaryRGBA(buf, []uint8{1, 0}, on, off)
	want := []byte{1, 2, 3, 255, 9, 8, 7, 255}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestFillGrayRGBAClamps(t *testing.T) {
	buf := make([]byte, 12)
	fillGrayRGBA(buf, []float32{-2, 0, 2})
	if buf[0] != 0 || buf[4] != 127 || buf[8] != 255 || buf[11] != 0xff {
		t.Fatalf("buf = %v", buf)
	}
}
