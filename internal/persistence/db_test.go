package persistence

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/talgya/cavegen/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cave.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LatestRun(); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("err = %v, want ErrNoRuns", err)
	}
	if _, err := db.LoadShards("nope", 0, 0); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("err = %v, want ErrChunkNotFound", err)
	}
}

func TestSaveAndLoadChunk(t *testing.T) {
	db := openTestDB(t)
	cfg := world.SmallTestConfig()
	gen, err := world.NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	chunk, _ := gen.GenerateChunk(0, 0)

	run, err := db.BeginRun(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveChunk(run, chunk); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces rather than duplicates.
	if err := db.SaveChunk(run, chunk); err != nil {
		t.Fatal(err)
	}

	rows, err := db.ListChunks(run)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Shards != chunk.Stats.Shards || rows[0].Islands != chunk.Stats.Islands {
		t.Fatalf("chunk rows = %+v, stats = %+v", rows, chunk.Stats)
	}

	shards, err := db.LoadShards(run, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := chunk.Shards()
	if len(shards) != len(want) {
		t.Fatalf("loaded %d shards, want %d", len(shards), len(want))
	}
	for i, s := range shards {
		if s.PosX != want[i].Position[0] || s.PosY != want[i].Position[1] {
			t.Fatalf("shard %d position (%v,%v), want %v", i, s.PosX, s.PosY, want[i].Position)
		}
		if !slices.Equal(s.Polygon, want[i].Polygon) {
			t.Fatalf("shard %d polygon changed in storage", i)
		}
	}

	if _, err := db.LoadShards(run, 5, 5); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("err = %v, want ErrChunkNotFound", err)
	}
}

func TestRunsAndMeta(t *testing.T) {
	db := openTestDB(t)
	cfg := world.SmallTestConfig()

	first, err := db.BeginRun(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Seed = 777
	second, err := db.BeginRun(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("run IDs must be unique")
	}

	latest, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second || latest.Seed != 777 {
		t.Fatalf("latest = %+v, want run %s", latest, second)
	}
	stored, err := latest.GenConfig()
	if err != nil {
		t.Fatal(err)
	}
	if stored.Seed != 777 || stored.ChunkSize != cfg.ChunkSize {
		t.Fatalf("stored config = %+v", stored)
	}

	got, err := db.GetRun(first)
	if err != nil || got.Seed != world.SmallTestConfig().Seed {
		t.Fatalf("GetRun = %+v, %v", got, err)
	}
	if _, err := db.GetRun("missing"); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("err = %v, want ErrNoRuns", err)
	}

	if err := db.SaveMeta("last_run", string(second)); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMeta("last_run"); err != nil || v != string(second) {
		t.Fatalf("meta = %q, %v", v, err)
	}
}

func TestSaveMap(t *testing.T) {
	db := openTestDB(t)
	cfg := world.SmallTestConfig()
	gen, _ := world.NewGenerator(cfg)
	m := gen.GenerateRegion(0, 0, 1, 0)

	run, err := db.BeginRun(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMap(run, m); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListChunks(run)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].CX != 0 || rows[1].CX != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if v, _ := db.GetMeta("last_run"); v != string(run) {
		t.Fatalf("last_run = %q, want %q", v, run)
	}
}
