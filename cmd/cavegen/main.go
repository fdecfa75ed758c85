// Command cavegen generates a region of cave chunks, builds static physics
// bodies for every shard, stores the run in SQLite and writes a debug sheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/cavegen/internal/api"
	"github.com/talgya/cavegen/internal/noise"
	"github.com/talgya/cavegen/internal/persistence"
	"github.com/talgya/cavegen/internal/physics"
	"github.com/talgya/cavegen/internal/render"
	"github.com/talgya/cavegen/internal/world"
)

func main() {
	configPath := flag.String("config", "", "JSON config overlay (missing file = defaults)")
	seed := flag.Int64("seed", 0, "world seed (overrides config when set)")
	noiseKind := flag.String("noise", "", "noise source: opensimplex or perlin (overrides config when set)")
	radius := flag.Int("radius", 1, "chunks generated around the origin in each direction")
	dbPath := flag.String("db", "data/cavegen.db", "SQLite database path (empty = don't store)")
	pngPath := flag.String("png", "cave_sheet.png", "debug sheet output path (empty = skip)")
	cellPixels := flag.Int("scale", 4, "sheet pixels per grid cell")
	servePort := flag.Int("serve", 0, "serve the HTTP API on this port until interrupted (0 = off)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// ── Config ────────────────────────────────────────────────────────
	cfg, err := world.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "noise":
			cfg.NoiseKind = noise.Kind(*noiseKind)
		}
	})

	gen, err := world.NewGenerator(cfg)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("cave generator ready",
		"seed", cfg.Seed,
		"noise", gen.Field().Kind(),
		"chunk_size", cfg.ChunkSize,
		"cell_size", cfg.CellSize,
		"radius", *radius,
	)

	// ── Generation ────────────────────────────────────────────────────
	start := time.Now()
	center := world.ChunkCoord{}
	region := world.RegionAround(center, *radius)
	worldMap := gen.GenerateRegion(region[0].X, region[0].Y, region[len(region)-1].X, region[len(region)-1].Y)
	totals := worldMap.Totals()
	slog.Info("region generated",
		"chunks", worldMap.ChunkCount(),
		"islands", totals.Islands,
		"dropped_islands", totals.DroppedIslands,
		"shards", totals.Shards,
		"solid_pct", fmt.Sprintf("%.1f", 100*totals.SolidRatio()),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	// ── Physics ───────────────────────────────────────────────────────
	factory := physics.NewBox2DFactory()
	builder := physics.NewBuilder(factory, physics.MaterialFrom(cfg.Material))
	report := builder.BuildMap(worldMap)
	if report.Failed > 0 {
		slog.Warn("some shards were rejected by the physics engine", "failed", report.Failed)
	}

	// ── Debug sheet ───────────────────────────────────────────────────
	if *pngPath != "" {
		if err := render.WritePNG(*pngPath, render.ChunkSheet(worldMap, *cellPixels)); err != nil {
			slog.Error("failed to write sheet", "error", err)
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if *dbPath != "" {
		os.MkdirAll(filepath.Dir(*dbPath), 0755)
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", *dbPath)

		run, err := db.BeginRun(cfg)
		if err != nil {
			slog.Error("failed to start run", "error", err)
			os.Exit(1)
		}
		if err := db.SaveMap(run, worldMap); err != nil {
			slog.Error("save failed", "error", err)
		}
	}

	fmt.Printf("\nGenerated %d chunks: %d islands, %d shards, %d physics bodies (%d fixtures).\n",
		worldMap.ChunkCount(), totals.Islands, totals.Shards, report.Bodies, report.Fixtures)

	// ── HTTP API ──────────────────────────────────────────────────────
	if *servePort == 0 {
		return
	}
	if db == nil {
		slog.Error("-serve needs -db")
		os.Exit(1)
	}

	apiServer := &api.Server{DB: db, Map: worldMap, Port: *servePort}
	apiServer.Start()
	fmt.Printf("API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", *servePort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
