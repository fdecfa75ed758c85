package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/talgya/cavegen/internal/noise"
	"github.com/talgya/cavegen/internal/shard"
)

// ErrInvalidConfig is wrapped by every GenConfig validation failure.
var ErrInvalidConfig = errors.New("invalid generation config")

// Material is the physics surface applied to every shard fixture.
type Material struct {
	Density     float64 `json:"density"`
	Friction    float64 `json:"friction"`
	Restitution float64 `json:"restitution"`
}

// GenConfig holds cave generation parameters. Build it once, validate it,
// then pass it by value; nothing downstream mutates it.
type GenConfig struct {
	Seed      int64      `json:"seed"`
	NoiseKind noise.Kind `json:"noise_kind"`
	Frequency float64    `json:"frequency"`
	Octaves   int        `json:"octaves"`
	Threshold float64    `json:"threshold"` // solid where (noise+1)/2 < Threshold

	SmoothIterations       int  `json:"smooth_iterations"`
	SolidNeighborThreshold int  `json:"solid_neighbor_threshold"`
	FillIsolatedVoids      bool `json:"fill_isolated_voids"`

	ChunkSize int     `json:"chunk_size"` // cells per chunk side
	CellSize  float64 `json:"cell_size"`  // world units per cell

	MinShardArea       float64 `json:"min_shard_area"`      // cells²
	EnclosureThreshold float64 `json:"enclosure_threshold"` // overlap ratio that drops a shard

	Shard    shard.Params `json:"shard"`
	Material Material     `json:"material"`
}

// DefaultGenConfig returns the tuned production configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:                   12345,
		NoiseKind:              noise.KindOpenSimplex,
		Frequency:              0.02,
		Octaves:                4,
		Threshold:              0.45,
		SmoothIterations:       2,
		SolidNeighborThreshold: 5,
		FillIsolatedVoids:      true,
		ChunkSize:              64,
		CellSize:               2,
		MinShardArea:           0.5,
		EnclosureThreshold:     0.8,
		Shard:                  shard.DefaultParams(),
		Material: Material{
			Density:     1,
			Friction:    0.7,
			Restitution: 0.1,
		},
	}
}

// SmallTestConfig returns tiny chunks for fast iteration and tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	cfg.ChunkSize = 24
	cfg.Frequency = 0.08
	return cfg
}

// Validate checks ranges that would otherwise surface as panics or empty
// output deep in the pipeline.
func (c GenConfig) Validate() error {
	switch {
	case c.Octaves < 1:
		return fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidConfig, c.Octaves)
	case c.Frequency <= 0:
		return fmt.Errorf("%w: frequency must be > 0, got %g", ErrInvalidConfig, c.Frequency)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in [0,1], got %g", ErrInvalidConfig, c.Threshold)
	case c.SmoothIterations < 0:
		return fmt.Errorf("%w: smooth iterations must be >= 0, got %d", ErrInvalidConfig, c.SmoothIterations)
	case c.SolidNeighborThreshold < 0 || c.SolidNeighborThreshold > 8:
		return fmt.Errorf("%w: solid neighbor threshold must be in [0,8], got %d", ErrInvalidConfig, c.SolidNeighborThreshold)
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk size must be >= 1, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.CellSize <= 0:
		return fmt.Errorf("%w: cell size must be > 0, got %g", ErrInvalidConfig, c.CellSize)
	case c.MinShardArea < 0:
		return fmt.Errorf("%w: min shard area must be >= 0, got %g", ErrInvalidConfig, c.MinShardArea)
	case c.Shard.MinSites < 1 || c.Shard.MaxSites < c.Shard.MinSites:
		return fmt.Errorf("%w: site bounds [%d,%d]", ErrInvalidConfig, c.Shard.MinSites, c.Shard.MaxSites)
	case c.Shard.CellsPerSite < 1:
		return fmt.Errorf("%w: cells per site must be >= 1, got %d", ErrInvalidConfig, c.Shard.CellsPerSite)
	case c.Shard.BridgeRepairPasses < 1:
		return fmt.Errorf("%w: bridge repair passes must be >= 1, got %d", ErrInvalidConfig, c.Shard.BridgeRepairPasses)
	case c.Shard.LongBridgeRun < 1:
		return fmt.Errorf("%w: long bridge run must be >= 1, got %d", ErrInvalidConfig, c.Shard.LongBridgeRun)
	case c.Shard.SamplesPerUnit < 1:
		return fmt.Errorf("%w: samples per unit must be >= 1, got %d", ErrInvalidConfig, c.Shard.SamplesPerUnit)
	case c.Shard.MaxConvexIterations < 0:
		return fmt.Errorf("%w: max convex iterations must be >= 0, got %d", ErrInvalidConfig, c.Shard.MaxConvexIterations)
	}
	return nil
}

// LoadConfig starts from DefaultGenConfig and overlays the JSON file at
// path. A missing file is not an error.
func LoadConfig(path string) (GenConfig, error) {
	cfg := DefaultGenConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("no config file found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	slog.Info("config loaded", "path", path, "seed", cfg.Seed, "chunk_size", cfg.ChunkSize)
	return cfg, nil
}
