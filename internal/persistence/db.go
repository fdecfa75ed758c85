// Package persistence stores generated cave runs in SQLite.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/world"
)

// ErrChunkNotFound is returned when a run has no row for a chunk.
var ErrChunkNotFound = errors.New("chunk not found")

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("no runs recorded")

// RunID identifies one generation run.
type RunID string

// Run is a stored generation run.
type Run struct {
	ID        RunID     `db:"id" json:"id"`
	Seed      int64     `db:"seed" json:"seed"`
	Config    string    `db:"config_json" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GenConfig decodes the run's stored configuration.
func (r Run) GenConfig() (world.GenConfig, error) {
	var cfg world.GenConfig
	if err := json.Unmarshal([]byte(r.Config), &cfg); err != nil {
		return cfg, fmt.Errorf("decode run %s config: %w", r.ID, err)
	}
	return cfg, nil
}

// ChunkRow summarises one stored chunk.
type ChunkRow struct {
	CX         int `db:"cx" json:"cx"`
	CY         int `db:"cy" json:"cy"`
	Islands    int `db:"islands" json:"islands"`
	Shards     int `db:"shards" json:"shards"`
	SolidCells int `db:"solid_cells" json:"solid_cells"`
}

// ShardRow is one stored shard in world units.
type ShardRow struct {
	Island  int          `json:"island"`
	Index   int          `json:"index"`
	PosX    float64      `json:"pos_x"`
	PosY    float64      `json:"pos_y"`
	Polygon geom.Polygon `json:"polygon"` // relative to (PosX, PosY)
}

// DB wraps a SQLite connection for cave persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		run_id TEXT NOT NULL,
		cx INTEGER NOT NULL,
		cy INTEGER NOT NULL,
		islands INTEGER NOT NULL,
		shards INTEGER NOT NULL,
		solid_cells INTEGER NOT NULL,
		PRIMARY KEY (run_id, cx, cy)
	);

	CREATE TABLE IF NOT EXISTS shards (
		run_id TEXT NOT NULL,
		cx INTEGER NOT NULL,
		cy INTEGER NOT NULL,
		island INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		polygon_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shards_chunk ON shards(run_id, cx, cy);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun records a new run for cfg and returns its ID.
func (db *DB) BeginRun(cfg world.GenConfig) (RunID, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	id := RunID(uuid.NewString())
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, config_json, created_at) VALUES (?, ?, ?, ?)",
		string(id), cfg.Seed, string(cfgJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run", id, "seed", cfg.Seed)
	return id, nil
}

// SaveChunk writes a chunk and its shards, replacing any previous copy
// stored under the same run.
func (db *DB) SaveChunk(run RunID, c *world.Chunk) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cx, cy := c.Coord.X, c.Coord.Y
	if _, err := tx.Exec("DELETE FROM shards WHERE run_id = ? AND cx = ? AND cy = ?", string(run), cx, cy); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO chunks
		(run_id, cx, cy, islands, shards, solid_cells) VALUES (?, ?, ?, ?, ?, ?)`,
		string(run), cx, cy, c.Stats.Islands, c.Stats.Shards, c.Stats.SolidCells,
	); err != nil {
		return fmt.Errorf("insert chunk %s: %w", c.Coord, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO shards
		(run_id, cx, cy, island, idx, pos_x, pos_y, polygon_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for ii, is := range c.Islands {
		for si, s := range is.Shards {
			polyJSON, err := json.Marshal(s.Polygon)
			if err != nil {
				return fmt.Errorf("encode shard %d/%d: %w", ii, si, err)
			}
			if _, err := stmt.Exec(string(run), cx, cy, ii, si, s.Position[0], s.Position[1], string(polyJSON)); err != nil {
				return fmt.Errorf("insert shard %d/%d of chunk %s: %w", ii, si, c.Coord, err)
			}
		}
	}

	return tx.Commit()
}

// SaveMap stores every chunk of m under run.
func (db *DB) SaveMap(run RunID, m *world.Map) error {
	slog.Info("saving map", "run", run, "chunks", m.ChunkCount())
	for _, coord := range m.Coords() {
		if err := db.SaveChunk(run, m.Get(coord)); err != nil {
			return fmt.Errorf("save chunk %s: %w", coord, err)
		}
	}
	if err := db.SaveMeta("last_run", string(run)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	slog.Info("map saved", "run", run)
	return nil
}

// LoadShards returns the stored shards of one chunk in island/index order.
func (db *DB) LoadShards(run RunID, cx, cy int) ([]ShardRow, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM chunks WHERE run_id = ? AND cx = ? AND cy = ?", string(run), cx, cy); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: run %s chunk (%d,%d)", ErrChunkNotFound, run, cx, cy)
	}

	var rows []struct {
		Island  int     `db:"island"`
		Idx     int     `db:"idx"`
		PosX    float64 `db:"pos_x"`
		PosY    float64 `db:"pos_y"`
		Polygon string  `db:"polygon_json"`
	}
	err := db.conn.Select(&rows, `SELECT island, idx, pos_x, pos_y, polygon_json FROM shards
		WHERE run_id = ? AND cx = ? AND cy = ? ORDER BY island, idx`, string(run), cx, cy)
	if err != nil {
		return nil, err
	}

	out := make([]ShardRow, 0, len(rows))
	for _, r := range rows {
		var poly geom.Polygon
		if err := json.Unmarshal([]byte(r.Polygon), &poly); err != nil {
			return nil, fmt.Errorf("decode shard %d/%d: %w", r.Island, r.Idx, err)
		}
		out = append(out, ShardRow{Island: r.Island, Index: r.Idx, PosX: r.PosX, PosY: r.PosY, Polygon: poly})
	}
	return out, nil
}

// ListChunks returns the chunk summaries of a run in row-major order.
func (db *DB) ListChunks(run RunID) ([]ChunkRow, error) {
	var rows []ChunkRow
	err := db.conn.Select(&rows,
		"SELECT cx, cy, islands, shards, solid_cells FROM chunks WHERE run_id = ? ORDER BY cy, cx",
		string(run),
	)
	return rows, err
}

// GetRun loads a run by ID.
func (db *DB) GetRun(id RunID) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, seed, config_json, created_at FROM runs WHERE id = ?", string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("run %s: %w", id, ErrNoRuns)
	}
	return r, err
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, seed, config_json, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNoRuns
	}
	return r, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
