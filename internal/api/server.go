// Package api serves stored cave runs over HTTP. Every endpoint is a
// read-only GET; nothing is generated on request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/cavegen/internal/persistence"
	"github.com/talgya/cavegen/internal/render"
	"github.com/talgya/cavegen/internal/world"
)

const maxSheetScale = 8

// Server serves stored runs and, when Map is set, its debug sheet.
type Server struct {
	DB   *persistence.DB
	Map  *world.Map // region generated by this process; nil disables sheet.png
	Port int

	httpSrv      *http.Server
	sheetLimiter *RateLimiter

	sheetMu    sync.Mutex
	sheetCache map[int][]byte // scale → encoded PNG
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.sheetLimiter == nil {
		s.sheetLimiter = NewRateLimiter(30, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/chunks", s.handleChunkRoutes)
	mux.HandleFunc("/api/v1/chunks/", s.handleChunkRoutes)
	mux.HandleFunc("/api/v1/sheet.png", RateLimitMiddleware(s.sheetLimiter, s.handleSheet))
	return corsMiddleware(getOnly(mux))
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "sheet", s.Map != nil)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sheetLimiter != nil {
		s.sheetLimiter.Close()
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveRun picks ?run= or the latest run.
func (s *Server) resolveRun(r *http.Request) (persistence.Run, error) {
	if id := r.URL.Query().Get("run"); id != "" {
		return s.DB.GetRun(persistence.RunID(id))
	}
	return s.DB.LatestRun()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":  "cavegen",
		"sheet": s.Map != nil,
	}
	run, err := s.DB.LatestRun()
	switch {
	case errors.Is(err, persistence.ErrNoRuns):
		status["run"] = nil
	case err != nil:
		slog.Error("status lookup failed", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	default:
		chunks, err := s.DB.ListChunks(run.ID)
		if err != nil {
			slog.Error("status chunk list failed", "run", run.ID, "error", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		shards := 0
		for _, c := range chunks {
			shards += c.Shards
		}
		status["run"] = run
		status["chunks"] = len(chunks)
		status["shards"] = shards
	}
	if s.Map != nil {
		status["region"] = map[string]any{"min": s.Map.Min, "max": s.Map.Max}
	}
	writeJSON(w, status)
}

// handleChunkRoutes dispatches between the chunk list (GET /api/v1/chunks)
// and chunk detail (GET /api/v1/chunks/:x/:y).
func (s *Server) handleChunkRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/chunks")
	if path == "" || path == "/" {
		s.handleChunkList(w, r)
		return
	}
	s.handleChunkDetail(w, r)
}

func (s *Server) handleChunkList(w http.ResponseWriter, r *http.Request) {
	run, err := s.resolveRun(r)
	if err != nil {
		writeRunError(w, err)
		return
	}
	chunks, err := s.DB.ListChunks(run.ID)
	if err != nil {
		slog.Error("chunk list failed", "run", run.ID, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"run": run.ID, "chunks": chunks})
}

func (s *Server) handleChunkDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	// /api/v1/chunks/:x/:y → parts[0]="" [1]="api" [2]="v1" [3]="chunks" [4]=x [5]=y
	if len(parts) < 6 {
		http.Error(w, "usage: /api/v1/chunks/:x/:y", http.StatusBadRequest)
		return
	}
	cx, err1 := strconv.Atoi(parts[4])
	cy, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	run, err := s.resolveRun(r)
	if err != nil {
		writeRunError(w, err)
		return
	}
	shards, err := s.DB.LoadShards(run.ID, cx, cy)
	if errors.Is(err, persistence.ErrChunkNotFound) {
		http.Error(w, "chunk not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("shard load failed", "run", run.ID, "cx", cx, "cy", cy, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"run":    run.ID,
		"chunk":  world.ChunkCoord{X: cx, Y: cy},
		"shards": shards,
	})
}

func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	if s.Map == nil {
		http.Error(w, "no region loaded", http.StatusNotFound)
		return
	}
	scale := 2
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSheetScale {
			http.Error(w, fmt.Sprintf("scale must be 1..%d", maxSheetScale), http.StatusBadRequest)
			return
		}
		scale = n
	}

	data, err := s.sheet(scale)
	if err != nil {
		slog.Error("sheet render failed", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) sheet(scale int) ([]byte, error) {
	s.sheetMu.Lock()
	defer s.sheetMu.Unlock()

	if data, ok := s.sheetCache[scale]; ok {
		return data, nil
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, render.ChunkSheet(s.Map, scale)); err != nil {
		return nil, err
	}
	if s.sheetCache == nil {
		s.sheetCache = make(map[int][]byte)
	}
	s.sheetCache[scale] = buf.Bytes()
	return buf.Bytes(), nil
}

func writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrNoRuns) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	slog.Error("run lookup failed", "error", err)
	http.Error(w, "database error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
