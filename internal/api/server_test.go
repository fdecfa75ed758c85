package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/cavegen/internal/persistence"
	"github.com/talgya/cavegen/internal/world"
)

func newTestServer(t *testing.T, withRun bool) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := &Server{DB: db}
	if withRun {
		cfg := world.SmallTestConfig()
		gen, err := world.NewGenerator(cfg)
		if err != nil {
			t.Fatal(err)
		}
		s.Map = gen.GenerateRegion(0, 0, 1, 0)
		run, err := db.BeginRun(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := db.SaveMap(run, s.Map); err != nil {
			t.Fatal(err)
		}
	}
	h := s.Handler()
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, h
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t, true)
	rec := get(h, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Name   string `json:"name"`
		Sheet  bool   `json:"sheet"`
		Chunks int    `json:"chunks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Name != "cavegen" || !body.Sheet || body.Chunks != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestChunkRoutes(t *testing.T) {
	_, h := newTestServer(t, true)

	rec := get(h, "/api/v1/chunks")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Run    string                 `json:"run"`
		Chunks []persistence.ChunkRow `json:"chunks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Run == "" || len(list.Chunks) != 2 {
		t.Fatalf("list = %+v", list)
	}

	rec = get(h, "/api/v1/chunks/0/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	var detail struct {
		Chunk  world.ChunkCoord       `json:"chunk"`
		Shards []persistence.ShardRow `json:"shards"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	if detail.Chunk != (world.ChunkCoord{}) || len(detail.Shards) != list.Chunks[0].Shards {
		t.Fatalf("detail = chunk %v with %d shards, want %d", detail.Chunk, len(detail.Shards), list.Chunks[0].Shards)
	}

	cases := map[string]int{
		"/api/v1/chunks/9/9":            http.StatusNotFound,
		"/api/v1/chunks/a/b":            http.StatusBadRequest,
		"/api/v1/chunks/1":              http.StatusBadRequest,
		"/api/v1/chunks/0/0?run=absent": http.StatusNotFound,
	}
	for path, want := range cases {
		if rec := get(h, path); rec.Code != want {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestGetOnly(t *testing.T) {
	_, h := newTestServer(t, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chunks", strings.NewReader("{}")))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestNoRunsYet(t *testing.T) {
	_, h := newTestServer(t, false)
	if rec := get(h, "/api/v1/chunks"); rec.Code != http.StatusNotFound {
		t.Fatalf("chunk list status = %d, want 404", rec.Code)
	}
	if rec := get(h, "/api/v1/status"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec := get(h, "/api/v1/sheet.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("sheet without a region = %d, want 404", rec.Code)
	}
}

func TestSheet(t *testing.T) {
	s, h := newTestServer(t, true)

	rec := get(h, "/api/v1/sheet.png?scale=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Fatal("body is not a PNG")
	}
	if len(s.sheetCache) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(s.sheetCache))
	}

	if rec := get(h, "/api/v1/sheet.png?scale=99"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad scale status = %d, want 400", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("limits are per client")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("retry after = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window reset should allow again")
	}

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	if len(rl.buckets) != 0 {
		t.Fatalf("stale buckets kept: %d", len(rl.buckets))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 192.168.0.1")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second request = %d, retry %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := clientIP(plain); got != "192.0.2.1" {
		t.Fatalf("clientIP without proxy = %q", got)
	}
}
