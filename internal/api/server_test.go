package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logger"
	"github.com/cloudseek/cloudseek/internal/metrics"
	"github.com/cloudseek/cloudseek/internal/provider"
	"github.com/cloudseek/cloudseek/internal/provider/snapshot"
	"github.com/cloudseek/cloudseek/internal/search"
)

type testServer struct {
	*Server
	cache *cache.Cache
	logs  *logger.Recent
}

func setupTestServer(t *testing.T, serverCfg config.ServerConfig) *testServer {
	t.Helper()

	c, err := cache.New(cache.Config{MaxSize: 100, DefaultTTL: time.Hour, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	reg := provider.NewRegistry()
	reg.Register(snapshot.NewFromItems(snapshot.Options{
		Kind:          provider.KindRealDebrid,
		StreamBaseURL: "https://stream.test",
	}, []snapshot.Item{
		{ID: "d1", Name: "The.Matrix.1999.1080p.mkv", Kind: "download", Size: 900},
	}, zerolog.Nop()))

	logs := logger.NewRecent(50)
	log := zerolog.New(logs)

	m := metrics.New()
	coordinator := search.NewCoordinator(search.Deps{Providers: reg, Metrics: m}, search.DefaultConfig(), log)

	s := NewServer(Deps{
		Config:    serverCfg,
		Search:    coordinator,
		Cache:     c,
		Metrics:   m,
		Providers: reg,
		Logs:      logs,
	}, log)
	return &testServer{Server: s, cache: c, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.Version, body["version"])
}

func TestSearchEndToEnd(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/api/v1/search?title=The+Matrix&type=movie&provider=realdebrid")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Results, 1)
	assert.Equal(t, "d1", result.Results[0].ID)
	assert.NotEmpty(t, result.Results[0].Video.StreamURL)

	entries := ts.logs.Entries(logger.Filter{QueryID: result.QueryID})
	assert.NotEmpty(t, entries, "query logs are tagged with the query id")

	rec = ts.do(t, http.MethodGet, "/api/v1/logs?queryId="+result.QueryID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Search completed")
}

func TestSearchRejectsBadInput(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/api/v1/search?title=Show&type=series&provider=realdebrid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "season/episode")

	rec = ts.do(t, http.MethodGet, "/api/v1/search?title=Show&type=movie&provider=dropbox")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRateLimit(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{SearchRateLimit: 1})

	first := ts.do(t, http.MethodGet, "/api/v1/search?title=The+Matrix&type=movie&provider=rd")
	assert.Equal(t, http.StatusOK, first.Code)
	second := ts.do(t, http.MethodGet, "/api/v1/search?title=The+Matrix&type=movie&provider=rd")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health").Code, "only search is limited")
}

func TestCacheEndpoints(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})
	require.NoError(t, ts.cache.Set("parser:a.mkv", "x", 0, map[string]any{"class": "parse"}))
	require.NoError(t, ts.cache.Set("parser:b.mkv", "y", 0, nil))
	require.NoError(t, ts.cache.Set("meta:abs:tt1:1:1", 1, 0, nil))

	rec := ts.do(t, http.MethodGet, "/api/v1/cache?pattern=^parser:")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []CacheEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "parser:a.mkv", entries[0].Key)
	assert.Nil(t, entries[0].Value)
	assert.Equal(t, "parse", entries[0].Metadata["class"])

	rec = ts.do(t, http.MethodGet, "/api/v1/cache?pattern=^meta:&values=true")
	assert.Contains(t, rec.Body.String(), `"value":1`)

	rec = ts.do(t, http.MethodGet, "/api/v1/cache?pattern=(")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cache?pattern=^parser:")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())
	assert.Equal(t, 1, ts.cache.Len())

	rec = ts.do(t, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 100, stats.MaxSize)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cache")
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())
}

func TestParseEndpoint(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/api/v1/parse?name=Breaking.Bad.S01E02.1080p.BluRay.x264-GROUP.mkv")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ParseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsVideo)
	require.NotNil(t, body.Parsed)
	assert.Equal(t, "Breaking Bad", body.Parsed.Title)
	assert.Equal(t, 2, *body.Parsed.Episode)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/parse").Code)
}

func TestProvidersAndMetrics(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/api/v1/providers")
	assert.JSONEq(t, `{"providers":["realdebrid"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cloudseek_http_requests_total")
}

func TestLogDownload(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/logs/download").Code)

	path := filepath.Join(t.TempDir(), logger.FileName)
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))
	h := NewLogsHandlers(ts.logs, path)
	h.RegisterRoutes(ts.echo.Group("/alt/logs"))

	rec := ts.do(t, http.MethodGet, "/alt/logs/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line\n", rec.Body.String())
}

func TestShutdown(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{SearchRateLimit: 5})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, ts.Shutdown(ctx))
}

func TestJSONSerializer_RejectsBadBody(t *testing.T) {
	ts := setupTestServer(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"title": 5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(
		`{"title":"The Matrix","contentType":"movie","provider":"realdebrid"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Results, 1)
	assert.Equal(t, string(provider.KindRealDebrid), result.Results[0].Source)
}
