package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"todoperf/internal/config"
	"todoperf/internal/instance"
	"todoperf/internal/results"
	"todoperf/internal/retry"
	"todoperf/internal/todoapi/todoapitest"
	"todoperf/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHarness(t *testing.T, baseURL string) *config.HarnessConfig {
	t.Helper()
	h := config.DefaultConfig()
	h.BaseURL = baseURL
	h.ResultsDir = t.TempDir()
	h.RequestTimeout = 5 * time.Second
	h.Server.Command = nil
	h.Server.Startup = retry.Fixed(2, 0)
	h.Sampler.PrimeDelay = 0
	h.Sweep.Relations = retry.Fixed(1, 0)
	for kind, e := range h.Entities {
		e.Sizes = []int{1, 3}
		h.Entities[kind] = e
	}
	return &h
}

func newTestApp(t *testing.T, cfg *Config) *Application {
	t.Helper()
	cfg.Quiet = true
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	application.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return application
}

func readDocument(t *testing.T, path string) results.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc results.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestApplication_RunAll(t *testing.T) {
	srv := todoapitest.NewServer(config.KindOrder()...)
	defer srv.Close()

	harness := testHarness(t, srv.URL)
	application := newTestApp(t, &Config{Harness: harness, Version: "test"})
	require.NoError(t, application.Run(context.Background()))

	for _, kind := range config.KindOrder() {
		doc := readDocument(t, filepath.Join(harness.ResultsDir, kind+"_results.json"))
		assert.Len(t, doc.Create, 2, kind)
		assert.Len(t, doc.Update, 2, kind)
		assert.Len(t, doc.Delete, 2, kind)
		assert.Len(t, doc.TimeSeries, 6, kind)
	}

	data, err := os.ReadFile(filepath.Join(harness.ResultsDir, results.RelationshipsFile))
	require.NoError(t, err)
	var records []results.RelationRecord
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 6)

	data, err = os.ReadFile(filepath.Join(harness.ResultsDir, results.ManifestFile))
	require.NoError(t, err)
	var manifest results.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, []string{"todos", "projects", "categories", "relationships"}, manifest.Kinds)
	assert.Equal(t, "test", manifest.Version)
	assert.Empty(t, manifest.Error)
	assert.Zero(t, srv.Shutdowns(), "attached server keeps running")
}

func TestApplication_RunSelection(t *testing.T) {
	srv := todoapitest.NewServer(config.KindOrder()...)
	defer srv.Close()

	harness := testHarness(t, srv.URL)
	application := newTestApp(t, &Config{
		Harness:   harness,
		Selection: Selection{Kinds: []string{config.KindProjects}},
	})
	require.NoError(t, application.Run(context.Background()))

	assert.FileExists(t, filepath.Join(harness.ResultsDir, "projects_results.json"))
	assert.NoFileExists(t, filepath.Join(harness.ResultsDir, "todos_results.json"))
	assert.NoFileExists(t, filepath.Join(harness.ResultsDir, results.RelationshipsFile))
	assert.Zero(t, srv.Calls("POST /todos"))
}

func TestApplication_StartupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	harness := testHarness(t, srv.URL)
	application := newTestApp(t, &Config{Harness: harness})
	err := application.Run(context.Background())

	var startupErr *instance.StartupError
	require.True(t, errors.As(err, &startupErr))

	data, err := os.ReadFile(filepath.Join(harness.ResultsDir, results.ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "not ready")
}

func TestApplication_SummaryWritten(t *testing.T) {
	srv := todoapitest.NewServer(config.KindOrder()...)
	defer srv.Close()

	var out bytes.Buffer
	harness := testHarness(t, srv.URL)
	application, err := NewApplication(&Config{
		Harness:   harness,
		Selection: Selection{Kinds: []string{config.KindTodos}},
		Out:       &out,
		Log:       &bytes.Buffer{},
	})
	require.NoError(t, err)
	application.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	require.NoError(t, application.Run(context.Background()))
	assert.Contains(t, out.String(), "todos")
	assert.Contains(t, out.String(), "2 create")
}

func TestNewApplication_Overrides(t *testing.T) {
	harness := testHarness(t, "http://localhost:4567")
	harness.Server.Command = []string{"java", "-jar", "server.jar"}
	dir := t.TempDir()

	application := newTestApp(t, &Config{
		Harness:    harness,
		ResultsDir: dir,
		BaseURL:    "http://127.0.0.1:9999",
		Attach:     true,
	})

	got := application.Harness()
	assert.Equal(t, dir, got.ResultsDir)
	assert.Equal(t, "http://127.0.0.1:9999", got.BaseURL)
	assert.Empty(t, got.Server.Command)
	assert.Equal(t, All(), application.config.Selection)
}

func TestNewApplication_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) *Config
	}{
		{
			name: "unknown kind",
			cfg: func(t *testing.T) *Config {
				return &Config{Harness: testHarness(t, "http://localhost:4567"), Selection: Selection{Kinds: []string{"widgets"}}}
			},
		},
		{
			name: "invalid override",
			cfg: func(t *testing.T) *Config {
				return &Config{Harness: testHarness(t, "http://localhost:4567"), BaseURL: "not a url"}
			},
		},
		{
			name: "bad log level",
			cfg: func(t *testing.T) *Config {
				h := testHarness(t, "http://localhost:4567")
				h.LogLevel = "loud"
				return &Config{Harness: h}
			},
		},
		{
			name: "unreadable config file",
			cfg: func(t *testing.T) *Config {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte("base_url: [unclosed"), 0o644))
				return &Config{ConfigPath: path}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg(t)
			cfg.Quiet = true
			_, err := NewApplication(cfg)
			assert.Error(t, err)
		})
	}
}

func TestFlagLevel(t *testing.T) {
	assert.Equal(t, logging.LevelDebug, flagLevel(&Config{Debug: true}, logging.LevelWarn))
	assert.Equal(t, logging.LevelInfo, flagLevel(&Config{Verbose: true}, logging.LevelWarn))
	assert.Equal(t, logging.LevelDebug, flagLevel(&Config{Verbose: true}, logging.LevelDebug))
	assert.Equal(t, logging.LevelWarn, flagLevel(&Config{}, logging.LevelWarn))
}

func TestSelection(t *testing.T) {
	assert.True(t, Selection{}.Empty())
	assert.False(t, Selection{Relationships: true}.Empty())
	assert.Equal(t, config.KindOrder(), All().Kinds)
	assert.True(t, All().Relationships)
}
