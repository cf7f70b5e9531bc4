package instance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"todoperf/internal/config"
	"todoperf/internal/retry"
	"todoperf/internal/todoapi"
	"todoperf/internal/todoapi/todoapitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachConfig() config.ServerConfig {
	cfg := config.DefaultConfig().Server
	cfg.Command = nil
	cfg.Startup = retry.Fixed(3, 0)
	cfg.ProbeTimeout = time.Second
	return cfg
}

func TestManager_Attach(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	m := NewManager(attachConfig(), todoapi.NewClient(srv.URL, time.Second))
	inst, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.True(t, inst.Attached())
	assert.False(t, inst.Exited())
	assert.Zero(t, inst.PID)
	assert.Equal(t, srv.URL, inst.BaseURL)
	assert.Equal(t, 1, srv.Calls("GET /todos"))

	m.Stop(context.Background(), inst)
	assert.Zero(t, srv.Shutdowns(), "attached servers are left running")
}

func TestManager_AttachShutdownOnExit(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	cfg := attachConfig()
	cfg.ShutdownOnExit = true
	m := NewManager(cfg, todoapi.NewClient(srv.URL, time.Second))

	inst, err := m.Start(context.Background())
	require.NoError(t, err)

	m.Stop(context.Background(), inst)
	assert.Equal(t, 1, srv.Shutdowns())
}

func TestManager_StopToleratesDroppedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/shutdown" {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := attachConfig()
	cfg.ShutdownOnExit = true
	m := NewManager(cfg, todoapi.NewClient(srv.URL, time.Second))

	inst, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.Stop(context.Background(), inst) })
}

func TestManager_AttachNotReady(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewManager(attachConfig(), todoapi.NewClient(srv.URL, time.Second))
	_, err := m.Start(context.Background())

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, 3, startupErr.Attempts)
	assert.Equal(t, int32(3), probes.Load())
	assert.Equal(t, srv.URL+"/todos", startupErr.URL)

	var statusErr *todoapi.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestManager_AttachUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewManager(attachConfig(), todoapi.NewClient(url, time.Second))
	_, err := m.Start(context.Background())

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, 3, startupErr.Attempts)
}

func TestManager_SpawnFailure(t *testing.T) {
	cfg := attachConfig()
	cfg.Command = []string{"/nonexistent/todo-manager-binary"}

	m := NewManager(cfg, todoapi.NewClient("http://127.0.0.1:1", time.Second))
	_, err := m.Start(context.Background())

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Zero(t, startupErr.Attempts)
}

func TestManager_StopNil(t *testing.T) {
	m := NewManager(attachConfig(), todoapi.NewClient("http://127.0.0.1:1", time.Second))
	assert.NotPanics(t, func() { m.Stop(context.Background(), nil) })
}

func TestLogs_Combined(t *testing.T) {
	assert.Equal(t, "", Logs{}.Combined())
	assert.Equal(t, "=== STDOUT ===\nup\n", Logs{Stdout: "up\n"}.Combined())
	assert.Equal(t, "=== STDOUT ===\nup\n\n=== STDERR ===\nwarn\n", Logs{Stdout: "up\n", Stderr: "warn\n"}.Combined())
}

func TestParsePIDs(t *testing.T) {
	assert.Equal(t, []int{12, 345}, parsePIDs("12\n345\n\nnot-a-pid\n"))
	assert.Nil(t, parsePIDs(""))
}

func TestCleanupStale_NoCommand(t *testing.T) {
	assert.Zero(t, CleanupStale(nil))
}
