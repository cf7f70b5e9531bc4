//go:build !windows

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"todoperf/internal/config"
	"todoperf/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "TODOPERF_APP_HELPER"

// TestHelperProcess is a server that ignores SIGTERM and never answers a
// create. It records its PID and the first create in the directory named by
// the environment.
func TestHelperProcess(t *testing.T) {
	dir := os.Getenv(helperEnv)
	if dir == "" {
		return
	}
	signal.Ignore(syscall.SIGTERM)
	_ = os.WriteFile(filepath.Join(dir, "pid"), []byte(strconv.Itoa(os.Getpid())), 0o644)

	mux := http.NewServeMux()
	mux.HandleFunc("/todos", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = os.WriteFile(filepath.Join(dir, "posted"), nil, 0o644)
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"todos":[]}`))
	})
	_ = http.ListenAndServe("127.0.0.1:"+os.Getenv("TODOPERF_HELPER_PORT"), mux)
	os.Exit(0)
}

func TestApplication_CancelKillsSpawnedServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	dir := t.TempDir()
	t.Setenv(helperEnv, dir)
	t.Setenv("TODOPERF_HELPER_PORT", strconv.Itoa(port))

	harness := testHarness(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	harness.Server.Command = []string{os.Args[0], "-test.run=^TestHelperProcess$"}
	harness.Server.Startup = retry.Fixed(50, 100*time.Millisecond)
	harness.Server.ShutdownTimeout = 30 * time.Second

	application := newTestApp(t, &Config{
		Harness:   harness,
		Selection: Selection{Kinds: []string{config.KindTodos}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			if _, err := os.Stat(filepath.Join(dir, "posted")); err == nil {
				cancel()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	start := time.Now()
	err = application.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	assert.Less(t, time.Since(start), harness.Server.ShutdownTimeout)

	data, err := os.ReadFile(filepath.Join(dir, "pid"))
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(data))
	require.NoError(t, err)
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
}
