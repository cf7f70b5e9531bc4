package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todoperf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
base_url: http://127.0.0.1:9000
results_dir: out
server:
  startup:
    max_attempts: 2
    delay: 250ms
sweep:
  settle_between_ops: 0s
entities:
  todos:
    singular: todo
    sizes: [1, 2]
    format: xml
    list_ids: todos[].id
    created_id: id
    create:
      - name: title
        template: "{{ randAlphaNum 4 }}"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", cfg.BaseURL)
	assert.Equal(t, "out", cfg.ResultsDir)
	assert.Equal(t, 2, cfg.Server.Startup.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.Startup.Delay)
	assert.Equal(t, time.Duration(0), cfg.Sweep.SettleBetweenOps)

	// Untouched values keep their defaults.
	assert.Equal(t, "/shutdown", cfg.Server.ShutdownPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Sweep.SettleAfterClear)

	todos, err := cfg.Entity(KindTodos)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, todos.Sizes)
	assert.Equal(t, FormatXML, todos.Format)

	_, err = cfg.Entity(KindProjects)
	assert.NoError(t, err, "kinds absent from the file keep their defaults")
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfigFile(t, "base_url: [unclosed")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfigFile(t, `
base_url: not-a-url
sweep:
  clear_passes: 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestDefaultConfig_RoundTripsThroughYAML(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	path := writeConfigFile(t, string(data))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestEntity_Unknown(t *testing.T) {
	_, err := DefaultConfig().Entity("widgets")
	assert.EqualError(t, err, `unknown entity kind "widgets"`)
}
