package app

import (
	"io"

	"todoperf/internal/config"
)

// Config holds the runtime options of one invocation.
type Config struct {
	// Debug enables debug logging, Verbose info logging. Quiet discards logs
	// and disables progress output.
	Debug   bool
	Verbose bool
	Quiet   bool

	// ConfigPath is the harness configuration file, empty for defaults.
	ConfigPath string
	// ResultsDir and BaseURL override the configuration file when set.
	ResultsDir string
	BaseURL    string
	// Attach ignores the configured server command.
	Attach bool

	Selection Selection
	Version   string

	// Out receives summaries, Log receives log output.
	Out io.Writer
	Log io.Writer

	// Harness is loaded by NewApplication unless preset.
	Harness *config.HarnessConfig
}

// Selection names what a run measures.
type Selection struct {
	Kinds         []string
	Relationships bool
}

// All selects every configured kind plus the relationship benchmark.
func All() Selection {
	return Selection{Kinds: config.KindOrder(), Relationships: true}
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s.Kinds) == 0 && !s.Relationships
}
