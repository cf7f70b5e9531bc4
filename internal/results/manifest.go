package results

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ManifestFile is written next to the results of a run.
const ManifestFile = "manifest.json"

// Manifest describes a run.
type Manifest struct {
	RunID      string            `json:"run_id"`
	Version    string            `json:"version"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	BaseURL    string            `json:"base_url"`
	Kinds      []string          `json:"kinds"`
	Files      map[string]string `json:"files"`
	Error      string            `json:"error,omitempty"`
}

// NewManifest starts a manifest with a fresh run id.
func NewManifest(version, baseURL string, startedAt time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Version:   version,
		StartedAt: startedAt,
		BaseURL:   baseURL,
		Kinds:     []string{},
		Files:     make(map[string]string),
	}
}

// AddFile records that kind was exported to path.
func (m *Manifest) AddFile(kind, path string) {
	m.Kinds = append(m.Kinds, kind)
	m.Files[kind] = filepath.Base(path)
}

// Write stores the manifest in dir.
func (m *Manifest) Write(dir string) (string, error) {
	path := filepath.Join(dir, ManifestFile)
	return path, WriteJSON(path, m)
}
