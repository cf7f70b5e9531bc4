package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"todoperf/pkg/logging"
)

// FileName returns the results file name of an entity kind.
func FileName(kind string) string {
	return kind + "_results.json"
}

// Export writes the recorded samples to <dir>/<kind>_results.json and returns
// the written path.
func (r *Recorder) Export(dir, kind string) (string, error) {
	path := filepath.Join(dir, FileName(kind))
	if err := WriteJSON(path, r.Document()); err != nil {
		return "", err
	}
	logging.Info("Results", "Wrote %d samples to %s", r.Len(), path)
	return path, nil
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
