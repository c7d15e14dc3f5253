package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages the artifact directory of a run.
type Store struct {
	RunID   string
	BaseDir string // <work-dir>/runs/<run-id>
}

// New creates a store for a given run ID, rooted at workDir.
func New(runID, workDir string) (*Store, error) {
	base := filepath.Join(workDir, "runs", runID)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{RunID: runID, BaseDir: base}, nil
}

// Path returns the location of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.BaseDir, name)
}

// Create opens a named artifact for writing, truncating it.
func (s *Store) Create(name string) (*os.File, error) {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("creating artifact %s: %w", name, err)
	}
	return f, nil
}

// WriteResult writes the final result JSON.
func (s *Store) WriteResult(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path("result.json"), data, 0o644)
}
