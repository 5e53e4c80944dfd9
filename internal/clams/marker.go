package clams

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// MarkerFileName is written into a stage's output directory once every file
// of the stage has been produced.
const MarkerFileName = ".clams-stage.json"

// FileDigest records one produced file and its content hash.
type FileDigest struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

// StageMarker describes a completed stage.
type StageMarker struct {
	RunID       string         `json:"run_id"`
	Stage       string         `json:"stage"`
	Params      map[string]any `json:"params,omitempty"`
	Outputs     []FileDigest   `json:"outputs"`
	CompletedAt time.Time      `json:"completed_at"`
}

// ReadMarker loads the marker of dir. It returns nil, nil when none exists.
func ReadMarker(dir string) (*StageMarker, error) {
	b, err := os.ReadFile(filepath.Join(dir, MarkerFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read marker: %w", err)
	}
	var m StageMarker
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse marker %s: %w", dir, err)
	}
	return &m, nil
}

// Verify reports whether every output listed by the marker still exists in
// dir with the recorded content.
func (m *StageMarker) Verify(dir string) error {
	for _, o := range m.Outputs {
		sum, err := utils.HashFile(filepath.Join(dir, o.Name))
		if err != nil {
			return fmt.Errorf("verify %s: %w", o.Name, err)
		}
		if sum != o.SHA256 {
			return fmt.Errorf("verify %s: content changed since stage completed", o.Name)
		}
	}
	return nil
}

// checkParam reports whether the marker recorded want for key. Params
// round-trip through JSON, so values compare in their printed form.
func (m *StageMarker) checkParam(key string, want any) error {
	got, ok := m.Params[key]
	if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
		return fmt.Errorf("%s changed from %v to %v", key, got, want)
	}
	return nil
}

func writeMarker(dir, runID, stage string, params map[string]any, outputs []string) error {
	m := StageMarker{RunID: runID, Stage: stage, Params: params, CompletedAt: time.Now().UTC()}
	for _, p := range outputs {
		sum, err := utils.HashFile(p)
		if err != nil {
			return err
		}
		m.Outputs = append(m.Outputs, FileDigest{Name: filepath.Base(p), SHA256: sum})
	}
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(dir, MarkerFileName), b)
}
