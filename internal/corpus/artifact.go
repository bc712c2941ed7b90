package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names written between pipeline stages.
const (
	CourseChunksFile    = "course_chunks.json"
	DiscourseChunksFile = "discourse_chunks.json"
	AllChunksFile       = "all_chunks.json"
	EmbeddedChunksFile  = "embedded_chunks.json"
)

// ReadJSON decodes the JSON array stored at path.
func ReadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("corpus: decode %s: %w", path, err)
	}
	return out, nil
}

// ReadRawJSON reads the JSON array stored at path without decoding its
// elements, so callers can reject bad elements one at a time.
func ReadRawJSON(path string) ([]json.RawMessage, error) {
	return ReadJSON[json.RawMessage](path)
}

// WriteJSON writes v to path as indented JSON. The file is written to a
// temporary sibling first and renamed into place, so a crashed run never
// leaves a truncated artifact behind.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("corpus: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("corpus: create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort after rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("corpus: encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("corpus: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("corpus: rename into %s: %w", path, err)
	}
	return nil
}
