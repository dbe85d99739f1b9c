package landmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// file is the on-disk layout of a landmark cache.
type file struct {
	Version   int        `json:"version"`
	Landmarks []Landmark `json:"landmarks"`
}

const fileVersion = 1

// WriteFile stores landmarks as JSON, replacing path atomically.
func WriteFile(path string, landmarks []Landmark) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file{Version: fileVersion, Landmarks: landmarks}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode landmarks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile loads landmarks written by WriteFile.
func ReadFile(path string) ([]Landmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("%s: unsupported landmark file version %d", path, f.Version)
	}
	return f.Landmarks, nil
}
