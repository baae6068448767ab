// Package registry discovers local model files for the native backend and
// the debug HTTP listing.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"threadrunner/internal/common/fsutil"
)

// DefaultDir is where bundled models are installed.
const DefaultDir = "~/.threadrunner/models"

// Model describes one local model file.
type Model struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// GGUFScanner discovers model files by extension.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner for *.gguf model files.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan lists the *.gguf files directly under dir (after ~ expansion).
// ID is the full filename including extension; Path is absolute.
func (s *GGUFScanner) Scan(dir string) ([]Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		models = append(models, Model{
			ID:        name,
			Name:      name,
			Path:      filepath.Join(abs, name),
			SizeBytes: size,
		})
	}
	return models, nil
}

// LoadDir scans dir with the default scanner.
func LoadDir(dir string) ([]Model, error) {
	return NewGGUFScanner().Scan(dir)
}
