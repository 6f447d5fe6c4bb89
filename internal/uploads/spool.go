// Package uploads manages the on-disk spool for in-flight multipart
// uploads. Files live here between the HTTP request and the media store
// push; successful pushes remove them, failed ones leave them behind for
// the watcher to report.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Spool writes incoming multipart files into a dedicated directory with
// collision-free names.
type Spool struct {
	dir string
}

// NewSpool creates the spool directory if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the spool directory path.
func (s *Spool) Dir() string {
	return s.dir
}

// Save streams an upload into the spool and returns the spooled path.
// The original filename only contributes its extension; the name itself is
// a UUID so concurrent uploads of same-named scans never collide.
func (s *Spool) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	f, err := os.Create(path) //#nosec G304 -- Name is a generated UUID inside our spool dir
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write spool file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close spool file: %w", err)
	}
	return path, nil
}

// Read loads a spooled file back into memory for OCR.
func (s *Spool) Read(path string) ([]byte, error) {
	// Guard against paths wandering out of the spool.
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.dir) {
		return nil, fmt.Errorf("path %s is outside the spool", path)
	}
	data, err := os.ReadFile(path) //#nosec G304 -- Verified to be inside the spool dir
	if err != nil {
		return nil, fmt.Errorf("read spool file: %w", err)
	}
	return data, nil
}
