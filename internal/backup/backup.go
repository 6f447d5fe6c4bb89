// Package backup creates and manages on-disk snapshots of the library store.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openarklib/openark-server/internal/store"
)

// snapshotSuffix marks snapshot files in the backup directory.
const snapshotSuffix = ".openark.bak"

// Snapshot describes one backup file.
type Snapshot struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service creates and lists library store snapshots.
type Service struct {
	store     *store.Store
	backupDir string
	keep      int
	logger    *slog.Logger

	// One snapshot at a time; concurrent admin clicks just wait.
	mu sync.Mutex
}

// NewService creates a backup service writing to backupDir. The most
// recent keep snapshots are retained; older ones are pruned after each
// successful backup.
func NewService(s *store.Store, backupDir string, keep int, logger *slog.Logger) *Service {
	if keep < 1 {
		keep = 5
	}
	return &Service{
		store:     s,
		backupDir: backupDir,
		keep:      keep,
		logger:    logger,
	}
}

// Create writes a new snapshot of the library store and prunes old ones.
func (s *Service) Create(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("backup-%s%s", time.Now().Format("2006-01-02-150405"), snapshotSuffix)
	path := filepath.Join(s.backupDir, name)

	start := time.Now()

	f, err := os.Create(path) //#nosec G304 -- Path is built from a timestamp inside the backup dir
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}

	hasher := sha256.New()
	if _, err := s.store.Backup(io.MultiWriter(f, hasher)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close backup file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	snap := &Snapshot{
		Name:      name,
		Size:      info.Size(),
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt: info.ModTime(),
	}

	s.logger.Info("Backup complete",
		"name", snap.Name,
		"size", snap.Size,
		"duration", time.Since(start),
	)

	s.pruneLocked()

	return snap, nil
}

// List returns all snapshots, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Snapshot{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	return snapshots, nil
}

// pruneLocked removes snapshots beyond the retention count. Caller holds mu.
func (s *Service) pruneLocked() {
	snapshots, err := s.List()
	if err != nil {
		s.logger.Warn("Backup prune skipped", "error", err)
		return
	}

	for _, old := range snapshots[min(s.keep, len(snapshots)):] {
		path := filepath.Join(s.backupDir, old.Name)
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to prune old backup", "name", old.Name, "error", err)
			continue
		}
		s.logger.Info("Pruned old backup", "name", old.Name)
	}
}
