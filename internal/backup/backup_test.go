package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/store"
)

func newTestService(t *testing.T, keep int) (*Service, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	db, err := store.New(filepath.Join(dir, "library"), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	book := &domain.Book{
		Entity: domain.Entity{ID: "bk-1"},
		Title:  "A Field Guide to Tidal Pools",
		Author: "M. Okafor",
	}
	book.InitTimestamps()
	require.NoError(t, db.CreateBook(context.Background(), book))

	backupDir := filepath.Join(dir, "backups")
	return NewService(db, backupDir, keep, logger), backupDir
}

func TestService_Create(t *testing.T) {
	svc, backupDir := newTestService(t, 5)

	snap, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(snap.Name, snapshotSuffix))
	assert.Greater(t, snap.Size, int64(0))
	assert.Len(t, snap.Checksum, 64, "sha256 hex")
	assert.False(t, snap.CreatedAt.IsZero())

	info, err := os.Stat(filepath.Join(backupDir, snap.Name))
	require.NoError(t, err)
	assert.Equal(t, snap.Size, info.Size())
}

func TestService_List(t *testing.T) {
	svc, backupDir := newTestService(t, 5)

	t.Run("empty before any backup", func(t *testing.T) {
		snapshots, err := svc.List()
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	})

	_, err := svc.Create(context.Background())
	require.NoError(t, err)

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "notes.txt"), []byte("hi"), 0o600))

	snapshots, err := svc.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	t.Run("newest first", func(t *testing.T) {
		old := filepath.Join(backupDir, "backup-2020-01-01-000000"+snapshotSuffix)
		require.NoError(t, os.WriteFile(old, []byte("old"), 0o600))
		past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(old, past, past))

		snapshots, err := svc.List()
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Equal(t, filepath.Base(old), snapshots[1].Name)
	})
}

func TestService_PruneKeepsRetentionCount(t *testing.T) {
	svc, backupDir := newTestService(t, 2)
	require.NoError(t, os.MkdirAll(backupDir, 0o700))

	// Seed old snapshots with distinct timestamps.
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("backup-2020-01-0%d-000000%s", i+1, snapshotSuffix)
		path := filepath.Join(backupDir, name)
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
		ts := base.AddDate(0, 0, i)
		require.NoError(t, os.Chtimes(path, ts, ts))
	}

	// A fresh backup triggers the prune.
	snap, err := svc.Create(context.Background())
	require.NoError(t, err)

	snapshots, err := svc.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, snap.Name, snapshots[0].Name, "the newest snapshot survives")
}

func TestService_CanceledContext(t *testing.T) {
	svc, _ := newTestService(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
