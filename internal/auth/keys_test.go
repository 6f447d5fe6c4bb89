package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateKey(t *testing.T) {
	t.Run("generates and persists", func(t *testing.T) {
		dir := t.TempDir()

		key, err := LoadOrGenerateKey(dir)
		require.NoError(t, err)
		assert.Len(t, key, 32)

		info, err := os.Stat(filepath.Join(dir, "auth.key"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("loads the same key back", func(t *testing.T) {
		dir := t.TempDir()

		first, err := LoadOrGenerateKey(dir)
		require.NoError(t, err)
		second, err := LoadOrGenerateKey(dir)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects a corrupted key file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("too-short"), 0o600))

		_, err := LoadOrGenerateKey(dir)
		assert.Error(t, err)
	})
}
