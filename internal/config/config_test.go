package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Ingest: IngestConfig{Concurrency: 4},
		OCR:    OCRConfig{RPS: 2},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "test"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	assert.Error(t, cfg.Validate())
}

func TestValidate_IngestConcurrency(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestValidate_OCRRate(t *testing.T) {
	cfg := validConfig()
	cfg.OCR.RPS = 0

	assert.Error(t, cfg.Validate())
}

func TestDerivedPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = "/data/openark"

	assert.Equal(t, filepath.Join("/data/openark", "library"), cfg.LibraryPath())
	assert.Equal(t, filepath.Join("/data/openark", "uploads"), cfg.UploadsPath())
	assert.Equal(t, filepath.Join("/data/openark", "search.bleve"), cfg.SearchIndexPath())
	assert.Equal(t, filepath.Join("/data/openark", "activity.db"), cfg.ActivityDBPath())
	assert.Equal(t, filepath.Join("/data/openark", "backups"), cfg.BackupsPath())
}

func TestExpandPath(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default/path")
		require.NoError(t, err)
		assert.Equal(t, "/default/path", got)
	})

	t.Run("absolute passes through", func(t *testing.T) {
		got, err := expandPath("/already/absolute", "/default")
		require.NoError(t, err)
		assert.Equal(t, "/already/absolute", got)
	})

	t.Run("relative becomes absolute", func(t *testing.T) {
		got, err := expandPath("relative/dir", "/default")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})
}

func TestGetConfigValue(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("OPENARK_TEST_KEY", "from-env")
		assert.Equal(t, "from-flag", getConfigValue("from-flag", "OPENARK_TEST_KEY", "default"))
	})

	t.Run("env beats default", func(t *testing.T) {
		t.Setenv("OPENARK_TEST_KEY", "from-env")
		assert.Equal(t, "from-env", getConfigValue("", "OPENARK_TEST_KEY", "default"))
	})

	t.Run("default when nothing set", func(t *testing.T) {
		assert.Equal(t, "default", getConfigValue("", "OPENARK_MISSING_KEY", "default"))
	})
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"banana", false},
	}

	for _, tt := range tests {
		t.Setenv("OPENARK_BOOL_KEY", tt.raw)
		assert.Equal(t, tt.want, getBoolConfigValue("", "OPENARK_BOOL_KEY", !tt.want), "raw=%q", tt.raw)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	content := "# comment\nOPENARK_ENVFILE_KEY=hello\nOPENARK_QUOTED_KEY=\"quoted value\"\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "hello", getConfigValue("", "OPENARK_ENVFILE_KEY", ""))
	assert.Equal(t, "quoted value", getConfigValue("", "OPENARK_QUOTED_KEY", ""))
}

func TestLoadEnvFile_ExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("OPENARK_PRESET_KEY=from-file\n"), 0o600))

	t.Setenv("OPENARK_PRESET_KEY", "from-env")
	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "from-env", getConfigValue("", "OPENARK_PRESET_KEY", ""))
}
