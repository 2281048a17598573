package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
binaries:
  dir: ~/tools/bin
  ffmpeg_version: "7.0"
  http_timeout: 30s
download:
  default_dir: $HOME/Videos
`), 0644))

	t.Setenv("YTFETCH_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, filepath.Join(home, "tools/bin"), cfg.Binaries.Dir)
	assert.Equal(t, "7.0", cfg.Binaries.FFmpegVersion)
	assert.Equal(t, 30*time.Second, cfg.Binaries.HTTPTimeout)
	assert.Equal(t, filepath.Join(home, "Videos"), cfg.Download.DefaultDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := domain.DefaultConfig()
	cfg.Server.Port = 9191
	cfg.Binaries.Dir = filepath.Join(dir, "bin")
	cfg.Binaries.HTTPTimeout = 2 * time.Minute
	cfg.Notification.Enabled = false

	path := filepath.Join(dir, "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, loaded.Server.Port)
	assert.Equal(t, cfg.Binaries.Dir, loaded.Binaries.Dir)
	assert.Equal(t, 2*time.Minute, loaded.Binaries.HTTPTimeout)
	assert.False(t, loaded.Notification.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("YTFETCH_TEST_DOTENV=from-file\n"), 0644))
	t.Setenv("YTFETCH_TEST_DOTENV", "")
	os.Unsetenv("YTFETCH_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("YTFETCH_TEST_DOTENV"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home+"/y", expandPath("$HOME/y"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}
