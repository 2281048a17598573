package domain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8686, config.Server.Port)
	assert.Equal(t, "6.1", config.Binaries.FFmpegVersion)
	assert.Equal(t, 10*time.Minute, config.Binaries.HTTPTimeout)
	assert.Equal(t, 10*time.Second, config.Binaries.VersionTimeout)
	assert.NotEmpty(t, config.Binaries.UserAgent)
	assert.True(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestConfig_DataDir(t *testing.T) {
	config := DefaultConfig()
	config.Binaries.Dir = filepath.Join("/data", "ytfetch", "bin")

	assert.Equal(t, filepath.Join("/data", "ytfetch"), config.DataDir())
}
