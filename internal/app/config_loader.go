package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. YTFETCH_SERVER_PORT.
const EnvPrefix = "YTFETCH"

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/ytfetch")
		v.AddConfigPath("/etc/ytfetch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every key so AutomaticEnv applies even when no
// config file mentions it.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"binaries.dir", "binaries.ffmpeg_version", "binaries.http_timeout",
		"binaries.user_agent", "binaries.version_timeout",
		"download.default_dir", "download.logs_dir",
		"database.path",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	} {
		v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Binaries.Dir = expandPath(config.Binaries.Dir)
	config.Download.DefaultDir = expandPath(config.Download.DefaultDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Database.Path = expandPath(config.Database.Path)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME is resolved through os.UserHomeDir so it works where HOME is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Binaries.Dir == "" {
		return fmt.Errorf("binaries directory not configured")
	}

	if config.Binaries.FFmpegVersion == "" {
		return fmt.Errorf("ffmpeg version not configured")
	}

	if config.Binaries.HTTPTimeout <= 0 {
		return fmt.Errorf("binaries http timeout must be positive")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// keys are set one by one so the file uses the same names LoadConfig reads
	settings := map[string]interface{}{
		"server.host":              config.Server.Host,
		"server.port":              config.Server.Port,
		"binaries.dir":             config.Binaries.Dir,
		"binaries.ffmpeg_version":  config.Binaries.FFmpegVersion,
		"binaries.http_timeout":    config.Binaries.HTTPTimeout.String(),
		"binaries.user_agent":      config.Binaries.UserAgent,
		"binaries.version_timeout": config.Binaries.VersionTimeout.String(),
		"download.default_dir":     config.Download.DefaultDir,
		"download.logs_dir":        config.Download.LogsDir,
		"database.path":            config.Database.Path,
		"notification.enabled":     config.Notification.Enabled,
		"notification.sound":       config.Notification.Sound,
		"notification.method":      config.Notification.Method,
		"logging.level":            config.Logging.Level,
		"logging.format":           config.Logging.Format,
		"logging.output_path":      config.Logging.OutputPath,
	}
	for key, value := range settings {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
