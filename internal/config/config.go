package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"audiochan.click/internal/channel"
)

// Defaults for values a config file may omit
const (
	DefaultLogLevel  = "warn"
	DefaultAudioSink = "auto"
	DefaultDuckLevel = 0.2
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validSinks     = []string{"auto", "malgo", "oto", "null"}
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// Config represents audiochan configuration. Pointer fields distinguish
// "not set" from an explicit zero when configs are merged.
type Config struct {
	Volume      *int               `json:"volume,omitempty"`       // Channel volume (0 to 100)
	Muted       *bool              `json:"muted,omitempty"`        // Start muted
	LogLevel    string             `json:"log_level"`              // Log level (debug, info, warn, error)
	AudioSink   string             `json:"audio_sink"`             // Audio sink (auto, malgo, oto, null)
	DuckLevel   *float64           `json:"duck_level,omitempty"`   // Gain applied while ducked (0.0 to 1.0)
	FileLogging *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
	Journal     *JournalConfig     `json:"journal,omitempty"`      // Playback journal configuration
}

// VolumeSettings returns the channel settings the config describes
func (c *Config) VolumeSettings() channel.VolumeSettings {
	settings := channel.DefaultVolumeSettings()
	if c.Volume != nil {
		settings.Volume = *c.Volume
	}
	if c.Muted != nil {
		settings.Muted = *c.Muted
	}
	return settings
}

// DuckLevelOrDefault returns the configured duck level
func (c *Config) DuckLevelOrDefault() float32 {
	if c.DuckLevel == nil {
		return DefaultDuckLevel
	}
	return float32(*c.DuckLevel)
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetCachePath(purpose string) string
	CreateCacheDir(purpose string) error
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	xdg XDGInterface
	fs  afero.Fs
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager reading and writing through fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		xdg: NewXDGDirsWithFilesystem(fs),
		fs:  fs,
	}
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	volume := channel.DefaultVolume
	muted := false
	duckLevel := DefaultDuckLevel

	defaultConfig := &Config{
		Volume:    &volume,
		Muted:     &muted,
		LogLevel:  DefaultLogLevel,
		AudioSink: DefaultAudioSink,
		DuckLevel: &duckLevel,
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Journal: GetDefaultJournalConfig(),
	}

	slog.Debug("generated default config",
		"volume", volume,
		"log_level", defaultConfig.LogLevel,
		"audio_sink", defaultConfig.AudioSink,
		"duck_level", duckLevel,
		"journal_enabled", defaultConfig.Journal.Enabled)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(&config); err != nil {
		return nil, err
	}

	slog.Debug("config loaded successfully", "file_path", filePath, "audio_sink", config.AudioSink)
	return &config, nil
}

// SaveToFile saves configuration to a specific file
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// LoadConfig loads the first config file found on the XDG search path,
// merged over the defaults. No file at all yields the defaults.
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths("config.json")
	slog.Debug("searching for config file", "paths", configPaths)

	for _, configPath := range configPaths {
		exists, err := afero.Exists(cm.fs, configPath)
		if err != nil || !exists {
			continue
		}

		slog.Debug("found config file", "path", configPath)
		loaded, err := cm.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		return cm.MergeConfigs(cm.GetDefaultConfig(), loaded), nil
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// ValidateConfig validates configuration values
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errors []string

	if config.Volume != nil && (*config.Volume < channel.MinVolume || *config.Volume > channel.MaxVolume) {
		errors = append(errors, fmt.Sprintf("volume must be between %d and %d, got %d",
			channel.MinVolume, channel.MaxVolume, *config.Volume))
	}

	if config.DuckLevel != nil && (*config.DuckLevel < 0.0 || *config.DuckLevel > 1.0) {
		errors = append(errors, fmt.Sprintf("duck_level must be between 0.0 and 1.0, got %f", *config.DuckLevel))
	}

	if config.LogLevel != "" && !slices.Contains(validLogLevels, config.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			config.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	if !cm.IsValidAudioSink(config.AudioSink) {
		errors = append(errors, fmt.Sprintf("invalid audio sink '%s', must be one of: %s",
			config.AudioSink, strings.Join(cm.GetSupportedAudioSinks(), ", ")))
	}

	if fileLogging := config.FileLogging; fileLogging != nil {
		if fileLogging.MaxSizeMB < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}
		if fileLogging.MaxBackups < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}
		if fileLogging.MaxAgeDays < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if len(errors) > 0 {
		errMsg := strings.Join(errors, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("config validation failed: %s", errMsg)
	}

	return nil
}

// MergeConfigs merges two configurations, with set fields of override taking precedence
func (cm *ConfigManager) MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.Volume != nil {
		merged.Volume = override.Volume
	}
	if override.Muted != nil {
		merged.Muted = override.Muted
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.AudioSink != "" {
		merged.AudioSink = override.AudioSink
	}
	if override.DuckLevel != nil {
		merged.DuckLevel = override.DuckLevel
	}
	if override.FileLogging != nil {
		merged.FileLogging = override.FileLogging
	}
	if override.Journal != nil {
		merged.Journal = override.Journal
	}

	slog.Debug("configurations merged")
	return &merged
}

// ApplyEnvironmentOverrides applies AUDIOCHAN_* environment variables to a copy of config
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config

	if volStr := os.Getenv("AUDIOCHAN_VOLUME"); volStr != "" {
		if vol, err := strconv.Atoi(volStr); err == nil {
			result.Volume = &vol
			slog.Debug("applied volume override from environment", "value", vol)
		} else {
			slog.Warn("invalid AUDIOCHAN_VOLUME environment variable", "value", volStr, "error", err)
		}
	}

	if mutedStr := os.Getenv("AUDIOCHAN_MUTED"); mutedStr != "" {
		if muted, err := strconv.ParseBool(mutedStr); err == nil {
			result.Muted = &muted
			slog.Debug("applied muted override from environment", "value", muted)
		} else {
			slog.Warn("invalid AUDIOCHAN_MUTED environment variable", "value", mutedStr, "error", err)
		}
	}

	if logLevel := os.Getenv("AUDIOCHAN_LOG_LEVEL"); logLevel != "" {
		result.LogLevel = logLevel
		slog.Debug("applied log level override from environment", "value", logLevel)
	}

	if sink := os.Getenv("AUDIOCHAN_AUDIO_SINK"); sink != "" {
		if cm.IsValidAudioSink(sink) {
			result.AudioSink = sink
			slog.Debug("applied audio sink override from environment", "value", sink)
		} else {
			slog.Warn("invalid AUDIOCHAN_AUDIO_SINK environment variable", "value", sink)
		}
	}

	if duckStr := os.Getenv("AUDIOCHAN_DUCK_LEVEL"); duckStr != "" {
		if duck, err := strconv.ParseFloat(duckStr, 64); err == nil {
			result.DuckLevel = &duck
			slog.Debug("applied duck level override from environment", "value", duck)
		} else {
			slog.Warn("invalid AUDIOCHAN_DUCK_LEVEL environment variable", "value", duckStr, "error", err)
		}
	}

	result.Journal = ApplyJournalEnvironmentOverrides(result.Journal)
	return &result
}

// ParseLogLevel converts a config log level to a slog.Level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s', must be one of: %s",
			logLevel, strings.Join(validLogLevels, ", "))
	}
}

// ApplyLogLevelWithWriter configures slog with the specified log level and writer
func (cm *ConfigManager) ApplyLogLevelWithWriter(logLevel string, writer io.Writer) error {
	if logLevel == "" {
		return nil
	}

	level, err := ParseLogLevel(logLevel)
	if err != nil {
		slog.Error("invalid log level for slog configuration", "log_level", logLevel, "error", err)
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})))
	slog.Debug("slog configured", "log_level", logLevel)
	return nil
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "audiochan.log")
}

// GetSupportedAudioSinks returns a list of all supported audio sink types
func (cm *ConfigManager) GetSupportedAudioSinks() []string {
	return slices.Clone(validSinks)
}

// IsValidAudioSink checks if an audio sink type is supported; empty means auto
func (cm *ConfigManager) IsValidAudioSink(sink string) bool {
	return sink == "" || slices.Contains(validSinks, sink)
}
