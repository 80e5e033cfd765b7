package config

import (
	"log/slog"
	"os"
	"strconv"
)

// JournalConfig represents playback journal configuration
type JournalConfig struct {
	Enabled      bool   `json:"enabled"`       // Whether lifecycle events are recorded
	DatabasePath string `json:"database_path"` // Custom database path (empty = XDG cache path)
}

// GetDefaultJournalConfig returns the default journal configuration
func GetDefaultJournalConfig() *JournalConfig {
	return &JournalConfig{
		Enabled:      true,
		DatabasePath: "",
	}
}

// ApplyJournalEnvironmentOverrides applies AUDIOCHAN_JOURNAL and AUDIOCHAN_JOURNAL_PATH
func ApplyJournalEnvironmentOverrides(config *JournalConfig) *JournalConfig {
	if config == nil {
		config = GetDefaultJournalConfig()
	}
	result := *config

	if enabledStr := os.Getenv("AUDIOCHAN_JOURNAL"); enabledStr != "" {
		if enabled, err := strconv.ParseBool(enabledStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied journal override from environment", "value", enabled)
		} else {
			slog.Warn("invalid AUDIOCHAN_JOURNAL environment variable", "value", enabledStr, "error", err)
		}
	}

	if path := os.Getenv("AUDIOCHAN_JOURNAL_PATH"); path != "" {
		result.DatabasePath = path
		slog.Debug("applied journal path override from environment", "value", path)
	}

	return &result
}
