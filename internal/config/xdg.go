package config

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const appDir = "audiochan"

// XDGDirs provides XDG Base Directory compliant paths for audiochan
type XDGDirs struct {
	fs afero.Fs
}

// NewXDGDirs creates a new XDG directory manager on the OS filesystem
func NewXDGDirs() *XDGDirs {
	return NewXDGDirsWithFilesystem(afero.NewOsFs())
}

// NewXDGDirsWithFilesystem creates an XDG directory manager that creates and checks paths on fs
func NewXDGDirsWithFilesystem(fs afero.Fs) *XDGDirs {
	return &XDGDirs{fs: fs}
}

// GetMediaPaths returns prioritized directories where named media can be found:
// the user data dir, then system data dirs
func (x *XDGDirs) GetMediaPaths() []string {
	baseDir := filepath.Join(appDir, "media")

	paths := []string{filepath.Join(xdg.DataHome, baseDir)}
	for _, dataDir := range xdg.DataDirs {
		paths = append(paths, filepath.Join(dataDir, baseDir))
	}

	slog.Debug("generated media paths", "total_paths", len(paths))
	return paths
}

// GetCachePath returns the cache directory path for a specific purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	baseDir := appDir
	if purpose != "" {
		baseDir = filepath.Join(baseDir, purpose)
	}
	return filepath.Join(xdg.CacheHome, baseDir)
}

// GetConfigPaths returns prioritized paths where config files can be found:
// the user config dir, then system config dirs
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	join := func(dir string) string {
		path := filepath.Join(dir, appDir)
		if filename != "" {
			path = filepath.Join(path, filename)
		}
		return path
	}

	paths := []string{join(xdg.ConfigHome)}
	for _, configDir := range xdg.ConfigDirs {
		paths = append(paths, join(configDir))
	}

	slog.Debug("generated config paths", "filename", filename, "total_paths", len(paths))
	return paths
}

// CreateCacheDir creates the cache directory for a specific purpose
func (x *XDGDirs) CreateCacheDir(purpose string) error {
	cachePath := x.GetCachePath(purpose)

	if err := x.fs.MkdirAll(cachePath, 0755); err != nil {
		slog.Error("failed to create cache directory", "path", cachePath, "error", err)
		return err
	}

	slog.Debug("cache directory ready", "path", cachePath)
	return nil
}

// FindMediaFile searches the media directories for relativePath.
// Returns the full path to the first existing file, or empty string if not found.
func (x *XDGDirs) FindMediaFile(relativePath string) string {
	relativePath = sanitizePath(relativePath)
	if relativePath == "" {
		return ""
	}

	for i, basePath := range x.GetMediaPaths() {
		fullPath := filepath.Join(basePath, relativePath)
		if exists, _ := afero.Exists(x.fs, fullPath); exists {
			slog.Debug("media file found", "relative_path", relativePath, "full_path", fullPath, "path_index", i)
			return fullPath
		}
	}

	slog.Debug("media file not found in any path", "relative_path", relativePath)
	return ""
}

// sanitizePath removes dangerous path components and normalizes the path
func sanitizePath(path string) string {
	path = strings.ReplaceAll(path, "\x00", "")
	path = strings.ReplaceAll(path, "\n", "")
	path = strings.ReplaceAll(path, "\r", "")
	if path == "" {
		return ""
	}

	path = filepath.Clean(path)

	// relative paths only, and no escaping the media directory
	if filepath.IsAbs(path) || path == ".." || strings.HasPrefix(path, "../") {
		slog.Warn("rejecting potentially dangerous path", "path", path)
		return ""
	}

	return path
}
