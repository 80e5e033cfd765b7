package audio

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileResolver turns source locators into readable paths on an afero filesystem.
// A locator is a plain path or a file:// URL; a path without an extension is
// tried with each supported extension in priority order.
type FileResolver struct {
	fs                  afero.Fs
	supportedExtensions []string
}

// NewFileResolver creates a resolver over fs for the given extensions
func NewFileResolver(fs afero.Fs, extensions []string) *FileResolver {
	return &FileResolver{
		fs:                  fs,
		supportedExtensions: extensions,
	}
}

// Resolve returns the path of an existing file for locator
func (f *FileResolver) Resolve(locator string) (string, error) {
	path, err := locatorPath(locator)
	if err != nil {
		return "", err
	}

	if exists, _ := afero.Exists(f.fs, path); exists {
		return path, nil
	}
	if filepath.Ext(path) != "" {
		return "", fmt.Errorf("audio file not found: %s", path)
	}
	return f.ResolveWithExtensions(path)
}

// ResolveWithExtensions finds the first basePath+extension that exists
func (f *FileResolver) ResolveWithExtensions(basePath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	for _, ext := range f.supportedExtensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		candidate := basePath + ext
		if exists, _ := afero.Exists(f.fs, candidate); exists {
			slog.Debug("file resolved by extension", "base_path", basePath, "resolved_path", candidate)
			return candidate, nil
		}
	}

	err := fmt.Errorf("no file found for base path %s with extensions %v", basePath, f.supportedExtensions)
	slog.Warn("file resolution failed", "base_path", basePath, "error", err)
	return "", err
}

// SupportedExtensions returns the extensions in priority order
func (f *FileResolver) SupportedExtensions() []string {
	return f.supportedExtensions
}

// locatorPath strips a file:// scheme; other schemes are not playable
func locatorPath(locator string) (string, error) {
	if !strings.Contains(locator, "://") {
		return locator, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid source locator %q: %w", locator, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote host %q", ErrUnsupportedLocator, u.Host)
	}
	return filepath.FromSlash(u.Path), nil
}
