package fs

import (
	"github.com/spf13/afero"
)

// Factory provides filesystem instances for production and testing
type Factory interface {
	// Production returns a filesystem that operates on the real OS filesystem
	Production() afero.Fs
	// Media returns a read-only view of the OS filesystem for loading sources
	Media() afero.Fs
	// Memory returns an in-memory filesystem for testing
	Memory() afero.Fs
}

// DefaultFactory provides the standard filesystem factory implementation
type DefaultFactory struct{}

// NewDefaultFactory creates a new filesystem factory
func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

// Production returns a filesystem that operates on the real OS filesystem
func (f *DefaultFactory) Production() afero.Fs {
	return afero.NewOsFs()
}

// Media returns the OS filesystem wrapped so playback can never write to it
func (f *DefaultFactory) Media() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

// Memory returns an in-memory filesystem for testing
func (f *DefaultFactory) Memory() afero.Fs {
	return afero.NewMemMapFs()
}

// MemoryFactory serves the same in-memory filesystem from every method.
// Tests use it to stage media files that production code then reads.
type MemoryFactory struct {
	fs afero.Fs
}

// NewMemoryFactory creates a factory backed by one fresh MemMapFs
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{fs: afero.NewMemMapFs()}
}

// Production returns the shared in-memory filesystem
func (f *MemoryFactory) Production() afero.Fs { return f.fs }

// Media returns the shared in-memory filesystem
func (f *MemoryFactory) Media() afero.Fs { return f.fs }

// Memory returns the shared in-memory filesystem
func (f *MemoryFactory) Memory() afero.Fs { return f.fs }
