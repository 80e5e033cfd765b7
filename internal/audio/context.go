//go:build cgo

package audio

import (
	"log/slog"

	"github.com/gen2brain/malgo"
)

// Context wraps malgo.AllocatedContext with lifecycle management and logging
type Context struct {
	ctx *malgo.AllocatedContext
}

// NewContext initializes a malgo context that logs through slog
func NewContext() (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		slog.Error("failed to initialize audio context", "error", err)
		return nil, err
	}

	slog.Debug("audio context initialized")
	return &Context{ctx: ctx}, nil
}

// Close uninitializes and frees the context; closing twice is a no-op
func (c *Context) Close() error {
	if c.ctx == nil {
		return nil
	}

	// malgo requires both Uninit() and Free()
	if err := c.ctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize audio context", "error", err)
		return err
	}
	c.ctx.Free()
	c.ctx = nil

	slog.Debug("audio context closed")
	return nil
}

// GetContext returns the underlying malgo context for device operations
func (c *Context) GetContext() *malgo.AllocatedContext {
	return c.ctx
}

// IsValid checks if the context is still valid
func (c *Context) IsValid() bool {
	return c.ctx != nil
}
