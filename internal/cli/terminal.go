package cli

import (
	"io"
	"log/slog"

	"golang.org/x/term"
)

// TerminalDetector defines the interface for terminal detection
// This allows for mocking in tests and dependency injection
type TerminalDetector interface {
	IsTerminal(fd int) bool
}

// DefaultTerminalDetector is the default implementation using golang.org/x/term
type DefaultTerminalDetector struct{}

// IsTerminal implements TerminalDetector interface
func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	isTerminal := term.IsTerminal(fd)

	slog.Debug("terminal detection result",
		"fd", fd,
		"is_terminal", isTerminal)

	return isTerminal
}

// isInteractiveTerminal checks if the given file descriptor is an interactive terminal
func (c *CLI) isInteractiveTerminal(fd int) bool {
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}

	return c.terminalDetector.IsTerminal(fd)
}

// isInteractiveInput reports whether r is a file attached to a terminal.
// Pipes, buffers and other readers never are.
func (c *CLI) isInteractiveInput(r io.Reader) bool {
	file, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return c.isInteractiveTerminal(int(file.Fd()))
}
