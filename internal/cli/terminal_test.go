package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/term"
)

type stubTerminalDetector struct {
	terminal bool
	calls    []int
}

func (s *stubTerminalDetector) IsTerminal(fd int) bool {
	s.calls = append(s.calls, fd)
	return s.terminal
}

func TestIsInteractiveTerminalMatchesTerm(t *testing.T) {
	cli := NewCLI()

	for _, fd := range []int{int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd())} {
		assert.Equal(t, term.IsTerminal(fd), cli.isInteractiveTerminal(fd), "fd %d", fd)
	}
	assert.False(t, cli.isInteractiveTerminal(-1), "invalid fd is never a terminal")
}

func TestIsInteractiveInput(t *testing.T) {
	detector := &stubTerminalDetector{terminal: true}
	cli := NewCLI()
	cli.terminalDetector = detector

	assert.False(t, cli.isInteractiveInput(strings.NewReader("play\n")))
	assert.Empty(t, detector.calls, "plain readers are never checked")

	assert.True(t, cli.isInteractiveInput(os.Stdin))
	assert.Equal(t, []int{int(os.Stdin.Fd())}, detector.calls)
}
