package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"audiochan.click/internal/channel"
)

func newPlayCommand() *cobra.Command {
	var offset time.Duration
	var repeat bool
	var duckEligible bool
	var timeout time.Duration

	playCmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play one audio file to completion",
		Long: `Play one audio file through the channel and print every lifecycle event.

FILE is a path, a file:// URL, or a name relative to the audiochan media
directory under the XDG data directories. The command returns when playback
finishes, is stopped, or fails.

Examples:
  audiochan play chime.wav
  audiochan play --offset 1.5s speech.mp3
  audiochan play --repeat --timeout 30s ambience.aiff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := channel.SourceOptions{
				Offset:    offset,
				Repeating: repeat,
				MayDuck:   duckEligible,
			}
			return runPlay(cmd, args[0], opts, timeout)
		},
	}

	playCmd.Flags().DurationVar(&offset, "offset", 0, "Initial playback position")
	playCmd.Flags().BoolVar(&repeat, "repeat", false, "Loop the source until interrupted")
	playCmd.Flags().BoolVar(&duckEligible, "duck-eligible", false, "Allow the source to be attenuated by ducking")
	playCmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop playback after this long (0 = no limit)")

	return playCmd
}

func runPlay(cmd *cobra.Command, name string, opts channel.SourceOptions, timeout time.Duration) error {
	slog.Debug("running play command", "name", name, "offset", opts.Offset, "repeat", opts.Repeating, "timeout", timeout)

	cli, cfg, err := prepareCommand(cmd)
	if err != nil {
		return err
	}

	sess, err := cli.openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	done := make(chan channel.Event, 1)
	sess.observe(func(e channel.Event) {
		fmt.Fprintln(out, formatEvent(e))
		switch e.Kind {
		case channel.EventFinished, channel.EventStopped, channel.EventError:
			select {
			case done <- e:
			default:
			}
		}
	})

	locator := sess.resolveMedia(name)
	id := sess.channel.SetSourceURL(locator, opts)
	if !id.IsValid() {
		return fmt.Errorf("failed to prepare source %q", name)
	}
	if !sess.channel.Play(id) {
		return fmt.Errorf("failed to start playback of %q", name)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var last channel.Event
	select {
	case last = <-done:
	case <-ctx.Done():
		slog.Info("stopping playback", "source_id", id, "reason", ctx.Err())
		sess.channel.Stop(id)
		select {
		case last = <-done:
		case <-time.After(2 * time.Second):
			slog.Warn("no stop event after interrupt", "source_id", id)
			return nil
		}
	}

	if last.Kind == channel.EventError {
		return fmt.Errorf("playback of %q failed: %s: %s", name, last.Error, last.Description)
	}
	return nil
}
