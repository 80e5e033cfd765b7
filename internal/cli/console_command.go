package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"audiochan.click/internal/channel"
)

const consoleHelp = `commands:
  source PATH [repeat] [duck] [at=DURATION]   prepare a new source
  play|pause|resume|stop [ID]                 control a source (default: current)
  offset [ID]                                 show the playback offset
  duration                                    show the current source's duration
  buffered                                    show buffered bytes
  volume N | volume +N | volume -N            set or adjust volume (0-100)
  mute on|off                                 mute or unmute
  duck | unduck                               upstream ducking request
  focus duck|unduck                           simulate a platform ducking report
  settings                                    show volume and mute state
  help                                        show this help
  quit                                        leave the console`

func newConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console [FILE]",
		Short: "Drive the channel interactively",
		Long: `Read channel commands line by line from stdin and print lifecycle events as
they happen. When FILE is given it is prepared as the first source.

Type "help" inside the console for the list of commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
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
	sess.observe(func(e channel.Event) {
		fmt.Fprintln(out, formatEvent(e))
	})

	con := &console{session: sess, out: out}
	if len(args) == 1 {
		con.execute("source " + args[0])
	}

	interactive := cli.isInteractiveInput(cmd.InOrStdin())
	slog.Debug("console started", "interactive", interactive)
	return con.run(cmd.InOrStdin(), interactive)
}

// console interprets line commands against one session
type console struct {
	session *session
	out     io.Writer
}

func (c *console) run(in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(c.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		if quit := c.execute(scanner.Text()); quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading console input: %w", err)
	}
	return nil
}

// execute runs one command line and reports whether the console should exit
func (c *console) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false
	}

	ch := c.session.channel
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true

	case "help":
		fmt.Fprintln(c.out, consoleHelp)

	case "source":
		c.source(args)

	case "play", "pause", "resume", "stop":
		id, ok := c.sourceArg(args)
		if !ok {
			return false
		}
		commands := map[string]func(channel.SourceID) bool{
			"play":   ch.Play,
			"pause":  ch.Pause,
			"resume": ch.Resume,
			"stop":   ch.Stop,
		}
		c.result(name, commands[name](id))

	case "offset":
		id, ok := c.sourceArg(args)
		if !ok {
			return false
		}
		fmt.Fprintf(c.out, "offset %s\n", ch.Offset(id))

	case "duration":
		if d, ok := ch.Duration(ch.CurrentSource()); ok {
			fmt.Fprintf(c.out, "duration %s\n", d)
		} else {
			fmt.Fprintln(c.out, "duration unknown")
		}

	case "buffered":
		fmt.Fprintf(c.out, "buffered %d\n", ch.BufferedBytes())

	case "volume":
		c.volume(args)

	case "mute":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			fmt.Fprintln(c.out, "usage: mute on|off")
			return false
		}
		c.result("mute", ch.SetMute(args[0] == "on"))

	case "duck":
		c.result("duck", ch.StartDucking(channel.DuckerUpstream))

	case "unduck":
		c.result("unduck", ch.StopDucking(channel.DuckerUpstream))

	case "focus":
		if len(args) != 1 || (args[0] != "duck" && args[0] != "unduck") {
			fmt.Fprintln(c.out, "usage: focus duck|unduck")
			return false
		}
		action := channel.FocusDuckingStarted
		if args[0] == "unduck" {
			action = channel.FocusDuckingStopped
		}
		c.session.sink.ReportFocusAction(action)
		fmt.Fprintf(c.out, "focus %s reported\n", action)

	case "settings":
		settings := ch.Settings()
		fmt.Fprintf(c.out, "volume=%d muted=%t\n", settings.Volume, settings.Muted)

	default:
		fmt.Fprintf(c.out, "unknown command: %s (try \"help\")\n", name)
	}
	return false
}

func (c *console) source(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "usage: source PATH [repeat] [duck] [at=DURATION]")
		return
	}

	var opts channel.SourceOptions
	for _, arg := range args[1:] {
		switch {
		case arg == "repeat":
			opts.Repeating = true
		case arg == "duck":
			opts.MayDuck = true
		case strings.HasPrefix(arg, "at="):
			offset, err := parseOffset(strings.TrimPrefix(arg, "at="))
			if err != nil {
				fmt.Fprintf(c.out, "invalid offset: %v\n", err)
				return
			}
			opts.Offset = offset
		default:
			fmt.Fprintf(c.out, "unknown source option: %s\n", arg)
			return
		}
	}

	id := c.session.channel.SetSourceURL(c.session.resolveMedia(args[0]), opts)
	if !id.IsValid() {
		fmt.Fprintf(c.out, "source failed: %s\n", args[0])
		return
	}
	fmt.Fprintf(c.out, "source %d\n", id)
}

func (c *console) volume(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: volume N | volume +N | volume -N")
		return
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "invalid volume: %s\n", args[0])
		return
	}

	ch := c.session.channel
	if strings.HasPrefix(args[0], "+") || strings.HasPrefix(args[0], "-") {
		c.result("volume", ch.AdjustVolume(value))
	} else {
		c.result("volume", ch.SetVolume(value))
	}
}

// sourceArg parses an optional source id, defaulting to the current source
func (c *console) sourceArg(args []string) (channel.SourceID, bool) {
	if len(args) == 0 {
		return c.session.channel.CurrentSource(), true
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "invalid source id: %s\n", args[0])
		return channel.InvalidSourceID, false
	}
	return channel.SourceID(id), true
}

func (c *console) result(name string, ok bool) {
	if ok {
		fmt.Fprintf(c.out, "%s ok\n", name)
	} else {
		fmt.Fprintf(c.out, "%s failed\n", name)
	}
}

// parseOffset accepts a Go duration ("1.5s") or a bare number of milliseconds
func parseOffset(text string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("offset must not be negative: %d", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("offset must not be negative: %s", d)
	}
	return d, nil
}
