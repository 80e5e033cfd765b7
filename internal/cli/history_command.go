package cli

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"audiochan.click/internal/channel"
	"audiochan.click/internal/journal"
)

func newHistoryCommand() *cobra.Command {
	var since string
	var preset string
	var sessionID string
	var source uint64
	var events []string
	var limit int
	var summary bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled playback events",
		Long: `Show lifecycle events recorded in the playback journal, newest first.

--since accepts a date preset (today, yesterday, week, last-week, month,
last-month, all) or a natural expression such as "3 hours ago" or
"last monday".

Examples:
  audiochan history                         # Most recent events
  audiochan history --since yesterday       # Since yesterday 00:00
  audiochan history --event error --limit 5 # Recent failures
  audiochan history --summary --preset week # Event counts this week`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := journal.QueryFilter{
				DatePreset: preset,
				SessionID:  sessionID,
				Source:     channel.SourceID(source),
				Events:     events,
				Limit:      limit,
			}
			if since != "" {
				start, err := journal.ParseSince(since, time.Now())
				if err != nil {
					return fmt.Errorf("invalid --since value: %w", err)
				}
				filter.Since = &start
			}
			return runHistory(cmd, filter, summary)
		},
	}

	historyCmd.Flags().StringVar(&since, "since", "", "Only show events after this time")
	historyCmd.Flags().StringVar(&preset, "preset", "", "Date preset (today, yesterday, week, last-week, month, last-month, all)")
	historyCmd.Flags().StringVar(&sessionID, "session", "", "Only show events from this session")
	historyCmd.Flags().Uint64Var(&source, "source", 0, "Only show events for this source id")
	historyCmd.Flags().StringSliceVar(&events, "event", nil, "Only show these event kinds (started, paused, error, ...)")
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events to show")
	historyCmd.Flags().BoolVar(&summary, "summary", false, "Show event counts instead of individual events")

	return historyCmd
}

func runHistory(cmd *cobra.Command, filter journal.QueryFilter, summary bool) error {
	slog.Debug("running history command", "filter", fmt.Sprintf("%+v", filter), "summary", summary)

	cli, _, err := prepareCommand(cmd)
	if err != nil {
		return err
	}
	if cli.journalDB == nil {
		return fmt.Errorf("playback journal is not enabled or database is not available")
	}

	if summary {
		counts, err := journal.Summary(cli.journalDB, filter)
		if err != nil {
			slog.Error("failed to summarize playback journal", "error", err)
			return fmt.Errorf("failed to summarize playback history: %w", err)
		}
		return outputSummary(cmd.OutOrStdout(), counts)
	}

	records, err := journal.Query(cli.journalDB, filter)
	if err != nil {
		slog.Error("failed to query playback journal", "error", err)
		return fmt.Errorf("failed to query playback history: %w", err)
	}
	return outputHistory(cmd.OutOrStdout(), records)
}

func outputHistory(w io.Writer, records []journal.EventRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No playback events found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tSOURCE\tEVENT\tOFFSET\tDETAIL")
	for _, record := range records {
		detail := record.ErrorCode
		if record.Description != "" {
			detail += " " + record.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			record.Timestamp.Format(time.DateTime),
			shortSession(record.SessionID),
			record.SourceID,
			record.Event,
			record.Offset,
			detail)
	}
	return tw.Flush()
}

func outputSummary(w io.Writer, counts []journal.EventCount) error {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No playback events found.")
		return nil
	}

	total := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tCOUNT")
	for _, count := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", count.Event, count.Count)
		total += count.Count
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	return tw.Flush()
}

// shortSession trims a uuid session id to its first block for display
func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
