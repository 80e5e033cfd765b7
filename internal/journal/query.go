package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/tj/go-naturaldate"

	"audiochan.click/internal/channel"
)

const tableName = "playback_events"

// QueryFilter selects journal rows. Zero values mean "no restriction".
type QueryFilter struct {
	// Time window; DatePreset wins over Since/Until
	Since      *time.Time
	Until      *time.Time
	DatePreset string // "today", "yesterday", "week", "last-week", "month", "last-month", "all"

	SessionID string
	Source    channel.SourceID
	Events    []string // event names, e.g. "started", "error"

	Limit int
}

// EventRecord is one journaled lifecycle event
type EventRecord struct {
	ID          int64
	Timestamp   time.Time
	SessionID   string
	SourceID    channel.SourceID
	Event       string
	Offset      time.Duration
	ErrorCode   string
	Description string
}

// EventCount is the number of rows for one event kind
type EventCount struct {
	Event string
	Count int
}

// TimeRange resolves the filter's window against now. A zero start means unbounded.
func (q *QueryFilter) TimeRange(now time.Time) (start, end time.Time) {
	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err == nil {
			return start, end
		}
		slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
		return time.Time{}, now
	}

	end = now
	if q.Since != nil {
		start = *q.Since
	}
	if q.Until != nil {
		end = *q.Until
	}
	return start, end
}

func (q *QueryFilter) apply(sb *sqlbuilder.SelectBuilder, now time.Time) {
	var conds []string

	if q.DatePreset != "" || q.Since != nil || q.Until != nil {
		start, end := q.TimeRange(now)
		if !start.IsZero() {
			conds = append(conds, sb.GreaterEqualThan("timestamp", start.Unix()))
		}
		conds = append(conds, sb.LessEqualThan("timestamp", end.Unix()))
	}
	if q.SessionID != "" {
		conds = append(conds, sb.Equal("session_id", q.SessionID))
	}
	if q.Source.IsValid() {
		conds = append(conds, sb.Equal("source_id", int64(q.Source)))
	}
	if len(q.Events) > 0 {
		conds = append(conds, sb.In("event", sqlbuilder.Flatten(q.Events)...))
	}

	if len(conds) > 0 {
		sb.Where(conds...)
	}
}

// Query lists matching rows, newest first
func Query(db *sql.DB, filter QueryFilter) ([]EventRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "timestamp", "session_id", "source_id", "event", "offset_ms", "error_code", "description")
	sb.From(tableName)
	filter.apply(sb, time.Now())
	sb.OrderBy("timestamp DESC", "id DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	slog.Debug("querying playback journal", "query", query, "arg_count", len(args))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playback events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var (
			record      EventRecord
			timestamp   int64
			sourceID    int64
			offsetMS    int64
			errorCode   sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&record.ID, &timestamp, &record.SessionID, &sourceID,
			&record.Event, &offsetMS, &errorCode, &description); err != nil {
			return nil, fmt.Errorf("failed to scan playback event: %w", err)
		}

		record.Timestamp = time.Unix(timestamp, 0)
		record.SourceID = channel.SourceID(sourceID)
		record.Offset = time.Duration(offsetMS) * time.Millisecond
		record.ErrorCode = errorCode.String
		record.Description = description.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playback events: %w", err)
	}

	return records, nil
}

// Summary counts matching rows per event kind, most frequent first
func Summary(db *sql.DB, filter QueryFilter) ([]EventCount, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("event", "COUNT(*) AS count")
	sb.From(tableName)
	filter.apply(sb, time.Now())
	sb.GroupBy("event")
	sb.OrderBy("count DESC", "event")

	query, args := sb.Build()
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize playback events: %w", err)
	}
	defer rows.Close()

	var counts []EventCount
	for rows.Next() {
		var count EventCount
		if err := rows.Scan(&count.Event, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// ParseSince turns a preset name or natural-language expression
// ("yesterday", "3 hours ago", "last monday") into a point in time
func ParseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if start, _, err := ParseDatePreset(text, now); err == nil {
		return start, nil
	}

	result, err := naturaldate.Parse(text, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", text, err)
	}
	if result.Equal(now) {
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': no date found", text)
	}
	return result, nil
}

// ParseDatePreset converts date preset strings to time ranges
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start = beginningOfDay(now)
		end = now
	case "yesterday":
		start = beginningOfDay(now.AddDate(0, 0, -1))
		end = beginningOfDay(now)
	case "week", "this-week":
		start = beginningOfWeek(now)
		end = now
	case "last-week":
		start = beginningOfWeek(now).AddDate(0, 0, -7)
		end = beginningOfWeek(now)
	case "month", "this-month":
		start = beginningOfMonth(now)
		end = now
	case "last-month":
		start = beginningOfMonth(now).AddDate(0, -1, 0)
		end = beginningOfMonth(now)
	case "all", "all-time":
		start = time.Time{}
		end = now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
	}
	return
}

func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00 of t's week
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return beginningOfDay(t.AddDate(0, 0, -int(weekday-1)))
}

func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
