// Package store keeps a local copy of task_history spans in SQLite or
// PostgreSQL, so traces can be inspected without a running runtime.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
	_ "modernc.org/sqlite"             // database/sql driver "sqlite"

	"github.com/awhicks/spanview/pkg/tracetree"
)

// Supported drivers. The constant doubles as the database/sql driver name.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// ErrNotFound is returned when a lookup matches no trace.
var ErrNotFound = errors.New("not found in task history")

// Store is a task_history span store over a single SQL database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and verifies the connection.
// Call Migrate before first use on a fresh database.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q, supported: %s, %s", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	return &Store{db: db, driver: driver}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSpans writes spans into task_history, skipping rows that already
// exist. All rows of one call share a generated ingest batch ID, which is
// returned for provenance.
func (s *Store) InsertSpans(ctx context.Context, spans []tracetree.Span) (string, error) {
	ingestID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insert = `INSERT INTO task_history
		(trace_id, span_id, parent_span_id, task, input, captured_output,
		 start_time, end_time, execution_duration_ms, error_message, labels, ingest_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (trace_id, span_id) DO NOTHING`

	for _, span := range spans {
		labels, err := json.Marshal(span.Labels)
		if err != nil {
			return "", fmt.Errorf("encoding labels for span %s: %w", span.SpanID, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			span.TraceID, span.SpanID, span.ParentSpanID, span.Task,
			span.Input, span.CapturedOutput,
			span.StartTime.Time(), span.EndTime.Time(),
			span.ExecutionDurationMs, span.ErrorMessage, string(labels), ingestID)
		if err != nil {
			return "", fmt.Errorf("inserting span %s: %w", span.SpanID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing spans: %w", err)
	}
	return ingestID, nil
}

// SpansForTrace returns every span of one trace ordered by start time.
func (s *Store) SpansForTrace(ctx context.Context, traceID string) ([]tracetree.Span, error) {
	const query = `SELECT trace_id, span_id, parent_span_id, task, input, captured_output,
		start_time, end_time, execution_duration_ms, error_message, labels
		FROM task_history WHERE trace_id = $1 ORDER BY start_time ASC`

	rows, err := s.db.QueryContext(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("querying spans for trace %s: %w", traceID, err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var spans []tracetree.Span
	for rows.Next() {
		var (
			span                           tracetree.Span
			parent, output, errMsg, labels sql.NullString
			start, end                     time.Time
		)
		if err := rows.Scan(&span.TraceID, &span.SpanID, &parent, &span.Task, &span.Input,
			&output, &start, &end, &span.ExecutionDurationMs, &errMsg, &labels); err != nil {
			return nil, fmt.Errorf("scanning span row: %w", err)
		}
		if parent.Valid {
			span.ParentSpanID = &parent.String
		}
		if output.Valid {
			span.CapturedOutput = &output.String
		}
		if errMsg.Valid {
			span.ErrorMessage = &errMsg.String
		}
		span.StartTime = tracetree.MilliTime(start)
		span.EndTime = tracetree.MilliTime(end)
		if labels.Valid && labels.String != "" {
			if err := json.Unmarshal([]byte(labels.String), &span.Labels); err != nil {
				return nil, fmt.Errorf("decoding labels for span %s: %w", span.SpanID, err)
			}
		}
		spans = append(spans, span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading span rows: %w", err)
	}
	return spans, nil
}

// LatestTraceIDForTask returns the trace ID of the most recently started
// trace whose root task matches.
func (s *Store) LatestTraceIDForTask(ctx context.Context, task string) (string, error) {
	const query = `SELECT trace_id FROM task_history
		WHERE task = $1 ORDER BY start_time DESC LIMIT 1`

	var traceID string
	err := s.db.QueryRowContext(ctx, query, task).Scan(&traceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no trace for task %q: %w", task, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying latest trace for task %q: %w", task, err)
	}
	return traceID, nil
}

// TraceIDForLabel returns the trace containing a span whose label key equals
// value. JSON extraction syntax differs per driver.
func (s *Store) TraceIDForLabel(ctx context.Context, key, value string) (string, error) {
	var query string
	switch s.driver {
	case DriverPostgres:
		query = `SELECT trace_id FROM task_history WHERE labels::jsonb ->> $1 = $2 LIMIT 1`
	default:
		query = `SELECT trace_id FROM task_history WHERE json_extract(labels, '$.' || $1) = $2 LIMIT 1`
	}

	var traceID string
	err := s.db.QueryRowContext(ctx, query, key, value).Scan(&traceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no trace with label %s=%s: %w", key, value, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying trace by label %s: %w", key, err)
	}
	return traceID, nil
}

// TraceSummary describes one stored trace by its root span.
type TraceSummary struct {
	TraceID    string
	Task       string
	StartTime  time.Time
	DurationMs float64
	Failed     bool
	SpanCount  int
}

// RecentTraces lists the most recently started traces, newest first.
func (s *Store) RecentTraces(ctx context.Context, limit int) ([]TraceSummary, error) {
	const query = `SELECT h.trace_id, h.task, h.start_time, h.execution_duration_ms, h.error_message,
		(SELECT COUNT(*) FROM task_history c WHERE c.trace_id = h.trace_id)
		FROM task_history h
		WHERE h.parent_span_id IS NULL
		ORDER BY h.start_time DESC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent traces: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var summaries []TraceSummary
	for rows.Next() {
		var (
			ts     TraceSummary
			errMsg sql.NullString
		)
		if err := rows.Scan(&ts.TraceID, &ts.Task, &ts.StartTime, &ts.DurationMs, &errMsg, &ts.SpanCount); err != nil {
			return nil, fmt.Errorf("scanning trace summary: %w", err)
		}
		ts.Failed = errMsg.Valid && errMsg.String != ""
		summaries = append(summaries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading trace summaries: %w", err)
	}
	return summaries, nil
}
