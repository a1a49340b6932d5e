// Span record type and JSON parsing for task-history rows
// Mirrors the runtime's task_history table, one row per traced span
package tracetree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Span is one row of the runtime's task_history table: a single traced unit
// of work within a trace. ParentSpanID is nil for the root span.
type Span struct {
	TraceID             string            `json:"trace_id"`
	SpanID              string            `json:"span_id"`
	ParentSpanID        *string           `json:"parent_span_id,omitempty"`
	Task                string            `json:"task"`
	Input               string            `json:"input"`
	CapturedOutput      *string           `json:"captured_output,omitempty"`
	StartTime           MilliTime         `json:"start_time"`
	EndTime             MilliTime         `json:"end_time"`
	ExecutionDurationMs float64           `json:"execution_duration_ms"`
	ErrorMessage        *string           `json:"error_message,omitempty"`
	Labels              map[string]string `json:"labels"`
}

// IsError reports whether the span recorded a failure.
func (s *Span) IsError() bool {
	return s.ErrorMessage != nil && *s.ErrorMessage != ""
}

// milliLayout is the timestamp format the runtime writes: no zone, sub-second
// precision to microseconds.
const milliLayout = "2006-01-02T15:04:05.999999"

// MilliTime is a timestamp serialised in the runtime's millisecond-precision
// layout rather than RFC 3339.
type MilliTime time.Time

func (t *MilliTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}
	parsed, err := time.Parse(milliLayout, s)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	*t = MilliTime(parsed)
	return nil
}

func (t MilliTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time().Format(milliLayout))
}

// Time returns the underlying time.Time.
func (t MilliTime) Time() time.Time {
	return time.Time(t)
}

// maxInputSize is the maximum span dump size to prevent OOM on large exports.
const maxInputSize = 256 * 1024 * 1024 // 256 MB

// ParseSpans reads a JSON array of span records from r.
// Input is limited to 256 MB. An empty input yields no spans and no error.
func ParseSpans(r io.Reader) ([]Span, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxInputSize/(1024*1024))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var spans []Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("parsing spans: %w", err)
	}
	return spans, nil
}
