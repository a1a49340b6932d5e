// Trace filter expressions over the runtime's task_history table
package runtimeapi

import (
	"fmt"
	"strings"
)

// SpanQuery wraps a filter expression in the full query used to fetch every
// span of one trace, ordered by start time.
func SpanQuery(filter string) string {
	return fmt.Sprintf("SELECT * FROM runtime.task_history WHERE %s ORDER BY start_time ASC", filter)
}

// FilterByTraceID selects a trace directly by its ID.
func FilterByTraceID(traceID string) string {
	return fmt.Sprintf("trace_id='%s'", escape(traceID))
}

// FilterByLabelID selects the trace containing a span labelled with the given
// operation id (e.g. a chat completion id).
func FilterByLabelID(id string) string {
	return fmt.Sprintf("trace_id=(SELECT trace_id FROM runtime.task_history WHERE labels.id='%s')", escape(id))
}

// FilterLatestForTask selects the most recently started trace whose root is
// the given task.
func FilterLatestForTask(task string) string {
	return fmt.Sprintf("trace_id=(SELECT trace_id FROM runtime.task_history WHERE task='%s' ORDER BY start_time DESC LIMIT 1)", escape(task))
}

// escape doubles single quotes so interpolated values cannot break out of
// their string literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
