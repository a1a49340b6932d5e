// Tests for table rendering of trace rows and summaries
package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awhicks/spanview/pkg/store"
	"github.com/awhicks/spanview/pkg/tracetree"
)

func tableRows(t *testing.T) []tracetree.TreeRow {
	t.Helper()
	output := "42 rows"
	parent := "a1"
	spans := []tracetree.Span{
		{
			TraceID: "t1", SpanID: "a1", Task: "ai_chat",
			Input:               "what datasets exist?",
			StartTime:           tracetree.MilliTime(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)),
			ExecutionDurationMs: 900,
		},
		{
			TraceID: "t1", SpanID: "b2", ParentSpanID: &parent, Task: "tool_use::sql",
			Input:               strings.Repeat("S", 100),
			CapturedOutput:      &output,
			StartTime:           tracetree.MilliTime(time.Date(2025, 3, 14, 9, 0, 1, 0, time.UTC)),
			ExecutionDurationMs: 100,
		},
	}
	tree, err := tracetree.Build(spans, nil)
	require.NoError(t, err)
	return tracetree.Rows(tree)
}

func TestRenderRowTable_BaseColumns(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderRowTable(&out, tableRows(t), tracetree.RowOptions{})

	text := out.String()
	assert.Contains(t, text, "TREE")
	assert.Contains(t, text, "STATUS")
	assert.Contains(t, text, "DURATION")
	assert.Contains(t, text, "TASK")
	assert.NotContains(t, text, "INPUT", "input column omitted unless requested")
	assert.NotContains(t, text, "OUTPUT")
	assert.Contains(t, text, "ai_chat")
	assert.Contains(t, text, "tool_use::sql")
	assert.Contains(t, text, "└──")
}

func TestRenderRowTable_PayloadColumnsTruncated(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderRowTable(&out, tableRows(t), tracetree.RowOptions{
		IncludeInput:   true,
		IncludeOutput:  true,
		TruncateLength: 10,
	})

	text := out.String()
	assert.Contains(t, text, "INPUT")
	assert.Contains(t, text, "OUTPUT")
	assert.Contains(t, text, "SSSSSSSSSS... (90 characters omitted)")
	assert.Contains(t, text, "42 rows")
	assert.Contains(t, text, "<empty>", "root has no captured output")
}

func TestRenderRowTable_Empty(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderRowTable(&out, nil, tracetree.RowOptions{})
	assert.Empty(t, out.String())
}

func TestRenderSummaryTable(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderSummaryTable(&out, []tracetree.TaskSummary{
		{Task: "sql_query", Count: 3, ErrorCount: 1, Durations: []time.Duration{
			10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond,
		}},
	})

	text := out.String()
	assert.Contains(t, text, "sql_query")
	assert.Contains(t, text, "3")
	assert.Contains(t, text, "33%")
}

func TestRenderTraceList(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderTraceList(&out, []store.TraceSummary{
		{TraceID: "t1", Task: "ai_chat", StartTime: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			DurationMs: 900, SpanCount: 3, Failed: false},
		{TraceID: "t2", Task: "sql_query", StartTime: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
			DurationMs: 50, SpanCount: 1, Failed: true},
	})

	text := out.String()
	assert.Contains(t, text, "t1")
	assert.Contains(t, text, "t2")
	assert.Contains(t, text, tracetree.StatusFailed)
	assert.Contains(t, text, "2025-03-14T09:00:00Z")
}