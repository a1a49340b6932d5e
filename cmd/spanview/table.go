// Table rendering for trace rows, summaries, and trace listings
package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/awhicks/spanview/pkg/store"
	"github.com/awhicks/spanview/pkg/tracetree"
)

// newTableWriter returns a borderless, left-aligned table writer.
func newTableWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	t.SetStyle(style)
	return t
}

// renderRowTable writes the flattened trace as a table. The tree column holds
// the connector prefix so the task column reads as a tree. Input and output
// columns appear only when requested.
func renderRowTable(w io.Writer, rows []tracetree.TreeRow, opts tracetree.RowOptions) {
	if len(rows) == 0 {
		return
	}

	t := newTableWriter(w)
	header := table.Row{"TREE", "STATUS", "DURATION", "TASK"}
	if opts.IncludeInput {
		header = append(header, "INPUT")
	}
	if opts.IncludeOutput {
		header = append(header, "OUTPUT")
	}
	t.AppendHeader(header)

	for _, tr := range rows {
		row := tracetree.FormatRow(tr, opts)
		cells := table.Row{row.Tree, row.Status, row.Duration, row.Task}
		if opts.IncludeInput {
			cells = append(cells, row.Input)
		}
		if opts.IncludeOutput {
			cells = append(cells, row.Output)
		}
		t.AppendRow(cells)
	}
	t.Render()
}

// renderSummaryTable writes per-task aggregates for one trace.
func renderSummaryTable(w io.Writer, summaries []tracetree.TaskSummary) {
	if len(summaries) == 0 {
		return
	}

	t := newTableWriter(w)
	t.AppendHeader(table.Row{"TASK", "COUNT", "DURATION", "ERRORS"})
	for _, s := range summaries {
		errRate := tracetree.FormatErrorRate(s.ErrorCount, s.Count)
		t.AppendRow(table.Row{s.Task, s.Count, tracetree.FormatDistribution(s.Durations), errRate})
	}
	t.Render()
}

// renderTraceList writes the local store's recent traces, newest first.
func renderTraceList(w io.Writer, summaries []store.TraceSummary) {
	if len(summaries) == 0 {
		return
	}

	t := newTableWriter(w)
	t.AppendHeader(table.Row{"TRACE ID", "TASK", "STARTED", "DURATION", "SPANS", "STATUS"})
	for _, s := range summaries {
		status := tracetree.StatusOK
		if s.Failed {
			status = tracetree.StatusFailed
		}
		t.AppendRow(table.Row{
			s.TraceID,
			s.Task,
			s.StartTime.Format(time.RFC3339),
			tracetree.FormatDistribution([]time.Duration{time.Duration(s.DurationMs * float64(time.Millisecond))}),
			s.SpanCount,
			status,
		})
	}
	t.Render()
}
