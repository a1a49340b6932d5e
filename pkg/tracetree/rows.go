// Flattened row form of a trace tree for tabular rendering
// Pre-order traversal producing a tree-prefix column plus formatted fields
package tracetree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TreeRow pairs the tree-drawing prefix for one span with the span itself,
// in pre-order. The prefix goes in the first table column so the task column
// lines up as a tree.
type TreeRow struct {
	Prefix string
	Span   Span
}

// Rows flattens the tree into pre-order rows, orphan subtrees last.
// The order matches WriteTree exactly.
func Rows(tree *Tree) []TreeRow {
	if tree == nil {
		return nil
	}
	rows := make([]TreeRow, 0, tree.SpanCount())
	rows = appendRows(rows, tree.Root, "", true)
	for _, orphan := range tree.Orphans {
		rows = appendRows(rows, orphan, "", true)
	}
	return rows
}

func appendRows(rows []TreeRow, node *Node, indent string, isLast bool) []TreeRow {
	if node == nil {
		return rows
	}

	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if indent == "" {
		connector = ""
	}
	rows = append(rows, TreeRow{Prefix: indent + connector, Span: node.Span})

	childIndent := indent + "│ "
	if isLast {
		childIndent = indent + "  "
	}
	for i, child := range node.Children {
		rows = appendRows(rows, child, childIndent, i == len(node.Children)-1)
	}
	return rows
}

// Status glyphs for the table's status column.
const (
	StatusOK     = "✅"
	StatusFailed = "🚫"
)

// emptyPlaceholder is shown for empty input/output so the cell is never blank.
const emptyPlaceholder = "<empty>"

// RowOptions selects which payload columns a formatted row carries and how
// aggressively they are truncated. TruncateLength <= 0 disables truncation.
type RowOptions struct {
	IncludeInput   bool
	IncludeOutput  bool
	TruncateLength int
}

// Row holds display-ready values for one table row. Input and Output are only
// populated when the corresponding RowOptions flag is set.
type Row struct {
	Tree     string
	Status   string
	Duration string
	Task     string
	Input    string
	Output   string
}

// FormatRow produces the display values for one flattened tree row.
func FormatRow(tr TreeRow, opts RowOptions) Row {
	row := Row{
		Tree:     tr.Prefix,
		Status:   StatusOK,
		Duration: fmt.Sprintf("%8.2fms", tr.Span.ExecutionDurationMs),
		Task:     tr.Span.Task,
	}
	if tr.Span.IsError() {
		row.Status = StatusFailed
	}

	if opts.IncludeInput {
		row.Input = DisplayText(tr.Span.Input, opts.TruncateLength)
	}
	if opts.IncludeOutput {
		output := ""
		if tr.Span.CapturedOutput != nil {
			output = *tr.Span.CapturedOutput
		}
		row.Output = DisplayText(output, opts.TruncateLength)
	}
	return row
}

// DisplayText prepares a payload for display: empty text becomes the
// <empty> placeholder, text longer than length characters is truncated with
// a suffix noting how many were omitted, and anything else passes through.
// Counting and cutting happen on runes so multibyte text stays valid UTF-8.
// length <= 0 disables truncation.
func DisplayText(text string, length int) string {
	if len(text) == 0 {
		return emptyPlaceholder
	}
	if length <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	return string(runes[:length]) + "... " + fmt.Sprintf("(%d characters omitted)", len(runes)-length)
}

// FormatLabels renders a label map as "{key: value, ...}" with keys sorted.
// Values that parse as booleans or integers are rendered unquoted in their
// native form; everything else is rendered as the raw string.
func FormatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		value := labels[key]
		switch {
		case isBool(value):
			b, _ := strconv.ParseBool(value)
			fmt.Fprintf(&sb, "%s: %t", key, b)
		case isInt(value):
			n, _ := strconv.Atoi(value)
			fmt.Fprintf(&sb, "%s: %d", key, n)
		default:
			fmt.Fprintf(&sb, "%s: %s", key, value)
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func isBool(s string) bool {
	_, err := strconv.ParseBool(s)
	return err == nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
