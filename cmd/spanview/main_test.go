// Tests for the spanview CLI commands
// Exercises the import -> local trace flow end to end over a temp store
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `[
  {
    "trace_id": "8bb4a2d6",
    "span_id": "a1",
    "task": "ai_chat",
    "input": "what datasets exist?",
    "start_time": "2025-03-14T09:26:53.100000",
    "end_time": "2025-03-14T09:26:54.000000",
    "execution_duration_ms": 900.0,
    "labels": {"id": "chatcmpl-123"}
  },
  {
    "trace_id": "8bb4a2d6",
    "span_id": "b2",
    "parent_span_id": "a1",
    "task": "tool_use::list_datasets",
    "input": "",
    "captured_output": "taxi_trips",
    "start_time": "2025-03-14T09:26:53.200000",
    "end_time": "2025-03-14T09:26:53.300000",
    "execution_duration_ms": 100.0,
    "labels": {}
  },
  {
    "trace_id": "8bb4a2d6",
    "span_id": "c3",
    "parent_span_id": "a1",
    "task": "tool_use::sql",
    "input": "SELECT * FROM taxi_trips LIMIT 1",
    "start_time": "2025-03-14T09:26:53.400000",
    "end_time": "2025-03-14T09:26:53.500000",
    "execution_duration_ms": 100.0,
    "error_message": "permission denied",
    "labels": {"rows": "0"}
  }
]`

func writeDump(t *testing.T) (dumpPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dumpPath = filepath.Join(dir, "traces.json")
	require.NoError(t, os.WriteFile(dumpPath, []byte(sampleDump), 0o600))
	return dumpPath, filepath.Join(dir, "task_history.db")
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := rootCmd()
	root.SetArgs(args)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "spanview dev")
}

func TestTraceCommand_MissingTask(t *testing.T) {
	_, _, err := runCLI(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing task type")
}

func TestTraceCommand_InvalidTask(t *testing.T) {
	_, _, err := runCLI(t, "trace", "make_coffee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trace task")
	assert.Contains(t, err.Error(), "ai_chat")
}

func TestImportCommand(t *testing.T) {
	dump, db := writeDump(t)

	out, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 spans across 1 traces")
}

func TestImportCommand_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	_, _, err := runCLI(t, "import", empty, "--db", filepath.Join(dir, "db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no spans found in input")
}

func TestTraceCommand_LocalTable(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "trace", "ai_chat", "--local", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "TREE")
	assert.Contains(t, out, "ai_chat")
	assert.Contains(t, out, "tool_use::list_datasets")
	assert.Contains(t, out, "tool_use::sql")
	assert.Contains(t, out, "🚫", "failed span shows the failure glyph")
}

func TestTraceCommand_LocalTree(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "trace", "ai_chat", "--local", "--format", "tree", "--db", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3, "one line per span")
	assert.True(t, strings.HasPrefix(lines[0], "[a1]"), "root prints flush: %q", lines[0])
	assert.Contains(t, lines[1], "├── [b2]")
	assert.Contains(t, lines[2], "└── [c3]")
}

func TestTraceCommand_LocalByTraceID(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "trace", "ai_chat", "--local", "--trace-id", "8bb4a2d6", "--format", "yaml", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "trace_id: 8bb4a2d6")
	assert.Contains(t, out, "spans: 3")
}

func TestTraceCommand_LocalByLabelID(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "trace", "ai_chat", "--local", "--id", "chatcmpl-123", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "ai_chat")
}

func TestTraceCommand_LocalSummary(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "trace", "ai_chat", "--local", "--format", "summary", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "TASK")
	assert.Contains(t, out, "ai_chat")
	assert.Contains(t, out, "100%", "tool_use::sql failed on its only call")
}

func TestTraceCommand_UnknownFormat(t *testing.T) {
	dump, db := writeDump(t)
	_, _, err := runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	_, _, err = runCLI(t, "trace", "ai_chat", "--local", "--format", "hologram", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestTraceCommand_LocalNoTrace(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runCLI(t, "trace", "vector_search", "--local", "--db", filepath.Join(dir, "db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trace for task")
}

func TestTasksCommand(t *testing.T) {
	dump, db := writeDump(t)

	out, _, err := runCLI(t, "tasks", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No traces in the local store")

	_, _, err = runCLI(t, "import", dump, "--db", db)
	require.NoError(t, err)

	out, _, err = runCLI(t, "tasks", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "TRACE ID")
	assert.Contains(t, out, "8bb4a2d6")
	assert.Contains(t, out, "ai_chat")
}

func TestTasksCommand_InvalidLimit(t *testing.T) {
	_, _, err := runCLI(t, "tasks", "--limit", "0", "--db", filepath.Join(t.TempDir(), "db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit must be positive")
}
