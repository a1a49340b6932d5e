package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/awhicks/spanview/pkg/runtimeapi"
	"github.com/awhicks/spanview/pkg/tracetree"
)

// supportedTraceTasks are the root task types the runtime records traces for.
var supportedTraceTasks = []string{
	"ai_chat", "accelerated_refresh", "ai_completion", "sql_query", "nsql",
	"tool_use::document_similarity", "tool_use::list_datasets", "tool_use::sql",
	"tool_use::table_schema", "tool_use::sample_data", "tool_use::sql_query", "tool_use::memory",
	"vector_search",
}

func traceCmd(v *viper.Viper) *cobra.Command {
	var (
		id             string
		traceID        string
		includeInput   bool
		includeOutput  bool
		truncateLength int
		local          bool
		format         string
	)

	cmd := &cobra.Command{
		Use:   "trace <task>",
		Short: "Render a user-friendly view of one traced operation",
		Example: `
# render the last ai_chat trace as a table
$ spanview trace ai_chat

# render the trace for a given operation id
$ spanview trace ai_chat --id chatcmpl-At6ZmDE8iAYRPeuQLA0FLlWxGKNnM

# ASCII tree with input/output columns truncated to 80 characters
$ spanview trace sql_query --format tree
$ spanview trace sql_query --include-input --include-output --truncate
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("missing task type\n\nUsage: spanview trace <task>\nSupported tasks: %s", strings.Join(supportedTraceTasks, ", "))
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]
			if !slices.Contains(supportedTraceTasks, task) {
				return fmt.Errorf("invalid trace task %q, supported: %s", task, strings.Join(supportedTraceTasks, ", "))
			}

			opts := traceOptions{
				task:    task,
				id:      id,
				traceID: traceID,
				local:   local,
				format:  format,
				rowOpts: tracetree.RowOptions{
					IncludeInput:   includeInput,
					IncludeOutput:  includeOutput,
					TruncateLength: truncateLength,
				},
			}
			return runTrace(cmd, v, opts)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "select the trace containing this operation id label")
	cmd.Flags().StringVar(&traceID, "trace-id", "", "select the trace with this trace id")
	cmd.Flags().BoolVar(&includeInput, "include-input", false, "include the input column")
	cmd.Flags().BoolVar(&includeOutput, "include-output", false, "include the output column")
	cmd.Flags().IntVar(&truncateLength, "truncate", 0, "truncate input/output to 80 characters when set, or to the given length")
	cmd.Flags().Lookup("truncate").NoOptDefVal = "80"
	cmd.Flags().BoolVar(&local, "local", false, "read from the local store instead of the runtime")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, tree, yaml, summary")

	return cmd
}

type traceOptions struct {
	task    string
	id      string
	traceID string
	local   bool
	format  string
	rowOpts tracetree.RowOptions
}

func runTrace(cmd *cobra.Command, v *viper.Viper, opts traceOptions) error {
	spans, err := fetchSpans(cmd.Context(), v, opts)
	if err != nil {
		return err
	}
	if len(spans) == 0 {
		return fmt.Errorf("no spans found for task %q\n\nRun the operation first, or check --endpoint (current: %s)",
			opts.task, v.GetString("endpoint"))
	}

	tree, err := tracetree.Build(spans, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch opts.format {
	case "table":
		rows := tracetree.Rows(tree)
		renderRowTable(w, rows, opts.rowOpts)
		return nil
	case "tree":
		tracetree.WriteTree(w, tree, treeDetail)
		return nil
	case "yaml":
		out, err := tracetree.MarshalYAML(tree)
		if err != nil {
			return fmt.Errorf("encoding trace: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "summary":
		renderSummaryTable(w, tracetree.Summarize(tree))
		return nil
	default:
		return fmt.Errorf("unknown format %q, valid formats: table, tree, yaml, summary", opts.format)
	}
}

// treeDetail is the per-span line detail for --format tree.
func treeDetail(s *tracetree.Span) string {
	detail := fmt.Sprintf("%s %s", s.Task, strings.TrimSpace(fmt.Sprintf("%8.2fms", s.ExecutionDurationMs)))
	if s.IsError() {
		detail += " " + tracetree.StatusFailed + " " + *s.ErrorMessage
	}
	if len(s.Labels) > 0 {
		detail += " " + tracetree.FormatLabels(s.Labels)
	}
	return detail
}

// fetchSpans resolves the trace selection flags and loads all of its spans,
// from the local store with --local, otherwise from the runtime.
func fetchSpans(ctx context.Context, v *viper.Viper, opts traceOptions) ([]tracetree.Span, error) {
	if opts.local {
		return fetchLocalSpans(ctx, v, opts)
	}

	var filter string
	switch {
	case opts.id != "":
		filter = runtimeapi.FilterByLabelID(opts.id)
	case opts.traceID != "":
		filter = runtimeapi.FilterByTraceID(opts.traceID)
	default:
		filter = runtimeapi.FilterLatestForTask(opts.task)
	}

	client := runtimeapi.New(v.GetString("endpoint"), runtimeapi.WithAPIKey(v.GetString("api-key")))
	return client.QuerySpans(ctx, runtimeapi.SpanQuery(filter))
}

func fetchLocalSpans(ctx context.Context, v *viper.Viper, opts traceOptions) ([]tracetree.Span, error) {
	s, err := openStore(ctx, v)
	if err != nil {
		return nil, err
	}
	defer s.Close() //nolint:errcheck // read-only usage

	traceID := opts.traceID
	switch {
	case traceID != "":
	case opts.id != "":
		traceID, err = s.TraceIDForLabel(ctx, "id", opts.id)
		if err != nil {
			return nil, err
		}
	default:
		traceID, err = s.LatestTraceIDForTask(ctx, opts.task)
		if err != nil {
			return nil, err
		}
	}
	return s.SpansForTrace(ctx, traceID)
}
