package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/awhicks/spanview/pkg/tracetree"
)

func importCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a task-history span dump into the local store",
		Long:  "Reads a JSON array of task_history records (file or stdin) and stores them locally for offline inspection.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0]) //nolint:gosec // user-supplied file path is expected
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close() //nolint:errcheck // best-effort close on read-only file
				r = f
			}

			spans, err := tracetree.ParseSpans(r)
			if err != nil {
				return err
			}
			if len(spans) == 0 {
				return fmt.Errorf("no spans found in input\n\nProvide a file or pipe stdin:\n  spanview import traces.json\n  cat traces.json | spanview import")
			}

			s, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck // close after writes are committed

			ingestID, err := s.InsertSpans(cmd.Context(), spans)
			if err != nil {
				return err
			}

			traces := make(map[string]bool)
			for _, span := range spans {
				traces[span.TraceID] = true
			}

			p := message.NewPrinter(language.English)
			_, _ = p.Fprintf(cmd.OutOrStdout(), "Imported %d spans across %d traces (batch %s)\n",
				len(spans), len(traces), ingestID)
			return nil
		},
	}

	return cmd
}
