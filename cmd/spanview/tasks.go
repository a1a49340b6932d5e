package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func tasksCmd(v *viper.Viper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List recently recorded traces in the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			s, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck // read-only usage

			summaries, err := s.RecentTraces(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No traces in the local store. Import some with: spanview import traces.json")
				return nil
			}

			renderTraceList(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum traces to list")

	return cmd
}
