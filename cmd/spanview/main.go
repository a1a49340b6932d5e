// Task-history trace inspector
// Fetches spans for one trace from a runtime's SQL endpoint or a local store
// and renders them as a tree, a table, or a per-task summary
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafana/pyroscope-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/awhicks/spanview/pkg/store"
	"github.com/awhicks/spanview/pkg/telemetry"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	var (
		telemetryShutdown func(context.Context) error
		profiler          *pyroscope.Profiler
	)

	root := &cobra.Command{
		Use:          "spanview",
		Short:        "Task-history trace inspector",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v); err != nil {
				return err
			}

			if addr := v.GetString("pyroscope"); addr != "" {
				p, err := pyroscope.Start(pyroscope.Config{
					ApplicationName: "spanview",
					ServerAddress:   addr,
				})
				if err != nil {
					return fmt.Errorf("starting pyroscope profiler: %w", err)
				}
				profiler = p
			}

			shutdown, err := telemetry.Configure(cmd.Context(), "spanview", version, telemetry.Mode(v.GetString("otel")))
			if err != nil {
				return err
			}
			telemetryShutdown = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if profiler != nil {
				if err := profiler.Stop(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error stopping profiler: %v\n", err)
				}
			}
			if telemetryShutdown != nil {
				return telemetryShutdown(cmd.Context())
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("endpoint", "http://localhost:8090", "runtime HTTP endpoint")
	pf.String("api-key", "", "runtime api key")
	pf.String("db-driver", store.DriverSQLite, "local store driver (sqlite or pgx)")
	pf.String("db", defaultDBPath(), "local store DSN (file path for sqlite)")
	pf.String("otel", "off", "self-tracing exporter: off, stdout, grpc, http")
	pf.String("pyroscope", "", "pyroscope server address for continuous profiling")
	for _, key := range []string{"endpoint", "api-key", "db-driver", "db", "otel", "pyroscope"} {
		_ = v.BindPFlag(key, pf.Lookup(key))
	}

	root.AddCommand(traceCmd(v))
	root.AddCommand(tasksCmd(v))
	root.AddCommand(importCmd(v))
	root.AddCommand(versionCmd())

	return root
}

// loadConfig layers the optional config file and SPANVIEW_ environment
// variables under the already-bound flags.
func loadConfig(v *viper.Viper) error {
	v.SetEnvPrefix("SPANVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "spanview"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// openStore opens the local task-history database and brings its schema up
// to date.
func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	dsn := v.GetString("db")
	if v.GetString("db-driver") == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	s, err := store.Open(ctx, v.GetString("db-driver"), dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "task_history.db"
	}
	return filepath.Join(dir, "spanview", "task_history.db")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "spanview %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}
