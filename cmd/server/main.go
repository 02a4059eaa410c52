package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/perceptio/backend/internal/app"
	"github.com/perceptio/backend/internal/catalog"
	"github.com/perceptio/backend/internal/infrastructure/config"
	"github.com/perceptio/backend/internal/stats"
	"github.com/perceptio/backend/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "perceptio",
		Short:         "Video resolution perception study backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newStatsCmd(&configPath))
	root.AddCommand(newScanCmd(&configPath))
	return root
}

func loadApp(configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, os.Stderr)
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.ScanCatalog()
			if err != nil {
				a.Logger.Error("initial catalog scan failed", "error", err)
			} else {
				a.Logger.Info("catalog scanned",
					"base", counts.Base, "licensed", counts.Licensed, "children", counts.Children)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.Logger.Info("starting server", "address", a.Config.Server.Address)
			err = a.Tree().Serve(ctx)
			if err != nil && ctx.Err() == nil {
				return err
			}
			a.Logger.Info("server stopped")
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var dryRun bool
	var csvPath, jsonPath, format string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import the CSV records and JSON users into SQLite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if csvPath == "" {
				csvPath = cfg.Storage.CSVPath
			}
			if jsonPath == "" {
				jsonPath = cfg.Storage.JSONPath
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
				return err
			}
			db, err := store.NewSQLite(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := store.Migrate(cmd.Context(), store.MigrateSource{CSVPath: csvPath, JSONPath: jsonPath}, db, dryRun)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and count without writing")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV records file (default storage.csv_path)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "JSON users file (default storage.json_path)")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: json|yaml")
	return cmd
}

func newStatsCmd(configPath *string) *cobra.Command {
	var filter, format string

	names := make([]string, 0, len(stats.Kinds())+1)
	for _, k := range stats.Kinds() {
		names = append(names, k.String())
	}
	names = append(names, "dashboard")

	cmd := &cobra.Command{
		Use:       "stats <kind>",
		Short:     "Compute one aggregation over the stored records",
		Long:      "Kinds: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var out any
			if args[0] == "dashboard" {
				out, err = a.Stats.Dashboard(cmd.Context())
			} else {
				kind, perr := stats.ParseKind(args[0])
				if perr != nil {
					return perr
				}
				out, err = a.Stats.Compute(cmd.Context(), kind, filter)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "user or video name for kinds that take one")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml")
	return cmd
}

func newScanCmd(configPath *string) *cobra.Command {
	var mode, format string
	var licensed bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the video roots and list the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.ScanCatalog(); err != nil {
				return err
			}
			include := a.Config.Videos.IncludeLicensed
			if cmd.Flags().Changed("licensed") {
				include = licensed
			}
			return writeOutput(cmd.OutOrStdout(), format, a.Catalog.Videos(mode, include))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", catalog.ModeAdult, "viewing mode: adult|child")
	cmd.Flags().BoolVar(&licensed, "licensed", true, "merge the licensed video root")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml")
	return cmd
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
