// Package main is the entry point for the blogdash admin dashboard.
// The default command serves the dashboard; "migrate" applies the activity
// log migrations and exits.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"blogdash/internal/config"
	"blogdash/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "blogdash",
		Short:         "Admin dashboard for the blog REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending activity log migrations",
			RunE:  runMigrate,
		},
	)

	if err := root.Execute(); err != nil {
		slog.Error("blogdash failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger. The closer
// flushes the rotated log file, if any.
func setup() (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, closer := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  !cfg.IsDev(),
		File:  cfg.LogFile,
	})
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"api", cfg.APIBaseURL,
	)
	return cfg, closer, nil
}
