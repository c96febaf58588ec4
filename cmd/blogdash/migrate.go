package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"blogdash/internal/database"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	status, err := database.MigrationStatus(ctx, db)
	if err != nil {
		return err
	}
	for _, s := range status {
		slog.Info("migration", "version", s.Source.Version, "state", s.State, "applied_at", s.AppliedAt)
	}
	return nil
}
