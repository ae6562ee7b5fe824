package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/quotehunter/internal/store"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations, or roll back with --down",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is required to run migrations")
		}
		if migrateDown > 0 {
			return store.RollbackMigrations(cfg.Database.URL, cfg.Database.MigrationsDir, migrateDown)
		}
		return store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "roll back this many migrations instead of applying")
}
