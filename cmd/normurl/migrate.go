package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/devraulu/normurl/pkg/storage"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down, revert) the registry schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.DSN == "" {
				return errors.New("migrate needs dsn in the config file")
			}

			db, err := sql.Open("postgres", a.cfg.DSN)
			if err != nil {
				return fmt.Errorf("couldn't open database: %w", err)
			}
			defer db.Close()

			if down {
				return storage.RollbackMigrations(db)
			}
			return storage.RunMigrations(db)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "revert every migration")
	return cmd
}
