package main

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"weblogd/internal/config"
	"weblogd/internal/store"

	_ "modernc.org/sqlite"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				db, err := openRawDB(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()

				plan, err := store.MigrationPlan(db)
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
				if *jsonOutput {
					return writeJSON(plan)
				}

				_ = writePlain("current version: %d\n", plan.CurrentVersion)
				_ = writePlain("available version: %d\n", plan.AvailableVersion)
				if len(plan.Pending) == 0 {
					return writePlain("no pending migrations\n")
				}
				for _, m := range plan.Pending {
					_ = writePlain("  %d: %s\n", m.Version, m.Description)
				}
				return nil
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				plan, err := store.MigrationPlan(st.DB())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(plan)
				}
				return writePlain("schema at version %d\n", plan.CurrentVersion)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	return cmd
}

func openRawDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return sql.Open("sqlite", u.String())
}
