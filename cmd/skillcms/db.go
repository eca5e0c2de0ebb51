package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/db"
	"github.com/jingkaihe/skillcms/pkg/db/migrations"
	"github.com/jingkaihe/skillcms/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the local draft database (migrations, status).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the current database migration status, including applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		conn, runner, err := openMigrationRunner(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := runner.AppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		appliedMap := make(map[int64]bool, len(applied))
		for _, v := range applied {
			appliedMap[v] = true
		}

		all := migrations.All()
		presenter.Section("Database Migration Status")
		presenter.Info(fmt.Sprintf("Database: %s\n", cfg.DBPath))

		appliedCount := 0
		for _, m := range all {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[✓]"
				appliedCount++
			}
			presenter.Info(fmt.Sprintf("%s %d - %s", status, m.Version, m.Description))
		}
		presenter.Info(fmt.Sprintf("\nApplied: %d/%d migrations", appliedCount, len(all)))
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		conn, runner, err := openMigrationRunner(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := runner.Run(ctx, migrations.All()); err != nil {
			return err
		}
		presenter.Success("Database is up to date")
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied database migration. Useful for testing or downgrading skillcms.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		conn, runner, err := openMigrationRunner(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := runner.AppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		last := applied[len(applied)-1]
		presenter.Info(fmt.Sprintf("Rolling back migration %d", last))
		if err := runner.Rollback(ctx, migrations.All()); err != nil {
			return errors.Wrap(err, "failed to rollback migration")
		}
		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", last))
		return nil
	},
}

func openMigrationRunner(ctx context.Context) (*sqlx.DB, *db.MigrationRunner, error) {
	conn, err := db.Open(ctx, cfg.DBPath, nil)
	if err != nil {
		return nil, nil, err
	}
	return conn, db.NewMigrationRunner(conn), nil
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
