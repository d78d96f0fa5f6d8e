package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/contentauth/internal/config"
	"github.com/MrEthical07/contentauth/internal/userstore/postgres"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the users table schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("direction", "up").Wrap(err)
			}
			cmd.Println("Migrations applied")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			if err := m.Down(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("direction", "down").Wrap(err)
			}
			cmd.Println("Migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		}),
	})

	return cmd
}

func withMigrator(fn func(*cobra.Command, *postgres.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		cfg, err := config.Load(cmd.Context(), envFile)
		if err != nil {
			return oops.Code("CONFIG_INVALID").Wrap(err)
		}
		if cfg.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
		}

		m, err := postgres.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := m.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		return fn(cmd, m)
	}
}
