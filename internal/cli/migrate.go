package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/config"
)

// NewMigrateCmd applies the SQL migrations under --path.
func NewMigrateCmd() *cobra.Command {
	var dir string

	open := func() (*migrate.Migrate, error) {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
		m, err := migrate.New("file://"+dir, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize migrations: %w", err)
		}
		return m, nil
	}

	// run opens the migrator, applies fn, and releases the source and database.
	run := func(cmd *cobra.Command, fn func(*migrate.Migrate) (string, error)) error {
		m, err := open()
		if err != nil {
			return err
		}
		defer m.Close()

		msg, err := fn(m)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "path", "migrations", "path to migration files")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m *migrate.Migrate) (string, error) {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return "", fmt.Errorf("up: %w", err)
				}
				return "Migrated up successfully", nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m *migrate.Migrate) (string, error) {
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return "", fmt.Errorf("down: %w", err)
				}
				return "Migrated down successfully", nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m *migrate.Migrate) (string, error) {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					return "No migrations applied", nil
				}
				if err != nil {
					return "", fmt.Errorf("version: %w", err)
				}
				return fmt.Sprintf("Version: %d, Dirty: %t", version, dirty), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return run(cmd, func(m *migrate.Migrate) (string, error) {
				if err := m.Force(v); err != nil {
					return "", fmt.Errorf("force: %w", err)
				}
				return fmt.Sprintf("Forced version to %d", v), nil
			})
		},
	})

	return cmd
}
