package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return migrateUp(cmd.Context(), cfg)
		},
	})

	// migrate down
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withMigrator(cmd.Context(), cfg, func(m *postgres.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				log.Info().Msg("migrations rolled back")
				return nil
			})
		},
	})

	// migrate version
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withMigrator(cmd.Context(), cfg, func(m *postgres.Migrator) error {
				version, dirty, ok, err := m.Version()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func migrateUp(ctx context.Context, cfg *config.Config) error {
	return withMigrator(ctx, cfg, func(m *postgres.Migrator) error {
		if err := m.Up(); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		return nil
	})
}

// withMigrator opens a dedicated connection, since closing the migrator
// closes the handle it was given.
func withMigrator(ctx context.Context, cfg *config.Config, fn func(*postgres.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := postgres.NewMigrator(db)
	if err != nil {
		db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close migrator")
		}
	}()

	return fn(m)
}
