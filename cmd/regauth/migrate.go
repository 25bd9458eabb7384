package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/regAuth/directory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the users table schema",
	Long:  `Apply, roll back or inspect the Postgres schema of the user directory. Requires DATABASE_URL.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := directory.Migrate(ctx, pool); err != nil {
				return err
			}
			return printVersion(ctx, cmd, pool)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := directory.Rollback(ctx, pool); err != nil {
				return err
			}
			return printVersion(ctx, cmd, pool)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
			return printVersion(ctx, cmd, pool)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
	s, _, err := loadSettings()
	if err != nil {
		return err
	}
	if s.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}

	pool, err := pgxpool.New(ctx, s.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, pool)
}

func printVersion(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
	version, err := directory.SchemaVersion(ctx, pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
