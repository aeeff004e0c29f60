package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-authority/pkg/simpleauthority/repo/postgres"
)

func migrateCmd(build builder, logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, built, err := build(ctx, logger(cmd))
			if err != nil {
				return err
			}
			defer built.Close()

			pool := built.Pool()
			if pool == nil {
				return errors.New("migrate requires a postgres DATABASE_URL")
			}
			if cfg.DBSchema != "" {
				if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{cfg.DBSchema}.Sanitize()); err != nil {
					return fmt.Errorf("create schema: %w", err)
				}
			}
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema %q is up to date\n", cfg.DBSchema)
			return nil
		},
	}
}
