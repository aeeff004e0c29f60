// Command authority-admin runs authority maintenance tasks from the shell:
// renaming an authority, auditing references to an authority and
// migrating the Postgres schema. It reads the same environment as the
// server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-authority/pkg/simpleauthority/config"
)

// builder opens the configured service and stores
type builder func(ctx context.Context, logger *slog.Logger) (*config.ServerConfig, *config.Built, error)

func buildFromEnv(ctx context.Context, logger *slog.Logger) (*config.ServerConfig, *config.Built, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	built, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, built, nil
}

func main() {
	if err := rootCmd(buildFromEnv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(build builder) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "authority-admin",
		Short:         "Authority maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	cmd.AddCommand(renameCmd(build, logger))
	cmd.AddCommand(scanCmd(build, logger))
	cmd.AddCommand(migrateCmd(build, logger))
	return cmd
}
