package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

func renameCmd(build builder, logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "rename <authority-id> <value>",
		Short: "Replace an authority with a renamed copy and relink its content",
		Long: `Rename replaces the authority with a new record carrying the new value,
relinks every referencing item to it and deletes the old record. The new
authority id is printed on success.

The rename runs as an administrator. Feature flags still apply.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, built, err := build(ctx, logger(cmd))
			if err != nil {
				return err
			}
			defer built.Close()

			caller := simpleauthority.Caller{Subject: operator, Roles: []string{cfg.AdminRole}}
			newID, err := built.Service.Rename(ctx, simpleauthority.RenameRequest{
				AuthorityID: args[0],
				Value:       strings.Join(args[1:], " "),
			}, caller)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), newID)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "authority-admin", "Subject recorded as the caller")
	return cmd
}
