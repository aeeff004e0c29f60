package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-authority/pkg/simpleauthority/scan"
)

func scanCmd(build builder, logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		relinkTo  string
		value     string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "scan <field> <authority-id>",
		Short: "List items that reference an authority",
		Long: `Scan lists the items whose statements on field reference the authority
and reports whether the authority still exists.

With --relink-to, references are rewritten to the given authority and
value. Use it to repair references written after a rename, for example
by an import that still carried the retired id.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if relinkTo != "" && value == "" {
				return errors.New("--value is required with --relink-to")
			}

			ctx := cmd.Context()
			_, built, err := build(ctx, logger(cmd))
			if err != nil {
				return err
			}
			defer built.Close()

			opts := scan.ScanOptions{
				Field:       args[0],
				AuthorityID: args[1],
				BatchSize:   batchSize,
				DryRun:      relinkTo == "",
			}
			var relink *scan.RelinkProcessor
			if relinkTo != "" {
				relink = &scan.RelinkProcessor{
					Store: built.Store,
					Field: opts.Field,
					OldID: opts.AuthorityID,
					NewID: relinkTo,
					Value: value,
				}
				opts.Processor = relink
			}

			result, err := scan.New(built.Store, built.Store, logger(cmd)).Scan(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range result.FoundIDs {
				fmt.Fprintln(out, id)
			}
			fmt.Fprintf(out, "found=%d processed=%d failed=%d dangling=%t\n",
				result.TotalFound, result.TotalProcessed, result.TotalFailed, result.Dangling)
			if relink != nil {
				fmt.Fprintf(out, "relinked=%d\n", relink.Updated)
			}
			if result.TotalFailed > 0 {
				return fmt.Errorf("%d items failed", result.TotalFailed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&relinkTo, "relink-to", "", "Rewrite references to this authority id")
	cmd.Flags().StringVar(&value, "value", "", "Value written with --relink-to")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Ids fetched per page (default 100)")
	return cmd
}
