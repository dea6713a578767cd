package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"TriRecover/internal/services/exchange"
	"TriRecover/pkg/logger"
)

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Merge --file into the Postgres entry store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.file == "" {
				return errors.New("--file is required")
			}
			entries, err := o.readFile()
			if err != nil {
				return err
			}
			store, closeFn, err := o.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.UpsertBatch(cmd.Context(), entries); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			o.log.Info("import complete", logger.Int("entries", len(entries)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", len(entries))
			return nil
		},
	}
}

func newExportCmd(o *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the Postgres entry store to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := exchange.ParseFormat(format)
			if err != nil {
				return err
			}
			store, closeFn, err := o.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return exchange.Encode(f, cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	return cmd
}
