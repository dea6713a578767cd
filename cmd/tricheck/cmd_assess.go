package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/services/assessment"
	"TriRecover/internal/services/bundle"
)

func newAssessCmd(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "assess [date]",
		Short: "Print the assessment of one day (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := o.settings()
			if err != nil {
				return err
			}
			ref, err := o.ref()
			if err != nil {
				return err
			}
			entries, err := o.entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.New("no entries")
			}

			sorted := models.SortEntries(entries)
			target := sorted[len(sorted)-1]
			if len(args) == 1 {
				i := models.IndexOf(sorted, args[0])
				if i < 0 {
					return fmt.Errorf("no entry for %s", args[0])
				}
				target = sorted[i]
			}

			a := assessment.NewEngine().Assess(target, sorted, settings, ref)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}
			fmt.Fprintln(out, assessment.Summary(a))
			fmt.Fprintln(out, a.RecText)
			for _, step := range a.Plan {
				fmt.Fprintf(out, "  - %s\n", step)
			}
			for _, why := range a.Why {
				fmt.Fprintf(out, "  * %s\n", why)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full assessment as JSON")
	return cmd
}

func newBundleCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle [date]",
		Short: "Print the text analysis bundle for a day (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := o.settings()
			if err != nil {
				return err
			}
			ref, err := o.ref()
			if err != nil {
				return err
			}
			entries, err := o.entries(cmd.Context())
			if err != nil {
				return err
			}
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), bundle.Render(entries, settings, target, ref))
			return nil
		},
	}
}
