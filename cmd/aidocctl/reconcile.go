package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Clean up after failed ingestions",
	Long: `Deletes the chunk records and vectors of Failed documents and lists Indexed
documents whose stored chunks no longer match their chunk count. Mismatched
documents are left untouched. Documents still Processing are skipped.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	rep, err := ingestService.Reconcile(cmd.Context())
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d documents, cleaned %d, mismatched %d.\n",
		rep.Scanned, len(rep.Cleaned), len(rep.Mismatched))
	for _, id := range rep.Cleaned {
		fmt.Fprintf(out, "  cleaned  %s\n", id)
	}
	for _, id := range rep.Mismatched {
		fmt.Fprintf(out, "  mismatch %s\n", id)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(out, "  error    %s\n", e)
	}
	if len(rep.Errors) > 0 {
		return fmt.Errorf("%d documents could not be reconciled", len(rep.Errors))
	}
	return nil
}
