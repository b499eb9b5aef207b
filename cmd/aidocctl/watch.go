package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [inbox-dir]",
	Short: "Ingest files dropped into an inbox directory",
	Long: `Watches the inbox (ingest.inbox_dir unless given) and ingests every PDF, text or
Markdown file once it stops changing. Ingested files move to processed/, failures to failed/.
Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	inbox := ""
	if len(args) == 1 {
		inbox = args[0]
	}
	w, err := a.Watcher(inbox)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for documents, press Ctrl+C to stop.")
	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
