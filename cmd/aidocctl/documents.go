package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	documentsCmd.AddCommand(documentsListCmd, documentsGetCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if documentsJSON {
		items := make([]documentView, len(docs))
		for i, d := range docs {
			items[i] = newDocumentView(d)
		}
		return writeJSON(out, items)
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tSTATUS\tCHUNKS\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			d.ID(), d.FileName(), d.Status(), d.ChunkCount(), d.CreatedAt().Format(time.RFC3339))
	}
	return w.Flush()
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	wc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	out := cmd.OutOrStdout()
	view := newDocumentView(wc.Document)
	if documentsJSON {
		view.Chunks = make([]chunkView, len(wc.Chunks))
		for i, c := range wc.Chunks {
			view.Chunks[i] = chunkView{ID: c.ID, Index: c.Index, Text: c.Text}
		}
		return writeJSON(out, view)
	}

	fmt.Fprintf(out, "ID:           %s\n", view.ID)
	fmt.Fprintf(out, "File:         %s\n", view.FileName)
	fmt.Fprintf(out, "Content type: %s\n", view.ContentType)
	fmt.Fprintf(out, "Size:         %d bytes\n", view.SizeBytes)
	fmt.Fprintf(out, "Status:       %s\n", view.Status)
	fmt.Fprintf(out, "Version:      %d\n", view.Version)
	fmt.Fprintf(out, "Chunks:       %d\n", len(wc.Chunks))
	for _, c := range wc.Chunks {
		fmt.Fprintf(out, "  #%d %s\n", c.Index, snippet(c.Text, 100))
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
