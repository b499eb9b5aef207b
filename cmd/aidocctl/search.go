package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

var (
	searchTopK int
	searchJSON bool
	askTopK    int
	askJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", retrievaluc.DefaultTopK, "number of chunks to return")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", retrievaluc.DefaultTopK, "number of chunks used as context")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(searchCmd, askCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	res, err := retrievalService.Search(cmd.Context(), args[0], searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, res)
	}
	if len(res.Chunks) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	printChunks(out, res.Chunks)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	res, err := retrievalService.Ask(cmd.Context(), args[0], askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if askJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintln(out, res.Answer)
	if len(res.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		printChunks(out, res.Sources)
	}
	return nil
}

func printChunks(out io.Writer, chunks []retrievaluc.Chunk) {
	for i, c := range chunks {
		title := c.FileName
		if title == "" {
			title = c.DocumentID
		}
		fmt.Fprintf(out, "  [%d] %s (%.3f)\n", i+1, title, c.Score)
		fmt.Fprintf(out, "      %s\n", snippet(c.Text, 160))
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
