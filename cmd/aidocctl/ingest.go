package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/extract"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest PDF, text and Markdown files",
	Long: `Extracts, chunks, embeds and indexes each file in turn.
Every file is attempted; the command fails if any of them failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		res, err := ingestFile(cmd, path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAILED  %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%-7s %s  id=%s chunks=%d\n", res.Status, res.FileName, res.DocumentID, res.ChunkCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, path string) (ingestuc.Result, error) {
	name := filepath.Base(path)
	if !extract.HasKnownExtension(name) {
		return ingestuc.Result{}, errors.New("unsupported file type, expected .pdf, .txt or .md")
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ingestuc.Result{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return ingestuc.Result{}, fmt.Errorf("stat: %w", err)
	}
	if info.Size() == 0 {
		return ingestuc.Result{}, fmt.Errorf("file is empty: %w", domain.ErrInvalidInput)
	}

	return ingestService.Ingest(cmd.Context(), ingestuc.Request{
		Reader:      f,
		FileName:    name,
		ContentType: extract.ContentTypeFor(name),
		Size:        info.Size(),
	})
}
