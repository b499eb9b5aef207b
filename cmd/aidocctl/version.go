package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noServices: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "aidocctl %s\n", version.Version)
		fmt.Fprintf(out, "  Git commit: %s\n", version.Commit)
		fmt.Fprintf(out, "  Built:      %s\n", version.Date)
		fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
