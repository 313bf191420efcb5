package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/allocctx/allocctx"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := allocctx.GetInfo()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "allocctx %s\n", version)
		fmt.Fprintf(w, "  runtime: %s\n", info.Version)
		fmt.Fprintf(w, "  debug checks: %t\n", info.DebugChecks)
		fmt.Fprintf(w, "  commit: %s\n", commit)
		fmt.Fprintf(w, "  built: %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
