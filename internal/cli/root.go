// Package cli implements the metsparse command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "metsparse",
	Short: "Rebuild the physical file tree described by a METS document",
	Long: `metsparse reads METS documents written by EPrints, Goobi, Archivematica
and the DLIP, and reconstructs the directories and files they describe,
with content types, sha256 digests and sizes.

Exit Codes:
  0  - Success
  1  - The document could not be read or built`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log parser warnings and progress to stderr")
}

// logger returns a text logger on stderr when --verbose is set, and a
// discarding one otherwise.
func logger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
