package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	defaults = config.Load()
	version  = "dev"
	commit   = "unknown"
	date     = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatvault",
	Short: "Convert AI chat exports into a Markdown vault",
	Long: `A CLI tool to turn the data exports of AI chat platforms into an
Obsidian-friendly Markdown vault.

Supported exports: ChatGPT, Claude, Gemini (Takeout), Grok, plus a
best-effort fallback for anything else that contains conversations.

Features:
  • Automatic provider detection
  • One Markdown (or JSON, YAML, JSONL) file per conversation
  • Grouping by platform, model, month or year
  • Combined CSV and Excel exports of every message
  • A SQLite catalog of every conversion for later browsing

Quick Start:
  chatvault convert export.zip                 # Build a vault in ./output
  chatvault detect export.zip                  # Show which platform produced it
  chatvault list ./output                      # List converted conversations
  chatvault show ./output <conversation-id>    # Read a conversation`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
