package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/chatvault/internal"
	"github.com/spf13/cobra"
)

var explain bool

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <export.zip | directory>",
	Short: "Print which platform produced an export",
	Long: `Inspect an export and print its provider key: chatgpt, claude, gemini,
grok or unknown. Unknown exports are still converted on a best-effort basis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("input not found: %w", err)
		}

		root := input
		if !info.IsDir() {
			root, err = internal.ExtractZip(input)
			if err != nil {
				return err
			}
			defer func() {
				if err := os.RemoveAll(root); err != nil {
					internal.LogWarn("Failed to remove extracted files %s: %v", root, err)
				}
			}()
		}

		detection := internal.Detect(root)
		out := cmd.OutOrStdout()
		if !explain {
			_, _ = fmt.Fprintln(out, detection.Source)
			return nil
		}

		if detection.Rule == "" {
			_, _ = fmt.Fprintf(out, "%s (no rule matched)\n", detection.Source)
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s (%s in %s)\n", detection.Source, detection.Rule, detection.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().BoolVar(&explain, "explain", false, "Also print the rule and file that matched")
}
