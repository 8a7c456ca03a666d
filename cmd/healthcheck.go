package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatvault/internal"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck [vault-dir]",
	Short: "Check that chatvault can use its cache and a vault catalog",
	Long: `Check the health of chatvault by verifying:
  • The configured output and cache directories
  • Cache accessibility and cached archive count
  • The vault catalog and its recorded conversions

This command is useful for debugging configuration issues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vault := defaults.OutputDir
		if len(args) == 1 {
			vault = args[0]
		}
		out := cmd.OutOrStdout()

		_, _ = fmt.Fprintln(out, sectionStyle.Render("\U0001F50D chatvault Health Check"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Configuration..."))
		_, _ = fmt.Fprintf(out, "   Vault: %s\n", vault)
		_, _ = fmt.Fprintf(out, "   Cache: %s\n", defaults.CacheDir)
		_, _ = fmt.Fprintf(out, "   Streaming threshold: %s\n", humanize.IBytes(uint64(defaults.StreamingThresholdBytes())))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Checking parse cache..."))
		checkCache(out, internal.NewCacheManager(defaults.CacheDir))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Checking vault catalog..."))
		if err := checkCatalog(cmd, out, vault); err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Catalog unreadable:"), err)
			return err
		}
		return nil
	},
}

func checkCache(w io.Writer, cache *internal.CacheManager) {
	entries, err := os.ReadDir(cache.GetCacheDir())
	if os.IsNotExist(err) {
		_, _ = fmt.Fprintln(w, warningStyle.Render("\u26a0\ufe0f  Cache directory not created yet"))
		return
	}
	if err != nil {
		_, _ = fmt.Fprintln(w, warningStyle.Render("\u26a0\ufe0f  Cache directory unreadable:"), err)
		return
	}

	cached := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(cache.GetCacheDir(), entry.Name(), "index.yaml")); err == nil {
			cached++
		}
	}
	_, _ = fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Cache holds %d parsed archive(s)", cached)))
}

func checkCatalog(cmd *cobra.Command, w io.Writer, vault string) error {
	path := filepath.Join(vault, internal.CatalogFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, _ = fmt.Fprintln(w, warningStyle.Render("\u26a0\ufe0f  No catalog yet (run 'chatvault convert' first)"))
		return nil
	}

	catalog, err := internal.OpenCatalogReadOnly(path)
	if err != nil {
		return err
	}
	defer catalog.Close()

	runs, err := catalog.Runs(cmd.Context())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Catalog records %d conversion(s)", len(runs))))
	if len(runs) > 0 {
		newest := runs[0]
		_, _ = fmt.Fprintf(w, "   Newest: %d %s conversation(s), %s\n",
			newest.ConversationCount, newest.Source.Display(), humanize.Time(newest.CreatedAt))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
