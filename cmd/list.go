package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatvault/internal"
	"github.com/spf13/cobra"
)

var (
	listRunID string
	listRuns  bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	platformStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list [vault-dir]",
	Short: "List converted conversations",
	Long: `List the conversations recorded in a vault's catalog. Without --run the
newest conversion is shown. The vault defaults to the configured output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vault := defaults.OutputDir
		if len(args) == 1 {
			vault = args[0]
		}

		catalog, err := openVaultCatalog(vault)
		if err != nil {
			return err
		}
		defer catalog.Close()

		out := cmd.OutOrStdout()
		if listRuns {
			runs, err := catalog.Runs(cmd.Context())
			if err != nil {
				return err
			}
			displayRuns(out, runs)
			return nil
		}

		entries, err := catalog.ListConversations(cmd.Context(), listRunID)
		if err != nil {
			return err
		}
		displayEntries(out, entries)
		return nil
	},
}

// openVaultCatalog opens the catalog of a vault directory for reading
func openVaultCatalog(vault string) (*internal.Catalog, error) {
	path := filepath.Join(vault, internal.CatalogFileName)
	catalog, err := internal.OpenCatalogReadOnly(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no catalog in %s (run 'chatvault convert' first)", vault)
		}
		return nil, err
	}
	return catalog, nil
}

func displayRuns(w io.Writer, runs []internal.CatalogRun) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, headerStyle.Render("\U0001F4CB No conversions recorded"))
		return
	}

	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("\U0001F4CB Found %d conversion(s)", len(runs))))
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("Run")+"\t"+titleStyle.Render("Platform")+"\t"+titleStyle.Render("Conversations")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Input")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 100))
	for _, run := range runs {
		created := run.CreatedAt
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(run.ID),
			platformStyle.Render(run.Source.Display()),
			countStyle.Render(strconv.Itoa(run.ConversationCount)),
			formatCreated(&created),
			run.Input)
	}
	_ = tw.Flush()
}

func displayEntries(w io.Writer, entries []internal.CatalogEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, headerStyle.Render("\U0001F4CB No conversations found"))
		return
	}

	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("\U0001F4CB Found %d conversation(s)", len(entries))))
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Platform")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 120))

	for _, entry := range entries {
		title := entry.Title
		if title == "" {
			title = "Untitled"
		}
		if runes := []rune(title); len(runes) > 50 {
			title = string(runes[:47]) + "..."
		}

		platform := entry.Source.Display()
		if entry.Model != "" {
			platform += " · " + entry.Model
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(entry.ConversationID),
			title,
			countStyle.Render(strconv.Itoa(entry.MessageCount)),
			formatCreated(entry.CreatedAt),
			platformStyle.Render(platform))
	}

	_ = tw.Flush()
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, idStyle.Render("\U0001F4A1 Tip: Use an ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(entries[0].ConversationID)+
		idStyle.Render(") with `chatvault show <vault> <id>`"))
}

// formatCreated renders a time relative to now, coarser the older it is
func formatCreated(t *time.Time) string {
	if t == nil || t.IsZero() {
		return dateStyle.Render("—")
	}
	diff := time.Since(*t)
	switch {
	case diff >= 0 && diff < 24*time.Hour:
		return dateStyle.Render(t.Format("Today 15:04"))
	case diff >= 0 && diff < 7*24*time.Hour:
		return dateStyle.Render(t.Format("Mon 15:04"))
	case diff >= 0 && diff < 365*24*time.Hour:
		return dateStyle.Render(t.Format("Jan 02 15:04"))
	default:
		return dateStyle.Render(t.Format("2006-01-02"))
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listRunID, "run", "", "List the conversations of this run instead of the newest")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "List recorded conversions instead of conversations")
}
