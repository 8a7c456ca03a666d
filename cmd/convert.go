package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/export"
	"github.com/iksnae/chatvault/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	format        string
	outputDir     string
	cacheDir      string
	flat          bool
	noTimestamps  bool
	noEmoji       bool
	withSystem    bool
	withCSV       bool
	withExcel     bool
	combinedMD    bool
	groupBy       string
	filenameStyle string
	truncate      int
	tableTruncate int
	dedupe        bool
	noCache       bool
	clearCache    bool
	noCatalog     bool
)

var (
	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	summaryValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <export.zip | directory>",
	Short: "Convert a chat export into a Markdown vault",
	Long: `Convert a ChatGPT, Claude, Gemini or Grok data export into a vault of
one file per conversation, grouped into folders, with combined CSV and Excel
exports and a catalog for 'chatvault list' and 'chatvault show'.

The input is either the ZIP archive downloaded from the platform or a
directory it was already extracted to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		opts := export.RenderOptions{
			IncludeTimestamps:     !noTimestamps,
			IncludeSystemMessages: withSystem,
			EmojiHeaders:          !noEmoji,
			OutputStructure:       export.StructureStructured,
			TruncateLength:        truncate,
			FilenameStyle:         filenameStyle,
			GroupBy:               groupBy,
		}
		if flat {
			opts.OutputStructure = export.StructureFlat
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		if _, err := export.NewExporter(format, opts); err != nil {
			return err
		}
		if tableTruncate < 0 {
			return fmt.Errorf("--table-truncate must not be negative, got %d", tableTruncate)
		}

		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("input not found: %w", err)
		}

		cacheManager := internal.NewCacheManager(cacheDir)
		if clearCache {
			if err := cacheManager.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.PrintInfo("Cache cleared")
			}
		}

		cfg := pipeline.Config{
			OutputDir:               outputDir,
			Options:                 opts,
			Format:                  format,
			IncludeCSV:              withCSV,
			IncludeExcel:            withExcel,
			IncludeCombinedMarkdown: combinedMD,
			TableTruncate:           tableTruncate,
			StreamingThreshold:      defaults.StreamingThresholdBytes(),
			Dedupe:                  dedupe,
			Catalog:                 !noCatalog,
			CacheDir:                cacheManager.GetCacheDir(),
			UseCache:                !noCache,
		}
		// Step lines are logged only in verbose mode
		if verbose {
			cfg.Progress = internal.LogProgress()
		}

		var result *pipeline.Result
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Converting %s", input), func() error {
			var convErr error
			if info.IsDir() {
				result, convErr = pipeline.ConvertDir(cmd.Context(), input, cfg)
			} else {
				result, convErr = pipeline.ConvertArchive(cmd.Context(), input, cfg)
			}
			return convErr
		})
		if err != nil {
			return err
		}

		if len(result.Conversations) == 0 {
			internal.PrintWarning(fmt.Sprintf("No conversations found in %s (detected source: %s)", input, result.Source))
			return nil
		}

		printSummary(cmd.OutOrStdout(), result, outputDir)
		for _, err := range result.Errors {
			internal.PrintWarning(err.Error())
		}
		internal.PrintSuccess(fmt.Sprintf("Vault ready: %s", outputDir))
		return nil
	},
}

func printSummary(w io.Writer, result *pipeline.Result, outputDir string) {
	stats := result.Stats
	line := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", summaryLabelStyle.Render(label+":"), value)
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Converted %s conversation(s) from %s",
		humanize.Comma(int64(stats.TotalConversations)), result.Source.Display())))
	line("Messages", summaryValueStyle.Render(humanize.Comma(int64(stats.TotalMessages))))
	line("Characters", summaryValueStyle.Render(humanize.Comma(int64(stats.TotalCharacters))))
	if stats.DateRangeStart != nil && stats.DateRangeEnd != nil {
		line("Date range", stats.DateRangeStart.Format("2006-01-02")+" to "+stats.DateRangeEnd.Format("2006-01-02"))
	}
	line("Models", countsSummary(stats.Models))
	line("Files", fmt.Sprintf("%d written to %s", len(result.Files), outputDir))
	if result.CSVPath != "" {
		line("CSV", result.CSVPath)
	}
	if result.ExcelPath != "" {
		line("Excel", result.ExcelPath)
	}
	if result.CombinedPath != "" {
		line("Combined", result.CombinedPath)
	}
	if result.CatalogPath != "" {
		line("Catalog", result.CatalogPath)
	}
	if result.FromCache {
		line("Parsed", "from cache")
	}
	if len(result.Errors) > 0 {
		line("Errors", fmt.Sprintf("%d", len(result.Errors)))
	}
}

// countsSummary formats counts as "a (3), b (1)", largest first
func countsSummary(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s (%d)", key, counts[key])
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&outputDir, "output", "o", defaults.OutputDir, "Vault output directory")
	convertCmd.Flags().StringVarP(&format, "format", "f", "md", "Per-conversation format (md, json, yaml, jsonl)")
	convertCmd.Flags().BoolVar(&flat, "flat", false, "Write all conversations into one folder")
	convertCmd.Flags().StringVar(&groupBy, "group-by", defaults.GroupBy, "Folder grouping (platform, model, month, year)")
	convertCmd.Flags().StringVar(&filenameStyle, "filename-style", defaults.FilenameStyle, "File naming (date_title, date_first_words, id_only)")
	convertCmd.Flags().BoolVar(&noTimestamps, "no-timestamps", false, "Omit message timestamps")
	convertCmd.Flags().BoolVar(&noEmoji, "no-emoji", false, "Use plain role headers")
	convertCmd.Flags().BoolVar(&withSystem, "system", false, "Include system messages")
	convertCmd.Flags().IntVar(&truncate, "truncate", 0, "Truncate message content to this many characters (0 disables)")
	convertCmd.Flags().BoolVar(&withCSV, "csv", true, "Write All_Chats_Combined/All_Conversations.csv")
	convertCmd.Flags().BoolVar(&withExcel, "excel", true, "Write metadata_export.xlsx")
	convertCmd.Flags().BoolVar(&combinedMD, "combined-md", false, "Write All_Chats_Combined/All_Conversations.md")
	convertCmd.Flags().IntVar(&tableTruncate, "table-truncate", 0, "Truncate CSV and Excel content to this many characters (0 disables)")
	convertCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Drop conversations with identical messages")
	convertCmd.Flags().StringVar(&cacheDir, "cache-dir", defaults.CacheDir, "Parse cache directory")
	convertCmd.Flags().BoolVar(&noCache, "no-cache", false, "Always parse the archive, ignoring the cache")
	convertCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Clear the cache before running")
	convertCmd.Flags().BoolVar(&noCatalog, "no-catalog", false, "Do not record the run in catalog.db")
}
