package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/export"
)

// Vault layout names
const (
	ConversationsDir  = "Conversations"
	CombinedDir       = "All_Chats_Combined"
	CSVFileName       = "All_Conversations.csv"
	CombinedFileName  = "All_Conversations.md"
	ExcelFileName     = "metadata_export.xlsx"
	combinedSeparator = "\n\n---\n\n"
	writtenEvery      = 25
)

// BuildVault writes one file per conversation plus the combined exports
// under cfg.OutputDir and records the run in the catalog. Failures writing
// a single file are collected in Result.Errors; only an unusable output
// directory, invalid settings or cancellation abort the build.
func BuildVault(ctx context.Context, source internal.Source, input string, conversations []internal.Conversation, cfg Config) (*Result, error) {
	progress := cfg.Progress
	result := &Result{Source: source, Conversations: conversations}

	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	format := cfg.Format
	if format == "" {
		format = "md"
	}
	exporter, err := export.NewExporter(format, cfg.Options)
	if err != nil {
		return nil, err
	}

	if len(conversations) == 0 {
		progress.Report("No conversations to process.")
		return result, nil
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, &internal.ExportError{Format: format, Path: cfg.OutputDir, Err: err}
	}

	progress.Report("Computing statistics...")
	result.Stats = export.ComputeStats(conversations)

	records, err := writeConversations(ctx, conversations, exporter, format, cfg, result)
	if err != nil {
		return nil, err
	}

	if cfg.IncludeCSV || cfg.IncludeExcel {
		rows := export.Rows(conversations, cfg.TableTruncate)
		if cfg.IncludeCSV {
			progress.Report("Creating CSV export...")
			path := filepath.Join(cfg.OutputDir, CombinedDir, CSVFileName)
			if err := writeCSV(path, rows); err != nil {
				result.addError(progress, "CSV export error", &internal.ExportError{Format: "csv", Path: path, Err: err})
			} else {
				result.CSVPath = path
				progress.Report("CSV export saved: %s", CSVFileName)
			}
		}
		if cfg.IncludeExcel {
			progress.Report("Creating Excel export...")
			path := filepath.Join(cfg.OutputDir, ExcelFileName)
			if err := export.WriteExcel(path, rows); err != nil {
				result.addError(progress, "Excel export error", &internal.ExportError{Format: "xlsx", Path: path, Err: err})
			} else {
				result.ExcelPath = path
				progress.Report("Excel export saved: %s", ExcelFileName)
			}
		}
	}

	if cfg.IncludeCombinedMarkdown {
		progress.Report("Creating combined Markdown file...")
		path := filepath.Join(cfg.OutputDir, CombinedDir, CombinedFileName)
		if err := writeCombined(path, conversations, cfg.Options); err != nil {
			result.addError(progress, "Combined Markdown error", &internal.ExportError{Format: "md", Path: path, Err: err})
		} else {
			result.CombinedPath = path
			progress.Report("Combined Markdown saved: %s", CombinedFileName)
		}
	}

	if cfg.Catalog {
		if err := recordRun(ctx, source, input, records, result, cfg.OutputDir); err != nil {
			result.addError(progress, "Catalog error", err)
		}
	}

	progress.Report("Vault build complete!")
	return result, nil
}

func writeConversations(ctx context.Context, conversations []internal.Conversation, exporter export.Exporter, format string, cfg Config, result *Result) ([]internal.CatalogRecord, error) {
	progress := cfg.Progress
	baseDir := filepath.Join(cfg.OutputDir, ConversationsDir)
	records := make([]internal.CatalogRecord, 0, len(conversations))

	progress.Report("Writing %d %s files...", len(conversations), format)
	for i := range conversations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conv := &conversations[i]

		dir := baseDir
		if cfg.Options.OutputStructure != export.StructureFlat {
			dir = filepath.Join(baseDir, export.GroupFolder(conv, cfg.Options))
		}
		path := filepath.Join(dir, export.Filename(conv, i, cfg.Options)+"."+exporter.Extension())

		if err := writeConversation(path, conv, exporter); err != nil {
			msg := fmt.Sprintf("Error writing conversation '%s' (id=%s)", conv.Title, conv.ID)
			result.addError(progress, msg, &internal.ExportError{Format: format, Path: path, Err: err})
		} else {
			result.Files = append(result.Files, path)
			rel, relErr := filepath.Rel(cfg.OutputDir, path)
			if relErr != nil {
				rel = path
			}
			records = append(records, internal.CatalogRecord{Conversation: conv, Path: filepath.ToSlash(rel)})
		}

		if (i+1)%writtenEvery == 0 {
			progress.Report("  Written %d/%d %s files...", i+1, len(conversations), format)
		}
	}
	progress.Report("Wrote %d %s file(s)", len(result.Files), format)

	return records, nil
}

func writeConversation(path string, conv *internal.Conversation, exporter export.Exporter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(path string, rows []export.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeCombined(path string, conversations []internal.Conversation, opts export.RenderOptions) error {
	var b strings.Builder
	for i := range conversations {
		text, err := export.Render(&conversations[i], opts)
		if err != nil {
			return err
		}
		b.WriteString(text)
		b.WriteString(combinedSeparator)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func recordRun(ctx context.Context, source internal.Source, input string, records []internal.CatalogRecord, result *Result, outputDir string) error {
	path := filepath.Join(outputDir, internal.CatalogFileName)
	catalog, err := internal.OpenCatalog(path)
	if err != nil {
		return err
	}
	defer catalog.Close()

	run, err := catalog.RecordRun(ctx, source, input, records)
	if err != nil {
		return err
	}
	result.CatalogPath = path
	result.RunID = run.ID
	return nil
}

func (r *Result) addError(progress internal.Progress, msg string, err error) {
	progress.Report("%s: %v", msg, err)
	internal.LogDebug("%s: %v", msg, err)
	r.Errors = append(r.Errors, err)
}
