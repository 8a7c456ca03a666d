// Package pipeline runs a full conversion: extract an export archive,
// detect its provider, parse it with the matching adapter and build the
// output vault.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/adapters"
	"github.com/iksnae/chatvault/internal/export"
)

// Config controls one conversion run
type Config struct {
	OutputDir string
	Options   export.RenderOptions
	// Format is the per-conversation file format: md, json, yaml or jsonl
	Format string

	IncludeCSV              bool
	IncludeExcel            bool
	IncludeCombinedMarkdown bool
	// TableTruncate cuts content in CSV and Excel rows; 0 disables it
	TableTruncate int

	// StreamingThreshold is the file size in bytes above which JSON is
	// parsed incrementally; 0 selects the default
	StreamingThreshold int64
	Dedupe             bool
	Catalog            bool

	// CacheDir holds parsed archives between runs when UseCache is set
	CacheDir string
	UseCache bool

	Progress internal.Progress
}

// DefaultConfig returns the settings used when no flags are given
func DefaultConfig(outputDir string) Config {
	return Config{
		OutputDir:    outputDir,
		Options:      export.DefaultRenderOptions(),
		Format:       "md",
		IncludeCSV:   true,
		IncludeExcel: true,
		Catalog:      true,
	}
}

// Result describes what a conversion produced
type Result struct {
	Source        internal.Source
	Conversations []internal.Conversation
	// Files lists the per-conversation files written, in conversation order
	Files        []string
	CSVPath      string
	ExcelPath    string
	CombinedPath string
	CatalogPath  string
	RunID        string
	Stats        export.Stats
	// Errors holds the non-fatal failures of the vault build
	Errors    []error
	FromCache bool
}

// Parse detects the provider of an extracted export and parses it. An
// export without usable conversations yields an empty slice, not an error.
func Parse(ctx context.Context, root string, cfg Config) (internal.Source, []internal.Conversation, error) {
	progress := cfg.Progress

	progress.Report("Detecting source provider...")
	detection := internal.Detect(root)
	source := detection.Source
	if detection.Rule != "" {
		internal.LogDebug("Detected %s by %s (%s)", source, detection.Rule, detection.Path)
	}
	progress.Report("Detected source: %s", source)

	adapter := adapters.NewRegistry(cfg.StreamingThreshold).For(source)
	progress.Report("Parsing conversations with %s adapter...", source)
	conversations := adapter.Parse(ctx, root, progress)
	if err := ctx.Err(); err != nil {
		return source, nil, err
	}
	progress.Report("Found %d conversation(s)", len(conversations))

	return source, conversations, nil
}

// ConvertDir converts an export that is already extracted to dir
func ConvertDir(ctx context.Context, dir string, cfg Config) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &internal.ArchiveError{Path: dir, Op: "open", Err: err}
	}
	if !info.IsDir() {
		return nil, &internal.ArchiveError{Path: dir, Op: "open", Err: fmt.Errorf("not a directory")}
	}

	source, conversations, err := Parse(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	return finish(ctx, source, dir, conversations, cfg, false)
}

// ConvertArchive converts a ZIP export. The archive is extracted to a
// temporary directory that is always removed. With UseCache set, a cached
// parse of an unchanged archive skips extraction entirely.
func ConvertArchive(ctx context.Context, zipPath string, cfg Config) (*Result, error) {
	if _, err := os.Stat(zipPath); err != nil {
		return nil, &internal.ArchiveError{Path: zipPath, Op: "open", Err: err}
	}

	var cache *internal.CacheManager
	if cfg.UseCache && cfg.CacheDir != "" {
		cache = internal.NewCacheManager(cfg.CacheDir)
		if valid, _ := cache.IsCacheValid(zipPath); valid {
			source, conversations, err := cache.Load(zipPath)
			if err == nil {
				cfg.Progress.Report("Loaded %d conversation(s) from cache", len(conversations))
				return finish(ctx, source, zipPath, conversations, cfg, true)
			}
			internal.LogWarn("Failed to load cache: %v, parsing archive...", err)
		}
	}

	cfg.Progress.Report("Extracting ZIP archive...")
	dir, err := internal.ExtractZip(zipPath)
	if err != nil {
		return nil, err
	}
	defer removeExtracted(dir)

	source, conversations, err := Parse(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.EnsureCacheDir(); err != nil {
			internal.LogWarn("Failed to create cache directory: %v", err)
		} else if err := cache.Save(zipPath, source, conversations); err != nil {
			internal.LogWarn("Failed to save cache: %v", err)
		}
	}

	return finish(ctx, source, zipPath, conversations, cfg, false)
}

// ConvertBytes converts an in-memory ZIP export, e.g. an upload
func ConvertBytes(ctx context.Context, data []byte, cfg Config) (*Result, error) {
	cfg.Progress.Report("Extracting ZIP archive...")
	dir, err := internal.ExtractZipBytes(data)
	if err != nil {
		return nil, err
	}
	defer removeExtracted(dir)

	source, conversations, err := Parse(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	return finish(ctx, source, "<memory>", conversations, cfg, false)
}

func finish(ctx context.Context, source internal.Source, input string, conversations []internal.Conversation, cfg Config, fromCache bool) (*Result, error) {
	if cfg.Dedupe {
		before := len(conversations)
		conversations = internal.NewDeduplicator().Deduplicate(conversations)
		if removed := before - len(conversations); removed > 0 {
			cfg.Progress.Report("Removed %d duplicate conversation(s)", removed)
		}
	}

	result, err := BuildVault(ctx, source, input, conversations, cfg)
	if err != nil {
		return nil, err
	}
	result.FromCache = fromCache
	return result, nil
}

func removeExtracted(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		internal.LogWarn("Failed to remove extracted files %s: %v", dir, err)
	}
}
