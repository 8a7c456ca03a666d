package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/export"
	"github.com/iksnae/chatvault/testutil"
)

func recorder() (internal.Progress, *[]string) {
	var lines []string
	return func(msg string) { lines = append(lines, msg) }, &lines
}

func TestParse_ReportsSteps(t *testing.T) {
	root := testutil.CreateExportDir(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	progress, lines := recorder()
	cfg := DefaultConfig(t.TempDir())
	cfg.Progress = progress

	source, convs, err := Parse(context.Background(), root, cfg)

	require.NoError(t, err)
	assert.Equal(t, internal.SourceClaude, source)
	require.Len(t, convs, 1)
	assert.Equal(t, []string{
		"Detecting source provider...",
		"Detected source: claude",
		"Parsing conversations with claude adapter...",
		"Found 1 conversation(s)",
	}, *lines)
}

func TestParse_UnknownFallsBackToGeneric(t *testing.T) {
	root := testutil.CreateExportDir(t, map[string]string{"export.json": testutil.GenericConversation})

	source, convs, err := Parse(context.Background(), root, DefaultConfig(t.TempDir()))

	require.NoError(t, err)
	assert.Equal(t, internal.SourceUnknown, source)
	require.Len(t, convs, 1)
	assert.Equal(t, "hi", convs[0].Messages[0].Content)
}

func TestParse_Cancelled(t *testing.T) {
	root := testutil.CreateExportDir(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Parse(ctx, root, DefaultConfig(t.TempDir()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertArchive_BuildsVault(t *testing.T) {
	zipPath := testutil.CreateExportZip(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	out := t.TempDir()
	progress, lines := recorder()
	cfg := DefaultConfig(out)
	cfg.IncludeCombinedMarkdown = true
	cfg.Progress = progress

	result, err := ConvertArchive(context.Background(), zipPath, cfg)

	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, internal.SourceClaude, result.Source)
	assert.False(t, result.FromCache)

	want := filepath.Join(out, ConversationsDir, "Claude", "2025-01-15_reading-files_0000.md")
	assert.Equal(t, []string{want}, result.Files)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# 2025-01-15 — Reading files")
	assert.Contains(t, string(data), "Use open() with a context manager.")

	assert.FileExists(t, filepath.Join(out, CombinedDir, CSVFileName))
	assert.FileExists(t, filepath.Join(out, ExcelFileName))
	assert.FileExists(t, filepath.Join(out, CombinedDir, CombinedFileName))
	assert.Equal(t, filepath.Join(out, CombinedDir, CSVFileName), result.CSVPath)
	assert.Equal(t, filepath.Join(out, ExcelFileName), result.ExcelPath)

	assert.Equal(t, 1, result.Stats.TotalConversations)
	assert.Equal(t, 2, result.Stats.TotalMessages)

	assert.Equal(t, "Extracting ZIP archive...", (*lines)[0])
	assert.Equal(t, "Vault build complete!", (*lines)[len(*lines)-1])
}

func TestConvertArchive_RecordsCatalog(t *testing.T) {
	zipPath := testutil.CreateExportZip(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	out := t.TempDir()

	result, err := ConvertArchive(context.Background(), zipPath, DefaultConfig(out))
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	assert.Equal(t, filepath.Join(out, internal.CatalogFileName), result.CatalogPath)

	catalog, err := internal.OpenCatalogReadOnly(result.CatalogPath)
	require.NoError(t, err)
	defer catalog.Close()

	entries, err := catalog.ListConversations(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conv-claude-1", entries[0].ConversationID)
	assert.Equal(t, "Conversations/Claude/2025-01-15_reading-files_0000.md", entries[0].Path)

	conv, err := catalog.GetConversation(context.Background(), "conv-claude-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "How do I read a file in Python?", conv.Messages[0].Content)
}

func TestConvertArchive_Cache(t *testing.T) {
	zipPath := testutil.CreateExportZip(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	cfg := DefaultConfig(t.TempDir())
	cfg.UseCache = true
	cfg.CacheDir = t.TempDir()
	cfg.Catalog = false

	first, err := ConvertArchive(context.Background(), zipPath, cfg)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	progress, lines := recorder()
	cfg.Progress = progress
	cfg.OutputDir = t.TempDir()
	second, err := ConvertArchive(context.Background(), zipPath, cfg)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, internal.SourceClaude, second.Source)
	require.Len(t, second.Conversations, 1)
	require.Len(t, second.Conversations[0].Messages, 2)
	for i, msg := range first.Conversations[0].Messages {
		assert.Equal(t, msg.Role, second.Conversations[0].Messages[i].Role)
		assert.Equal(t, msg.Content, second.Conversations[0].Messages[i].Content)
	}
	assert.NotContains(t, *lines, "Extracting ZIP archive...")
	assert.Len(t, second.Files, 1)
}

func TestConvertArchive_Errors(t *testing.T) {
	t.Run("missing archive", func(t *testing.T) {
		_, err := ConvertArchive(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), DefaultConfig(t.TempDir()))
		var archiveErr *internal.ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, "open", archiveErr.Op)
	})

	t.Run("path traversal", func(t *testing.T) {
		zipPath := testutil.CreateExportZip(t, map[string]string{"../evil.json": "{}"})
		_, err := ConvertArchive(context.Background(), zipPath, DefaultConfig(t.TempDir()))
		var archiveErr *internal.ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, "traversal", archiveErr.Op)
	})

	t.Run("not a zip", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "export.zip", "plain text")
		_, err := ConvertArchive(context.Background(), path, DefaultConfig(t.TempDir()))
		var archiveErr *internal.ArchiveError
		assert.ErrorAs(t, err, &archiveErr)
	})
}

func TestConvertArchive_Dedupe(t *testing.T) {
	body := strings.TrimSpace(testutil.ClaudeConversations)
	body = strings.TrimSuffix(strings.TrimPrefix(body, "["), "]")
	zipPath := testutil.CreateExportZip(t, map[string]string{"conversations.json": "[" + body + "," + body + "]"})
	cfg := DefaultConfig(t.TempDir())
	cfg.Catalog = false

	plain, err := ConvertArchive(context.Background(), zipPath, cfg)
	require.NoError(t, err)
	assert.Len(t, plain.Conversations, 2)

	cfg.Dedupe = true
	cfg.OutputDir = t.TempDir()
	deduped, err := ConvertArchive(context.Background(), zipPath, cfg)
	require.NoError(t, err)
	assert.Len(t, deduped.Conversations, 1)
	assert.Len(t, deduped.Files, 1)
}

func TestConvertDir(t *testing.T) {
	root := testutil.CreateExportDir(t, map[string]string{"grok/messages.json": testutil.GrokFlatMessages})
	out := t.TempDir()
	cfg := DefaultConfig(out)
	cfg.Format = "jsonl"
	cfg.Options.OutputStructure = export.StructureFlat
	cfg.IncludeExcel = false

	result, err := ConvertDir(context.Background(), root, cfg)

	require.NoError(t, err)
	assert.Equal(t, internal.SourceGrok, result.Source)
	require.Len(t, result.Files, 2)
	for _, path := range result.Files {
		assert.Equal(t, filepath.Join(out, ConversationsDir), filepath.Dir(path))
		assert.Equal(t, ".jsonl", filepath.Ext(path))
	}
	assert.NotEmpty(t, result.CSVPath)
	assert.Empty(t, result.ExcelPath)
	assert.NoFileExists(t, filepath.Join(out, ExcelFileName))
}

func TestConvertDir_NotADirectory(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "file.txt", "x")
	_, err := ConvertDir(context.Background(), path, DefaultConfig(t.TempDir()))
	var archiveErr *internal.ArchiveError
	assert.ErrorAs(t, err, &archiveErr)
}

func TestConvertBytes(t *testing.T) {
	zipPath := testutil.CreateExportZip(t, map[string]string{"conversations.json": testutil.ClaudeConversations})
	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	cfg := DefaultConfig(t.TempDir())
	cfg.Catalog = false

	result, err := ConvertBytes(context.Background(), data, cfg)

	require.NoError(t, err)
	assert.Equal(t, internal.SourceClaude, result.Source)
	assert.Len(t, result.Files, 1)
}

func TestBuildVault_Empty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vault")
	progress, lines := recorder()
	cfg := DefaultConfig(out)
	cfg.Progress = progress

	result, err := BuildVault(context.Background(), internal.SourceUnknown, "x", nil, cfg)

	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.Equal(t, []string{"No conversations to process."}, *lines)
	assert.NoDirExists(t, out)
}

func TestBuildVault_InvalidSettings(t *testing.T) {
	convs := []internal.Conversation{*internal.CreateTestConversation("a")}

	cfg := DefaultConfig(t.TempDir())
	cfg.Format = "pdf"
	_, err := BuildVault(context.Background(), internal.SourceChatGPT, "x", convs, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig(t.TempDir())
	cfg.Options.GroupBy = "weekday"
	_, err = BuildVault(context.Background(), internal.SourceChatGPT, "x", convs, cfg)
	assert.Error(t, err)
}

func TestBuildVault_Grouping(t *testing.T) {
	a := internal.CreateTestConversation("a")
	b := internal.CreateTestConversation("b")
	b.Model = ""
	b.Metadata = map[string]string{}
	out := t.TempDir()
	cfg := DefaultConfig(out)
	cfg.Options.GroupBy = export.GroupByModel
	cfg.Catalog = false
	cfg.IncludeCSV = false
	cfg.IncludeExcel = false

	result, err := BuildVault(context.Background(), internal.SourceChatGPT, "x", []internal.Conversation{*a, *b}, cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, ConversationsDir, "gpt-4", "2025-01-15_test-conversation_0000.md"),
		filepath.Join(out, ConversationsDir, "unknown_model", "2025-01-15_test-conversation_0001.md"),
	}, result.Files)
}

func TestBuildVault_WriteErrorsAreCollected(t *testing.T) {
	out := t.TempDir()
	// A file where the group folder should be makes that conversation fail
	testutil.WriteFile(t, out, filepath.Join(ConversationsDir, "ChatGPT"), "blocker")
	chatgpt := internal.CreateTestConversation("a")
	claude := internal.CreateTestConversationWithMessages("b", internal.SourceClaude, []internal.Message{
		{Role: internal.RoleUser, Content: "hello"},
	})
	cfg := DefaultConfig(out)
	cfg.Catalog = false

	result, err := BuildVault(context.Background(), internal.SourceUnknown, "x", []internal.Conversation{*chatgpt, *claude}, cfg)

	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	var exportErr *internal.ExportError
	assert.ErrorAs(t, result.Errors[0], &exportErr)
	assert.Len(t, result.Files, 1)
	assert.NotEmpty(t, result.CSVPath)
}

func TestBuildVault_ReportsEveryTwentyFive(t *testing.T) {
	convs := make([]internal.Conversation, 30)
	for i := range convs {
		convs[i] = *internal.CreateTestConversation("c")
	}
	progress, lines := recorder()
	cfg := DefaultConfig(t.TempDir())
	cfg.Catalog = false
	cfg.IncludeExcel = false
	cfg.Progress = progress

	result, err := BuildVault(context.Background(), internal.SourceChatGPT, "x", convs, cfg)

	require.NoError(t, err)
	assert.Len(t, result.Files, 30)
	assert.Contains(t, *lines, "  Written 25/30 md files...")
	assert.NotContains(t, *lines, "  Written 30/30 md files...")
	assert.Contains(t, *lines, "Wrote 30 md file(s)")
}
