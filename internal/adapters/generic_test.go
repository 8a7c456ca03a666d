package adapters

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/testutil"
)

func parseGeneric(t *testing.T, files map[string]string) []internal.Conversation {
	t.Helper()
	root := testutil.CreateExportDir(t, files)
	return (&GenericAdapter{}).Parse(context.Background(), root, nil)
}

func TestGeneric_UnknownJSON(t *testing.T) {
	convs := parseGeneric(t, map[string]string{"export.json": testutil.GenericConversation})

	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, internal.SourceUnknown, conv.Source)
	assert.Equal(t, "0", conv.ID)
	assert.Equal(t, "export", conv.Title)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, internal.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, "hi", conv.Messages[0].Content)
}

func TestGeneric_RoleSynonyms(t *testing.T) {
	tests := []struct {
		raw  string
		want internal.Role
	}{
		{`"role": "human"`, internal.RoleUser},
		{`"sender": "Bot"`, internal.RoleAssistant},
		{`"author": "model"`, internal.RoleAssistant},
		{`"from": "system"`, internal.RoleSystem},
		{`"role": "end_user"`, internal.RoleUser},
		{`"role": "narrator"`, internal.RoleAssistant},
		{`"other": 1`, internal.RoleAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			content := `{"entries": [{` + tt.raw + `, "body": "text"}]}`
			convs := parseGeneric(t, map[string]string{"x.json": content})
			require.Len(t, convs, 1)
			require.Len(t, convs[0].Messages, 1)
			assert.Equal(t, tt.want, convs[0].Messages[0].Role)
		})
	}
}

func TestGeneric_FieldSniffing(t *testing.T) {
	files := map[string]string{"log.json": `[
		"not a conversation",
		{"uuid": "u-1", "subject": "Weekly sync", "created_at": "2025-04-01T12:00:00Z", "items": [
			"bare string turn",
			{"role": "user", "content": "", "text": "fallback to text"},
			{"role": "assistant", "value": "from value", "timestamp": 1700000000},
			42
		]},
		{"title": "no messages key"}
	]`}

	convs := parseGeneric(t, files)
	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, "u-1", conv.ID)
	assert.Equal(t, "Weekly sync", conv.Title)
	require.NotNil(t, conv.CreatedAt)

	require.Len(t, conv.Messages, 3)
	assert.Equal(t, internal.RoleUnknown, conv.Messages[0].Role)
	assert.Equal(t, "bare string turn", conv.Messages[0].Content)
	assert.Equal(t, "fallback to text", conv.Messages[1].Content)
	assert.Equal(t, "from value", conv.Messages[2].Content)
	require.NotNil(t, conv.Messages[2].CreatedAt)
}

func TestGeneric_HTMLFallback(t *testing.T) {
	body := strings.Repeat("A long paragraph of exported text. ", 3)
	convs := parseGeneric(t, map[string]string{
		"page.html":  "<html><body><p>" + body + "</p></body></html>",
		"tiny.html":  "<p>too short</p>",
		"notes.txt":  strings.Repeat("plain text ", 10),
		"empty.json": `[{"messages": []}]`,
	})

	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, "page", conv.ID)
	assert.Equal(t, "page", conv.Title)
	assert.Equal(t, "html", conv.Metadata["original_format"])
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, internal.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, strings.TrimSpace(body), conv.Messages[0].Content)
}

func TestGeneric_TextFallback(t *testing.T) {
	text := strings.Repeat("plain text ", 10)
	convs := parseGeneric(t, map[string]string{
		"notes.txt": "\n" + text + "\n",
		"short.txt": "hi",
	})

	require.Len(t, convs, 1)
	assert.Equal(t, "text", convs[0].Metadata["original_format"])
	assert.Equal(t, strings.TrimSpace(text), convs[0].Messages[0].Content)
}

func TestGeneric_JSONBeatsHTML(t *testing.T) {
	convs := parseGeneric(t, map[string]string{
		"chat.json": testutil.GenericConversation,
		"page.html": "<p>" + strings.Repeat("words ", 30) + "</p>",
		"more.html": "<p>" + strings.Repeat("other ", 30) + "</p>",
	})

	require.Len(t, convs, 1)
	assert.Empty(t, convs[0].Metadata["original_format"])
	assert.Equal(t, "hi", convs[0].Messages[0].Content)
}

func TestGeneric_NothingUsable(t *testing.T) {
	convs := parseGeneric(t, map[string]string{
		"a.json": `{"foo": "bar"}`,
		"b.html": "<p>short</p>",
		"c.txt":  "short",
		"d.jpeg": "binary",
		"e.json": `not json`,
	})
	assert.Empty(t, convs)
}
