package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/testutil"
)

func parseGemini(t *testing.T, files map[string]string) []internal.Conversation {
	t.Helper()
	root := testutil.CreateExportDir(t, files)
	return (&GeminiAdapter{}).Parse(context.Background(), root, nil)
}

func TestGemini_JSON(t *testing.T) {
	convs := parseGemini(t, map[string]string{"Gemini Apps/conversations.json": testutil.GeminiConversations})

	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, internal.SourceGemini, conv.Source)
	assert.Equal(t, "conv-gemini-1", conv.ID)
	require.NotNil(t, conv.CreatedAt)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, internal.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Hello Gemini", conv.Messages[0].Content)
	assert.Equal(t, internal.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Hi there\nHow can I help?", conv.Messages[1].Content)
}

func TestGemini_RoleVariants(t *testing.T) {
	files := map[string]string{"chat.json": `{
		"thread_id": "t-1",
		"turns": [
			{"role": "USER", "content": "upper"},
			{"author": "0", "text": "numeric user"},
			{"role": 1, "text": "numeric model"},
			{"role": "System", "text": "sys"},
			{"role": "narrator", "text": "fallback"}
		]
	}`}

	convs := parseGemini(t, files)
	require.Len(t, convs, 1)
	assert.Equal(t, "t-1", convs[0].ID)

	var roles []internal.Role
	for _, msg := range convs[0].Messages {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []internal.Role{
		internal.RoleUser, internal.RoleUser, internal.RoleAssistant, internal.RoleSystem, internal.RoleAssistant,
	}, roles)
}

func TestGemini_HTMLClassTagged(t *testing.T) {
	convs := parseGemini(t, map[string]string{"MyActivity.html": testutil.GeminiActivityHTML})

	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, "Gemini Apps Activity", conv.Title)
	assert.Equal(t, "MyActivity", conv.ID)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, internal.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "What is the capital of France?", conv.Messages[0].Content)
	assert.Equal(t, internal.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "The capital of France is Paris.", conv.Messages[1].Content)
}

func TestGemini_HTMLInterleavesByIndex(t *testing.T) {
	page := `<html><body>Gemini
<div class="query">first question</div>
<div class="query">second question</div>
<div class="response">only answer</div>
</body></html>`

	convs := parseGemini(t, map[string]string{"chat.html": page})
	require.Len(t, convs, 1)

	var contents []string
	for _, msg := range convs[0].Messages {
		contents = append(contents, string(msg.Role)+":"+msg.Content)
	}
	assert.Equal(t, []string{"user:first question", "assistant:only answer", "user:second question"}, contents)
}

func TestGemini_HTMLSeparators(t *testing.T) {
	page := `<html><head></head><body><p>Exported from Bard</p>
<p>How do tides work exactly?</p>
<hr>
<p>The moon's gravity pulls on the oceans.</p>
<hr/>
<p>short</p>
<div class="turn-separator"></div>
<p>Thanks, that explains a lot!</p>
</body></html>`

	convs := parseGemini(t, map[string]string{"bard.html": page})
	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, "bard", conv.Title)

	require.Len(t, conv.Messages, 3)
	assert.Equal(t, internal.RoleUser, conv.Messages[0].Role)
	assert.Contains(t, conv.Messages[0].Content, "How do tides work exactly?")
	assert.Equal(t, internal.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "The moon's gravity pulls on the oceans.", conv.Messages[1].Content)
	assert.Equal(t, internal.RoleUser, conv.Messages[2].Role)
	assert.Equal(t, "Thanks, that explains a lot!", conv.Messages[2].Content)
}

func TestGemini_JSONSuppressesHTML(t *testing.T) {
	convs := parseGemini(t, map[string]string{
		"conversations.json": testutil.GeminiConversations,
		"MyActivity.html":    testutil.GeminiActivityHTML,
	})

	require.Len(t, convs, 1)
	assert.Equal(t, "conv-gemini-1", convs[0].ID)
}

func TestGemini_SkipsUnmarkedAndEmpty(t *testing.T) {
	convs := parseGemini(t, map[string]string{
		"unrelated.html": `<html><body><div class="user">a page about cooking pasta</div></body></html>`,
		"empty.html":     `<html><title>Gemini</title><body></body></html>`,
		"empty.json":     `[{"id": "e", "messages": [{"role": "user", "text": ""}]}]`,
	})
	assert.Empty(t, convs)
}
