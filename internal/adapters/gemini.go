package adapters

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iksnae/chatvault/internal"
)

var geminiRoles = roleTable{
	"user":      internal.RoleUser,
	"0":         internal.RoleUser,
	"model":     internal.RoleAssistant,
	"assistant": internal.RoleAssistant,
	"1":         internal.RoleAssistant,
	"system":    internal.RoleSystem,
}

var (
	htmlTitlePattern     = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)
	htmlUserTurnPattern  = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*(?:human|user|query|prompt)[^"]*"[^>]*>(.*?)</div>`)
	htmlModelTurnPattern = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*(?:model|assistant|response|answer)[^"]*"[^>]*>(.*?)</div>`)
	htmlSeparatorPattern = regexp.MustCompile(`(?i)<hr\s*/?>|<div[^>]*class="[^"]*separator[^"]*"[^>]*>`)

	geminiHTMLMarkers = []string{"gemini", "bard", "google"}
)

// minHTMLBlockRunes is the size a separator-split block must exceed to count
// as a message
const minHTMLBlockRunes = 10

// GeminiAdapter parses Gemini exports. Structured JSON is preferred; Google
// Takeout HTML pages are used only when no JSON conversation was found.
type GeminiAdapter struct {
	Threshold int64
}

func (a *GeminiAdapter) Source() internal.Source { return internal.SourceGemini }

func (a *GeminiAdapter) Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	var conversations []internal.Conversation

	for _, path := range internal.FilesWithExt(root, ".json") {
		if ctx.Err() != nil {
			return conversations
		}
		for raw := range objects(ctx, internal.SourceGemini, path, a.Threshold, progress) {
			if conv, ok := parseGeminiConversation(raw); ok {
				conversations = append(conversations, conv)
			}
		}
	}
	if len(conversations) > 0 {
		return conversations
	}

	progress.Report("No structured Gemini data found, trying HTML pages...")
	for _, path := range internal.FilesWithExt(root, ".html") {
		if ctx.Err() != nil {
			break
		}
		if conv, ok := parseGeminiHTML(path); ok {
			conversations = append(conversations, conv)
		}
	}
	return conversations
}

func parseGeminiConversation(raw map[string]any) (internal.Conversation, bool) {
	rawMessages := asList(pick(raw, "messages", "turns"))

	var messages []internal.Message
	for _, item := range rawMessages {
		if msg, ok := geminiMessage(asMap(item)); ok {
			messages = append(messages, msg)
		}
	}

	conv := internal.Conversation{
		ID:        internal.SanitizeID(pick(raw, "id", "conversation_id", "thread_id")),
		Source:    internal.SourceGemini,
		Title:     pickString(raw, "Untitled", "title", "name"),
		CreatedAt: firstTime(internal.TimeFromISO(raw["created_at"]), internal.TimeFromEpoch(raw["create_time"])),
		Messages:  messages,
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

func geminiMessage(raw map[string]any) (internal.Message, bool) {
	if raw == nil {
		return internal.Message{}, false
	}

	role := geminiRoles.resolve(lower(pick(raw, "role", "author")), internal.RoleAssistant)

	var text string
	if v, ok := raw["text"]; ok {
		text = internal.FlattenContent(v)
	} else if v, ok := raw["content"]; ok {
		text = internal.FlattenContent(v)
	} else if parts, ok := raw["parts"].([]any); ok {
		text = geminiParts(parts)
	}

	msg, ok := internal.NewMessage(role, text)
	if !ok {
		return internal.Message{}, false
	}
	msg.CreatedAt = firstTime(internal.TimeFromISO(raw["created_at"]), internal.TimeFromEpoch(raw["create_time"]))
	return msg, true
}

func geminiParts(parts []any) string {
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case string:
			texts = append(texts, p)
		case map[string]any:
			if t, ok := p["text"]; ok {
				texts = append(texts, internal.Stringify(t))
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// parseGeminiHTML reads one Takeout page as a single conversation
func parseGeminiHTML(path string) (internal.Conversation, bool) {
	page, ok := readText(path)
	if !ok {
		return internal.Conversation{}, false
	}

	lowerPage := strings.ToLower(page)
	marked := false
	for _, marker := range geminiHTMLMarkers {
		if strings.Contains(lowerPage, marker) {
			marked = true
			break
		}
	}
	if !marked {
		return internal.Conversation{}, false
	}

	title := stem(path)
	if m := htmlTitlePattern.FindStringSubmatch(page); m != nil {
		title = internal.StripMarkup(m[1])
	}

	conv := internal.Conversation{
		ID:       internal.SanitizeID(stem(path)),
		Source:   internal.SourceGemini,
		Title:    title,
		Messages: htmlMessages(page),
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

// htmlMessages extracts turns from class-tagged divs, interleaving user and
// model turns by index. Pages without such divs are split on separators and
// the blocks alternate user and assistant.
func htmlMessages(page string) []internal.Message {
	var messages []internal.Message
	appendMsg := func(role internal.Role, text string) {
		if msg, ok := internal.NewMessage(role, text); ok {
			messages = append(messages, msg)
		}
	}

	userTurns := htmlUserTurnPattern.FindAllStringSubmatch(page, -1)
	modelTurns := htmlModelTurnPattern.FindAllStringSubmatch(page, -1)
	if len(userTurns) > 0 || len(modelTurns) > 0 {
		for i := 0; i < max(len(userTurns), len(modelTurns)); i++ {
			if i < len(userTurns) {
				appendMsg(internal.RoleUser, internal.StripMarkup(userTurns[i][1]))
			}
			if i < len(modelTurns) {
				appendMsg(internal.RoleAssistant, internal.StripMarkup(modelTurns[i][1]))
			}
		}
		return messages
	}

	role := internal.RoleUser
	for _, block := range htmlSeparatorPattern.Split(page, -1) {
		text := internal.StripMarkup(block)
		if utf8.RuneCountInString(text) <= minHTMLBlockRunes {
			continue
		}
		appendMsg(role, text)
		if role == internal.RoleUser {
			role = internal.RoleAssistant
		} else {
			role = internal.RoleUser
		}
	}
	return messages
}
