package adapters

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iksnae/chatvault/internal"
)

// minFallbackRunes is the least text an HTML or plain-text file must hold to
// become a conversation
const minFallbackRunes = 50

var (
	genericMessageKeys = []string{"messages", "turns", "chat_messages", "entries", "data", "items"}
	genericContentKeys = []string{"content", "text", "message", "body", "value"}

	genericRoles = roleTable{
		"user":      internal.RoleUser,
		"human":     internal.RoleUser,
		"assistant": internal.RoleAssistant,
		"ai":        internal.RoleAssistant,
		"bot":       internal.RoleAssistant,
		"model":     internal.RoleAssistant,
		"grok":      internal.RoleAssistant,
		"system":    internal.RoleSystem,
		"tool":      internal.RoleTool,
	}
)

// GenericAdapter makes a best-effort pass over unrecognized exports. JSON
// files are tried first, then HTML, then plain text; the first strategy that
// finds anything wins.
type GenericAdapter struct {
	Threshold int64
}

func (a *GenericAdapter) Source() internal.Source { return internal.SourceUnknown }

func (a *GenericAdapter) Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	strategies := []struct {
		name  string
		parse func() []internal.Conversation
	}{
		{"json", func() []internal.Conversation { return a.parseJSON(ctx, root, progress) }},
		{"html", func() []internal.Conversation { return parseDocuments(ctx, root, ".html", "html") }},
		{"text", func() []internal.Conversation { return parseDocuments(ctx, root, ".txt", "text") }},
	}

	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return nil
		}
		if conversations := strategy.parse(); len(conversations) > 0 {
			progress.Report("Generic adapter matched %d conversation(s) from %s files", len(conversations), strategy.name)
			return conversations
		}
	}
	return nil
}

func (a *GenericAdapter) parseJSON(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	var conversations []internal.Conversation
	for _, path := range internal.FilesWithExt(root, ".json") {
		if ctx.Err() != nil {
			break
		}
		index := 0
		for raw := range objects(ctx, a.Source(), path, a.Threshold, progress) {
			if conv, ok := genericConversation(raw, stem(path), index); ok {
				conversations = append(conversations, conv)
			}
			index++
		}
	}
	return conversations
}

func genericConversation(raw map[string]any, fallbackTitle string, index int) (internal.Conversation, bool) {
	var rawMessages []any
	found := false
	for _, key := range genericMessageKeys {
		if list, ok := raw[key].([]any); ok {
			rawMessages, found = list, true
			break
		}
	}
	if !found {
		return internal.Conversation{}, false
	}

	var messages []internal.Message
	for _, item := range rawMessages {
		if msg, ok := genericMessage(item); ok {
			messages = append(messages, msg)
		}
	}

	id := pick(raw, "id", "uuid", "conversation_id")
	if id == nil {
		id = strconv.Itoa(index)
	}

	conv := internal.Conversation{
		ID:        internal.SanitizeID(id),
		Source:    internal.SourceUnknown,
		Title:     pickString(raw, fallbackTitle, "title", "name", "subject"),
		CreatedAt: firstTime(internal.TimeFromISO(raw["created_at"]), parseTime(pick(raw, "create_time", "timestamp"))),
		Messages:  messages,
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

func genericMessage(item any) (internal.Message, bool) {
	switch raw := item.(type) {
	case string:
		return internal.NewMessage(internal.RoleUnknown, raw)
	case map[string]any:
		rawRole := lower(pick(raw, "role", "sender", "author", "from"))
		fallback := internal.RoleAssistant
		if strings.Contains(rawRole, "user") {
			fallback = internal.RoleUser
		}
		role := genericRoles.resolve(rawRole, fallback)

		var text string
		for _, key := range genericContentKeys {
			if v, ok := raw[key]; ok {
				if text = internal.FlattenContent(v); text != "" {
					break
				}
			}
		}

		msg, ok := internal.NewMessage(role, text)
		if !ok {
			return internal.Message{}, false
		}
		msg.CreatedAt = firstTime(
			internal.TimeFromISO(pick(raw, "created_at", "timestamp_str")),
			parseTime(pick(raw, "timestamp", "create_time")),
		)
		return msg, true
	default:
		return internal.Message{}, false
	}
}

// parseDocuments turns every file with ext into a single-message
// conversation when it holds enough text
func parseDocuments(ctx context.Context, root, ext, format string) []internal.Conversation {
	var conversations []internal.Conversation
	for _, path := range internal.FilesWithExt(root, ext) {
		if ctx.Err() != nil {
			break
		}
		content, ok := readText(path)
		if !ok {
			continue
		}

		var text string
		if format == "html" {
			text = internal.StripMarkup(content)
		} else {
			text = strings.TrimSpace(content)
		}
		if utf8.RuneCountInString(text) < minFallbackRunes {
			continue
		}

		msg, ok := internal.NewMessage(internal.RoleUser, text)
		if !ok {
			continue
		}
		conv := internal.Conversation{
			ID:       internal.SanitizeID(stem(path)),
			Source:   internal.SourceUnknown,
			Title:    stem(path),
			Messages: []internal.Message{msg},
			Metadata: map[string]string{"original_format": format},
		}
		if conv.Finalize() {
			conversations = append(conversations, conv)
		}
	}
	return conversations
}
