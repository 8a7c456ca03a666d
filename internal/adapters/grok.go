package adapters

import (
	"context"
	"sort"
	"time"

	"github.com/iksnae/chatvault/internal"
)

const grokDefaultTitle = "Grok Conversation"

var grokRoles = roleTable{
	"user":      internal.RoleUser,
	"human":     internal.RoleUser,
	"grok":      internal.RoleAssistant,
	"assistant": internal.RoleAssistant,
	"model":     internal.RoleAssistant,
	"system":    internal.RoleSystem,
}

// GrokAdapter parses Grok exports from the X data archive. A file holds
// either conversation objects or a flat list of messages tagged with a
// conversation_id.
type GrokAdapter struct {
	Threshold int64
}

func (a *GrokAdapter) Source() internal.Source { return internal.SourceGrok }

func (a *GrokAdapter) Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	var conversations []internal.Conversation

	for _, path := range internal.FilesWithExt(root, ".json") {
		if ctx.Err() != nil {
			break
		}

		var flat []map[string]any
		first, isFlat := true, false
		for raw := range elements(ctx, internal.SourceGrok, path, a.Threshold, progress) {
			if first {
				_, hasConvID := raw["conversation_id"]
				_, hasMessages := raw["messages"]
				isFlat = hasConvID && !hasMessages
				first = false
			}
			if raw == nil {
				continue
			}
			if isFlat {
				flat = append(flat, raw)
				continue
			}
			if conv, ok := parseGrokConversation(raw); ok {
				conversations = append(conversations, conv)
			}
		}

		if isFlat {
			conversations = append(conversations, groupGrokMessages(flat)...)
		}
	}
	return conversations
}

func parseGrokConversation(raw map[string]any) (internal.Conversation, bool) {
	var messages []internal.Message
	for _, item := range asList(pick(raw, "messages", "turns")) {
		if msg, ok := grokMessage(asMap(item)); ok {
			messages = append(messages, msg)
		}
	}

	conv := internal.Conversation{
		ID:        internal.SanitizeID(pick(raw, "id", "conversation_id", "thread_id")),
		Source:    internal.SourceGrok,
		Title:     pickString(raw, grokDefaultTitle, "title", "name"),
		CreatedAt: firstTime(internal.TimeFromISO(raw["created_at"]), parseTime(pick(raw, "create_time", "timestamp"))),
		Messages:  messages,
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

func grokMessage(raw map[string]any) (internal.Message, bool) {
	if raw == nil {
		return internal.Message{}, false
	}

	role := grokRoles.resolve(lower(pick(raw, "role", "sender", "author")), internal.RoleAssistant)

	var text string
	for _, key := range []string{"text", "content", "message"} {
		if v, ok := raw[key]; ok {
			text = internal.FlattenContent(v)
			break
		}
	}

	msg, ok := internal.NewMessage(role, text)
	if !ok {
		return internal.Message{}, false
	}
	msg.CreatedAt = firstTime(internal.TimeFromISO(raw["created_at"]), parseTime(pick(raw, "timestamp", "create_time")))
	return msg, true
}

// groupGrokMessages groups flat messages by conversation_id in order of first
// appearance. Each group is sorted by the string form of its timestamp field.
func groupGrokMessages(flat []map[string]any) []internal.Conversation {
	var order []string
	groups := make(map[string][]map[string]any)
	rawIDs := make(map[string]any)

	for _, msg := range flat {
		rawID, ok := msg["conversation_id"]
		key := internal.Stringify(rawID)
		if !ok {
			rawID, key = internal.UnknownID, internal.UnknownID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			rawIDs[key] = rawID
		}
		groups[key] = append(groups[key], msg)
	}

	var conversations []internal.Conversation
	for _, key := range order {
		msgs := groups[key]
		sort.SliceStable(msgs, func(i, j int) bool {
			return grokSortKey(msgs[i]) < grokSortKey(msgs[j])
		})

		var messages []internal.Message
		for _, raw := range msgs {
			if msg, ok := grokMessage(raw); ok {
				messages = append(messages, msg)
			}
		}

		var createdAt *time.Time
		for _, raw := range msgs {
			if ts := firstTime(internal.TimeFromISO(raw["created_at"]), parseTime(raw["timestamp"])); ts != nil {
				createdAt = ts
				break
			}
		}

		conv := internal.Conversation{
			ID:        internal.SanitizeID(rawIDs[key]),
			Source:    internal.SourceGrok,
			Title:     grokDefaultTitle,
			CreatedAt: createdAt,
			Messages:  messages,
		}
		if conv.Finalize() {
			conversations = append(conversations, conv)
		}
	}
	return conversations
}

func grokSortKey(raw map[string]any) string {
	return pickString(raw, "", "timestamp", "created_at")
}
