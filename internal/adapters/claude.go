package adapters

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iksnae/chatvault/internal"
)

// claudeProbeItems is how many leading array elements are checked for
// Claude markers
const claudeProbeItems = 3

var claudeRoles = roleTable{
	"human":     internal.RoleUser,
	"assistant": internal.RoleAssistant,
	"system":    internal.RoleSystem,
}

// ClaudeAdapter parses Claude exports: JSON arrays of conversations that
// carry chat_messages in chronological order.
type ClaudeAdapter struct {
	Threshold int64
}

func (a *ClaudeAdapter) Source() internal.Source { return internal.SourceClaude }

func (a *ClaudeAdapter) Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	var conversations []internal.Conversation

	for _, path := range internal.FilesWithExt(root, ".json") {
		if ctx.Err() != nil {
			break
		}
		if !isClaudeFile(ctx, path, a.Threshold) {
			continue
		}

		progress.Report("Parsing %s...", filepath.Base(path))
		count := 0
		for raw := range objects(ctx, internal.SourceClaude, path, a.Threshold, progress) {
			count++
			if conv, ok := parseClaudeConversation(raw); ok {
				conversations = append(conversations, conv)
			}
			if count%progressEvery == 0 {
				progress.Report("Parsed %d Claude conversations...", count)
			}
		}
	}
	return conversations
}

// isClaudeFile checks the leading array elements of a file for Claude
// markers. Elements are read through the ingester, so their size does not
// matter.
func isClaudeFile(ctx context.Context, path string, threshold int64) bool {
	seen := 0
	for item := range elements(ctx, internal.SourceClaude, path, threshold, nil) {
		if item != nil {
			if _, ok := item["chat_messages"]; ok {
				return true
			}
			_, hasUUID := item["uuid"]
			_, hasName := item["name"]
			if hasUUID && hasName {
				return true
			}
		}
		seen++
		if seen == claudeProbeItems {
			break
		}
	}
	return false
}

func parseClaudeConversation(raw map[string]any) (internal.Conversation, bool) {
	rawMessages := asList(raw["chat_messages"])

	var messages []internal.Message
	for _, item := range rawMessages {
		if msg, ok := claudeMessage(asMap(item)); ok {
			messages = append(messages, msg)
		}
	}

	model := pickString(raw, "", "model")
	if model == "" {
		for _, item := range rawMessages {
			if m := pickString(asMap(item), "", "model"); m != "" {
				model = m
				break
			}
		}
	}

	metadata := map[string]string{}
	if model != "" {
		metadata["model"] = model
	}
	if project := asMap(raw["project"]); len(project) > 0 {
		if name := internal.Stringify(project["name"]); name != "" {
			metadata["project"] = name
		}
	}

	conv := internal.Conversation{
		ID:        internal.SanitizeID(pick(raw, "uuid", "id")),
		Source:    internal.SourceClaude,
		Title:     pickString(raw, "Untitled", "name", "title"),
		CreatedAt: internal.TimeFromISO(raw["created_at"]),
		Model:     model,
		Messages:  messages,
		Metadata:  metadata,
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

func claudeMessage(raw map[string]any) (internal.Message, bool) {
	if raw == nil {
		return internal.Message{}, false
	}

	role := claudeRoles.resolve(internal.Stringify(raw["sender"]), internal.RoleAssistant)

	// Exports often carry an empty text next to structured content blocks
	text := internal.FlattenContent(raw["text"])
	if text == "" {
		if blocks, ok := raw["content"].([]any); ok {
			text = claudeContentBlocks(blocks)
		} else {
			text = internal.FlattenContent(raw["content"])
		}
	}

	msg, ok := internal.NewMessage(role, text)
	if !ok {
		return internal.Message{}, false
	}
	msg.CreatedAt = internal.TimeFromISO(raw["created_at"])
	msg.Model = pickString(raw, "", "model")
	msg.Attachments = claudeAttachments(raw)
	return msg, true
}

func claudeContentBlocks(blocks []any) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		switch b := block.(type) {
		case string:
			parts = append(parts, b)
		case map[string]any:
			switch b["type"] {
			case "text":
				parts = append(parts, internal.Stringify(b["text"]))
			case "tool_use":
				name := "unknown"
				if v, ok := b["name"]; ok {
					name = internal.Stringify(v)
				}
				parts = append(parts, fmt.Sprintf("[Tool call: %s]", name))
			case "tool_result":
				parts = append(parts, "[Tool result]")
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func claudeAttachments(raw map[string]any) []internal.Attachment {
	var attachments []internal.Attachment

	for _, item := range asList(raw["attachments"]) {
		att := asMap(item)
		if att == nil {
			continue
		}
		name := pickString(att, "attachment", "file_name", "name")
		attType := internal.AttachmentFile
		if strings.HasPrefix(internal.Stringify(att["file_type"]), "image/") {
			attType = internal.AttachmentImage
		}
		attachments = append(attachments, internal.Attachment{
			Type:      attType,
			Name:      name,
			Reference: pickString(att, name, "id"),
		})
	}

	for _, item := range asList(raw["files"]) {
		att := asMap(item)
		if att == nil {
			continue
		}
		name := pickString(att, "file", "file_name", "name")
		attachments = append(attachments, internal.Attachment{
			Type:      internal.AttachmentFile,
			Name:      name,
			Reference: pickString(att, name, "id", "file_uuid"),
		})
	}

	return attachments
}
