package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iksnae/chatvault/internal"
)

var chatgptRoles = roleTable{
	"user":      internal.RoleUser,
	"assistant": internal.RoleAssistant,
	"system":    internal.RoleSystem,
	"tool":      internal.RoleTool,
}

// ChatGPTAdapter parses conversations.json from a ChatGPT data export.
// Each conversation is a mapping tree that is flattened by following the
// first child of every node from the root.
type ChatGPTAdapter struct {
	Threshold int64
}

func (a *ChatGPTAdapter) Source() internal.Source { return internal.SourceChatGPT }

func (a *ChatGPTAdapter) Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation {
	path := findConversationsJSON(root)
	if path == "" {
		progress.Report("No conversations.json found")
		return nil
	}

	var conversations []internal.Conversation
	count := 0
	in := &internal.Ingester{Threshold: a.Threshold, Progress: progress, Source: internal.SourceChatGPT}
	for raw := range in.Objects(ctx, path) {
		if ctx.Err() != nil {
			break
		}
		count++
		if conv, ok := parseChatGPTConversation(raw); ok {
			conversations = append(conversations, conv)
		}
		if count%progressEvery == 0 {
			progress.Report("Parsed %d ChatGPT conversations...", count)
		}
	}
	return conversations
}

// findConversationsJSON looks at the root, then one directory level down
func findConversationsJSON(root string) string {
	isFile := func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	}

	candidate := filepath.Join(root, "conversations.json")
	if isFile(candidate) {
		return candidate
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate = filepath.Join(root, entry.Name(), "conversations.json")
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

type chatgptConversation struct {
	ID               any            `json:"id"`
	ConversationID   any            `json:"conversation_id"`
	Title            any            `json:"title"`
	CreateTime       any            `json:"create_time"`
	DefaultModelSlug any            `json:"default_model_slug"`
	ModelSlug        any            `json:"model_slug"`
	PluginIDs        any            `json:"plugin_ids"`
	Mapping          orderedMapping `json:"mapping"`
}

// orderedMapping is a node-id -> node object that remembers key order
type orderedMapping struct {
	keys  []string
	nodes map[string]map[string]any
}

func (m *orderedMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		// Not an object; treated as an empty mapping
		return nil
	}

	m.nodes = make(map[string]map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var node any
		if err := dec.Decode(&node); err != nil {
			return err
		}
		if _, seen := m.nodes[key]; !seen {
			m.keys = append(m.keys, key)
		}
		m.nodes[key] = asMap(node)
	}
	return nil
}

func (m *orderedMapping) has(id string) bool {
	_, ok := m.nodes[id]
	return ok
}

func parseChatGPTConversation(raw json.RawMessage) (internal.Conversation, bool) {
	var rc chatgptConversation
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rc); err != nil {
		internal.LogDebug("Skipping ChatGPT conversation: %v", err)
		return internal.Conversation{}, false
	}
	if len(rc.Mapping.keys) == 0 {
		return internal.Conversation{}, false
	}

	messages := walkMapping(&rc.Mapping)

	model := internal.Stringify(firstTruthy(rc.DefaultModelSlug, rc.ModelSlug))
	if model == "" {
		for _, msg := range messages {
			if msg.Model != "" {
				model = msg.Model
				break
			}
		}
	}
	if model == "" {
		model = scanModelSlug(&rc.Mapping)
	}
	if model != "" {
		for i := range messages {
			if messages[i].Role == internal.RoleAssistant && messages[i].Model == "" {
				messages[i].Model = model
			}
		}
	}

	metadata := map[string]string{}
	if model != "" {
		metadata["model"] = model
	}
	if plugins := asList(rc.PluginIDs); len(plugins) > 0 {
		ids := make([]string, 0, len(plugins))
		for _, id := range plugins {
			ids = append(ids, internal.Stringify(id))
		}
		metadata["plugins"] = strings.Join(ids, ", ")
	}

	title := "Untitled"
	if internal.Truthy(rc.Title) {
		title = internal.Stringify(rc.Title)
	}

	conv := internal.Conversation{
		ID:        internal.SanitizeID(firstTruthy(rc.ID, rc.ConversationID)),
		Source:    internal.SourceChatGPT,
		Title:     title,
		CreatedAt: internal.TimeFromEpoch(rc.CreateTime),
		Model:     model,
		Messages:  messages,
		Metadata:  metadata,
	}
	if !conv.Finalize() {
		return internal.Conversation{}, false
	}
	return conv, true
}

// walkMapping flattens the tree from its root along first children. The
// root is the first node, in document order, whose parent is null or not
// in the mapping. Without a root every message is collected and sorted by
// creation time.
func walkMapping(m *orderedMapping) []internal.Message {
	rootID, found := "", false
	for _, id := range m.keys {
		parent, ok := m.nodes[id]["parent"].(string)
		if !ok || !m.has(parent) {
			rootID, found = id, true
			break
		}
	}
	if !found {
		return flatMappingMessages(m)
	}

	var messages []internal.Message
	visited := make(map[string]bool)
	current := rootID
	for current != "" && !visited[current] {
		visited[current] = true
		node := m.nodes[current]
		if node == nil {
			break
		}
		if msg, ok := chatgptMessage(node); ok {
			messages = append(messages, msg)
		}

		current = ""
		if children := asList(node["children"]); len(children) > 0 {
			current, _ = children[0].(string)
		}
	}
	return messages
}

func flatMappingMessages(m *orderedMapping) []internal.Message {
	var messages []internal.Message
	for _, id := range m.keys {
		if msg, ok := chatgptMessage(m.nodes[id]); ok {
			messages = append(messages, msg)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return unixOrZero(messages[i]) < unixOrZero(messages[j])
	})
	return messages
}

func unixOrZero(msg internal.Message) float64 {
	if msg.CreatedAt == nil {
		return 0
	}
	return float64(msg.CreatedAt.UnixMicro()) / 1e6
}

func chatgptMessage(node map[string]any) (internal.Message, bool) {
	rawMsg := asMap(node["message"])
	if rawMsg == nil {
		return internal.Message{}, false
	}

	content := asMap(rawMsg["content"])
	contentType := "text"
	if ct, ok := content["content_type"].(string); ok {
		contentType = ct
	}

	var text string
	if parts, ok := content["parts"]; ok {
		text = internal.FlattenContent(parts)
	} else {
		text = internal.FlattenContent(content["text"])
	}
	if contentType == "code" && text != "" {
		text = "```\n" + text + "\n```"
	}

	role := chatgptRoles.resolve(internal.Stringify(asMap(rawMsg["author"])["role"]), internal.RoleAssistant)
	msg, ok := internal.NewMessage(role, text)
	if !ok {
		return internal.Message{}, false
	}

	metadata := asMap(rawMsg["metadata"])
	msg.CreatedAt = internal.TimeFromEpoch(rawMsg["create_time"])
	if slug := metadata["model_slug"]; internal.Truthy(slug) {
		msg.Model = internal.Stringify(slug)
	}
	msg.Attachments = chatgptAttachments(metadata)
	return msg, true
}

func chatgptAttachments(metadata map[string]any) []internal.Attachment {
	var attachments []internal.Attachment
	for _, item := range asList(metadata["attachments"]) {
		att := asMap(item)
		if att == nil {
			continue
		}
		name := pickString(att, "attachment", "name")
		attType := internal.AttachmentFile
		if strings.HasPrefix(internal.Stringify(att["mimeType"]), "image/") {
			attType = internal.AttachmentImage
		}
		attachments = append(attachments, internal.Attachment{
			Type:      attType,
			Name:      name,
			Reference: pickString(att, name, "id"),
		})
	}
	return attachments
}

// scanModelSlug returns the first model_slug found on any node
func scanModelSlug(m *orderedMapping) string {
	for _, id := range m.keys {
		meta := asMap(asMap(m.nodes[id]["message"])["metadata"])
		if slug := meta["model_slug"]; internal.Truthy(slug) {
			return internal.Stringify(slug)
		}
	}
	return ""
}

func firstTruthy(values ...any) any {
	for _, v := range values {
		if internal.Truthy(v) {
			return v
		}
	}
	return nil
}
