package internal

import (
	"strings"
	"time"
)

// Source identifies the provider that produced an export
type Source string

const (
	SourceChatGPT Source = "chatgpt"
	SourceClaude  Source = "claude"
	SourceGemini  Source = "gemini"
	SourceGrok    Source = "grok"
	SourceUnknown Source = "unknown"
)

// Sources lists every provider key in detection-report order
var Sources = []Source{SourceChatGPT, SourceClaude, SourceGemini, SourceGrok, SourceUnknown}

// Display returns the human-readable platform label
func (s Source) Display() string {
	switch s {
	case SourceChatGPT:
		return "ChatGPT"
	case SourceClaude:
		return "Claude"
	case SourceGemini:
		return "Gemini"
	case SourceGrok:
		return "Grok"
	default:
		return "Unknown"
	}
}

// Role is the normalized author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	// RoleUnknown is only produced when a provider gives no author at all
	RoleUnknown Role = "unknown"
)

// AttachmentType classifies an attachment
type AttachmentType string

const (
	AttachmentImage   AttachmentType = "image"
	AttachmentFile    AttachmentType = "file"
	AttachmentCode    AttachmentType = "code"
	AttachmentUnknown AttachmentType = "unknown"
)

// Attachment references a file, image or code asset tied to a message
type Attachment struct {
	Type      AttachmentType `json:"type" yaml:"type"`
	Name      string         `json:"name" yaml:"name"`
	Reference string         `json:"reference" yaml:"reference"`
}

// Message is one turn in a conversation
type Message struct {
	Role        Role         `json:"role" yaml:"role"`
	Content     string       `json:"content" yaml:"content"`
	CreatedAt   *time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Model       string       `json:"model,omitempty" yaml:"model,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// Conversation is a complete provider-agnostic thread
type Conversation struct {
	ID        string            `json:"id" yaml:"id"`
	Source    Source            `json:"source" yaml:"source"`
	Title     string            `json:"title" yaml:"title"`
	CreatedAt *time.Time        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Model     string            `json:"model,omitempty" yaml:"model,omitempty"`
	Messages  []Message         `json:"messages" yaml:"messages"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewMessage builds a message, reporting false when the content is empty.
// Empty messages are never part of a conversation.
func NewMessage(role Role, content string) (Message, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, false
	}
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: content}, true
}

// Finalize applies the conversation defaults and reports whether the
// conversation may be emitted. A conversation without messages is rejected.
func (c *Conversation) Finalize() bool {
	if c == nil || len(c.Messages) == 0 {
		return false
	}
	if strings.TrimSpace(c.ID) == "" {
		c.ID = UnknownID
	}
	if c.Title == "" {
		c.Title = "Untitled"
	}
	if c.Source == "" {
		c.Source = SourceUnknown
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	return true
}

// MessageCount returns the number of messages
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// PlatformDisplay returns the platform label, e.g. "ChatGPT"
func (c *Conversation) PlatformDisplay() string {
	return c.Source.Display()
}

// FirstUserMessage returns the content of the first user-authored message,
// or "" if there is none.
func (c *Conversation) FirstUserMessage() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg.Content
		}
	}
	return ""
}

// ResolvedModel returns the conversation model, falling back to metadata
func (c *Conversation) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.Metadata["model"]
}
