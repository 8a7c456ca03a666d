package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/iksnae/chatvault/internal"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04"
	previewRunes    = 120
	untitledTitle   = "Untitled Conversation"
	unknownRoleIcon = "\u2753"
)

var (
	roleEmoji = map[internal.Role]string{
		internal.RoleUser:      "\U0001F9D1",
		internal.RoleAssistant: "\U0001F916",
		internal.RoleSystem:    "\u2699\ufe0f",
		internal.RoleTool:      "\U0001F527",
	}

	roleLabel = map[internal.Role]string{
		internal.RoleUser:      "User",
		internal.RoleAssistant: "Assistant",
		internal.RoleSystem:    "System",
		internal.RoleTool:      "Tool",
	}
)

// frontmatter is the YAML header of a rendered conversation
type frontmatter struct {
	Title          string `yaml:"title"`
	Date           string `yaml:"date,omitempty"`
	Model          string `yaml:"model,omitempty"`
	Platform       string `yaml:"platform"`
	Messages       int    `yaml:"messages"`
	ConversationID string `yaml:"conversation_id"`
	Source         string `yaml:"source"`
}

// MarkdownExporter renders conversations as Obsidian-friendly Markdown
type MarkdownExporter struct {
	Options RenderOptions
}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	text, err := Render(conv, e.Options)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

// Render renders one conversation: YAML frontmatter, a dated H1, a metadata
// block and every message separated by horizontal rules.
func Render(conv *internal.Conversation, opts RenderOptions) (string, error) {
	var b strings.Builder

	title := conv.Title
	if title == "" {
		title = untitledTitle
	}
	model := conv.ResolvedModel()

	var date string
	if conv.CreatedAt != nil {
		date = conv.CreatedAt.Format(dateLayout)
	}

	header, err := yaml.Marshal(frontmatter{
		Title:          strings.ReplaceAll(title, "\n", " "),
		Date:           date,
		Model:          model,
		Platform:       conv.PlatformDisplay(),
		Messages:       conv.MessageCount(),
		ConversationID: conv.ID,
		Source:         string(conv.Source),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")

	if date != "" {
		fmt.Fprintf(&b, "# %s — %s\n\n", date, title)
	} else {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	if model != "" {
		fmt.Fprintf(&b, "**Model:** %s  \n", model)
	}
	fmt.Fprintf(&b, "**Title:** %s  \n", title)
	fmt.Fprintf(&b, "**Length:** %d messages  \n", conv.MessageCount())
	if first := conv.FirstUserMessage(); first != "" {
		fmt.Fprintf(&b, "**First message:** %s\n", strings.ReplaceAll(truncateRunes(first, previewRunes), "\n", " "))
	}
	b.WriteString("\n---\n\n")

	for _, msg := range conv.Messages {
		if msg.Role == internal.RoleSystem && !opts.IncludeSystemMessages {
			continue
		}
		writeMessage(&b, msg, opts)
	}

	return b.String(), nil
}

func writeMessage(b *strings.Builder, msg internal.Message, opts RenderOptions) {
	label, ok := roleLabel[msg.Role]
	if !ok {
		label = titleCase(string(msg.Role))
	}

	header := "**" + label + "**"
	if opts.EmojiHeaders {
		emoji, ok := roleEmoji[msg.Role]
		if !ok {
			emoji = unknownRoleIcon
		}
		header = "**" + emoji + " " + label + "**"
	}
	if opts.IncludeTimestamps && msg.CreatedAt != nil {
		header += " (" + msg.CreatedAt.Format(timestampLayout) + ")"
	}
	b.WriteString(header + "\n")

	content := msg.Content
	if length := utf8.RuneCountInString(content); opts.TruncateLength > 0 && length > opts.TruncateLength {
		content = truncateRunes(content, opts.TruncateLength) +
			fmt.Sprintf("\n\n*(truncated — original message was %s characters)*", humanize.Comma(int64(length)))
	}
	if content != "" {
		b.WriteString(content + "\n")
	}

	if len(msg.Attachments) > 0 {
		b.WriteString("\n**Attachments:**\n")
		for _, att := range msg.Attachments {
			fmt.Fprintf(b, "- [%s] (%s: %s)\n", att.Name, att.Type, att.Reference)
		}
	}

	b.WriteString("\n---\n\n")
}

// truncateRunes returns the first n characters of s
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}
