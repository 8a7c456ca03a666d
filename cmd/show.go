package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatvault/internal"
	"github.com/spf13/cobra"
)

var (
	limit      int
	since      string
	showSystem bool
)

var (
	// Styles for show command
	conversationHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	conversationMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <vault-dir> <conversation-id>",
	Short: "Show messages for a converted conversation",
	Long: `Display a conversation recorded in a vault's catalog. When several
conversions recorded the same id, the newest one is shown.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vault, id := args[0], args[1]

		var sinceTime *time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = &parsed
		}

		catalog, err := openVaultCatalog(vault)
		if err != nil {
			return err
		}
		defer catalog.Close()

		conv, err := catalog.GetConversation(cmd.Context(), id)
		if errors.Is(err, internal.ErrConversationNotFound) {
			return fmt.Errorf("conversation not found: %s (use 'chatvault list %s' to see available conversations)", id, vault)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displayConversationHeader(out, conv)

		messages := make([]internal.Message, 0, len(conv.Messages))
		for _, msg := range conv.Messages {
			if msg.Role == internal.RoleSystem && !showSystem {
				continue
			}
			if sinceTime != nil && (msg.CreatedAt == nil || msg.CreatedAt.Before(*sinceTime)) {
				continue
			}
			messages = append(messages, msg)
		}

		total := len(messages)
		if limit > 0 && limit < total {
			messages = messages[:limit]
		}

		for i, msg := range messages {
			displayMessage(out, i+1, msg, total)
		}

		if limit > 0 && limit < total {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
		}

		return nil
	},
}

func displayConversationHeader(w io.Writer, conv *internal.Conversation) {
	if conv == nil {
		return
	}
	_, _ = fmt.Fprintln(w, conversationHeaderStyle.Render(fmt.Sprintf("\U0001F4AC %s", conv.Title)))

	metaParts := []string{"Platform: " + conv.PlatformDisplay()}
	if model := conv.ResolvedModel(); model != "" {
		metaParts = append(metaParts, "Model: "+model)
	}
	if conv.CreatedAt != nil {
		metaParts = append(metaParts, "Created: "+conv.CreatedAt.Format(time.RFC3339))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", conv.MessageCount()))
	_, _ = fmt.Fprintln(w, conversationMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var roleStyle lipgloss.Style
	var roleLabel string

	switch msg.Role {
	case internal.RoleUser:
		roleStyle = userMessageStyle
		roleLabel = "\U0001F464 User"
	case internal.RoleAssistant:
		roleStyle = assistantMessageStyle
		roleLabel = "\U0001F916 Assistant"
	default:
		roleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		roleLabel = fmt.Sprintf("\U0001F527 %s", msg.Role)
	}

	header := roleStyle.Render(roleLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.CreatedAt != nil {
		header += " " + timestampStyle.Render(msg.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		_, _ = fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	for _, att := range msg.Attachments {
		_, _ = fmt.Fprintln(w, timestampStyle.Render(fmt.Sprintf("  \U0001F4CE %s (%s)", att.Name, att.Type)))
	}

	_, _ = fmt.Fprintln(w)
}

// wrapText wraps lines longer than width at word boundaries
func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
	showCmd.Flags().BoolVar(&showSystem, "system", false, "Include system messages")
}
