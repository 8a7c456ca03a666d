package internal

import (
	"time"
)

// TestTime is the fixed creation time used by test conversations
var TestTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

// CreateTestConversation creates a two-message ChatGPT conversation with
// sample data
func CreateTestConversation(id string) *Conversation {
	created := TestTime
	replied := TestTime.Add(5 * time.Second)
	return &Conversation{
		ID:        id,
		Source:    SourceChatGPT,
		Title:     "Test Conversation",
		CreatedAt: &created,
		Model:     "gpt-4",
		Messages: []Message{
			{
				Role:      RoleUser,
				Content:   "Hello, how are you?",
				CreatedAt: &created,
			},
			{
				Role:      RoleAssistant,
				Content:   "I'm doing well, thank you!",
				CreatedAt: &replied,
				Model:     "gpt-4",
			},
		},
		Metadata: map[string]string{"model": "gpt-4"},
	}
}

// CreateTestConversationWithMessages creates a conversation with custom
// messages and no timestamps
func CreateTestConversationWithMessages(id string, source Source, messages []Message) *Conversation {
	return &Conversation{
		ID:       id,
		Source:   source,
		Title:    "Conversation " + id,
		Messages: messages,
		Metadata: map[string]string{},
	}
}
