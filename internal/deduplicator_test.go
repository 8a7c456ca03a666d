package internal

import (
	"testing"
	"time"
)

func TestNewDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	if d == nil {
		t.Error("NewDeduplicator() returned nil")
	}
}

func TestDeduplicator_Deduplicate(t *testing.T) {
	conv := func(id string, source Source, messages ...Message) Conversation {
		return *CreateTestConversationWithMessages(id, source, messages)
	}

	tests := []struct {
		name          string
		conversations []Conversation
		wantIDs       []string
	}{
		{
			name:          "empty",
			conversations: []Conversation{},
			wantIDs:       []string{},
		},
		{
			name: "no duplicates",
			conversations: []Conversation{
				conv("c1", SourceChatGPT, Message{Role: RoleUser, Content: "Hello"}),
				conv("c2", SourceChatGPT, Message{Role: RoleUser, Content: "Goodbye"}),
			},
			wantIDs: []string{"c1", "c2"},
		},
		{
			name: "with duplicates",
			conversations: []Conversation{
				conv("c1", SourceChatGPT, Message{Role: RoleUser, Content: "Hello"}),
				conv("c1-dup", SourceChatGPT, Message{Role: RoleUser, Content: "Hello"}),
				conv("c2", SourceChatGPT, Message{Role: RoleUser, Content: "Goodbye"}),
			},
			wantIDs: []string{"c1", "c2"},
		},
		{
			name: "different source is not a duplicate",
			conversations: []Conversation{
				conv("c1", SourceChatGPT, Message{Role: RoleUser, Content: "Hello"}),
				conv("c2", SourceClaude, Message{Role: RoleUser, Content: "Hello"}),
			},
			wantIDs: []string{"c1", "c2"},
		},
		{
			name: "different role is not a duplicate",
			conversations: []Conversation{
				conv("c1", SourceChatGPT, Message{Role: RoleUser, Content: "Hello"}),
				conv("c2", SourceChatGPT, Message{Role: RoleAssistant, Content: "Hello"}),
			},
			wantIDs: []string{"c1", "c2"},
		},
		{
			name: "message boundaries matter",
			conversations: []Conversation{
				conv("c1", SourceGrok, Message{Role: RoleUser, Content: "ab"}, Message{Role: RoleUser, Content: "c"}),
				conv("c2", SourceGrok, Message{Role: RoleUser, Content: "a"}, Message{Role: RoleUser, Content: "bc"}),
			},
			wantIDs: []string{"c1", "c2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeduplicator()
			got := d.Deduplicate(tt.conversations)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Deduplicate() returned %d conversations, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Deduplicate()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestDeduplicator_TimestampsDistinguish(t *testing.T) {
	d := NewDeduplicator()
	a := CreateTestConversation("a")
	b := CreateTestConversation("b")
	later := TestTime.Add(time.Minute)
	b.Messages[0].CreatedAt = &later

	if d.hashConversationContent(a) == d.hashConversationContent(b) {
		t.Error("conversations with different message times hashed the same")
	}
}
