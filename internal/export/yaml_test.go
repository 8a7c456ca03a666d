package export

import (
	"bytes"
	"testing"

	"github.com/iksnae/chatvault/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	tests := []struct {
		name string
		conv *internal.Conversation
	}{
		{
			name: "basic conversation",
			conv: internal.CreateTestConversation("test1"),
		},
		{
			name: "conversation without timestamps",
			conv: internal.CreateTestConversationWithMessages("test2", internal.SourceGemini, []internal.Message{
				{Role: internal.RoleAssistant, Content: "multi\nline"},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &YAMLExporter{}

			if err := exporter.Export(tt.conv, &buf); err != nil {
				t.Fatalf("YAMLExporter.Export() error = %v", err)
			}

			var got internal.Conversation
			if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("Output is not valid YAML: %v\nOutput: %s", err, buf.String())
			}
			if got.ID != tt.conv.ID {
				t.Errorf("ID = %q, want %q", got.ID, tt.conv.ID)
			}
			for i, msg := range tt.conv.Messages {
				if got.Messages[i].Content != msg.Content || got.Messages[i].Role != msg.Role {
					t.Errorf("message %d = %+v, want %+v", i, got.Messages[i], msg)
				}
			}
			if tt.conv.CreatedAt != nil && (got.CreatedAt == nil || !got.CreatedAt.Equal(*tt.conv.CreatedAt)) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tt.conv.CreatedAt)
			}
		})
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
