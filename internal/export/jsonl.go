package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/chatvault/internal"
)

// JSONLExporter exports conversations in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a conversation to JSONL format
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range conv.Messages {
		obj := map[string]interface{}{
			"conversation_id": conv.ID,
			"source":          conv.Source,
			"message_number":  i + 1,
			"role":            msg.Role,
			"content":         msg.Content,
		}

		if msg.CreatedAt != nil {
			obj["created_at"] = msg.CreatedAt.UTC().Format(time.RFC3339)
		}
		if msg.Model != "" {
			obj["model"] = msg.Model
		}
		if len(msg.Attachments) > 0 {
			obj["attachments"] = msg.Attachments
		}

		// Encode to single line
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
