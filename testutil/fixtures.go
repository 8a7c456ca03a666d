package testutil

import (
	"path/filepath"
	"testing"
)

// ChatGPTConversations is a minimal conversations.json with one linear
// mapping tree: root -> user -> assistant.
const ChatGPTConversations = `[
  {
    "id": "conv-chatgpt-1",
    "title": "Math question",
    "create_time": 1700000000.0,
    "default_model_slug": "gpt-4",
    "mapping": {
      "root": {"id": "root", "parent": null, "children": ["msg1"], "message": null},
      "msg1": {
        "id": "msg1", "parent": "root", "children": ["msg2"],
        "message": {
          "author": {"role": "user"},
          "create_time": 1700000001.0,
          "content": {"content_type": "text", "parts": ["What is 2+2?"]}
        }
      },
      "msg2": {
        "id": "msg2", "parent": "msg1", "children": [],
        "message": {
          "author": {"role": "assistant"},
          "create_time": 1700000002.0,
          "content": {"content_type": "text", "parts": ["4"]},
          "metadata": {"model_slug": "gpt-4"}
        }
      }
    }
  }
]`

// ClaudeConversations is a minimal Claude export with one conversation
const ClaudeConversations = `[
  {
    "uuid": "conv-claude-1",
    "name": "Reading files",
    "created_at": "2025-01-15T10:30:00Z",
    "chat_messages": [
      {"sender": "human", "text": "How do I read a file in Python?", "created_at": "2025-01-15T10:30:00Z"},
      {"sender": "assistant", "text": "Use open() with a context manager.", "created_at": "2025-01-15T10:30:05Z"}
    ]
  }
]`

// GeminiConversations is a structured Gemini export
const GeminiConversations = `[
  {
    "id": "conv-gemini-1",
    "title": "Gemini chat",
    "created_at": "2025-02-01T09:00:00Z",
    "messages": [
      {"role": "user", "text": "Hello Gemini"},
      {"role": "model", "parts": ["Hi there", {"text": "How can I help?"}]}
    ]
  }
]`

// GeminiActivityHTML is a Takeout-style activity page with class-tagged turns
const GeminiActivityHTML = `<html><head><title>Gemini Apps Activity</title></head>
<body>
<div class="user-query">What is the capital of France?</div>
<div class="model-response">The capital of France is <b>Paris</b>.</div>
</body></html>`

// GrokFlatMessages is a flat Grok export of messages tagged by conversation
const GrokFlatMessages = `[
  {"conversation_id": "g1", "sender": "user", "message": "second question", "timestamp": "2025-03-01T10:02:00Z"},
  {"conversation_id": "g2", "sender": "user", "message": "other thread", "timestamp": "2025-03-02T08:00:00Z"},
  {"conversation_id": "g1", "sender": "user", "message": "first question", "timestamp": "2025-03-01T10:00:00Z"},
  {"conversation_id": "g1", "sender": "grok", "message": "first answer", "timestamp": "2025-03-01T10:01:00Z"}
]`

// GenericConversation is a single unrecognized conversation object
const GenericConversation = `{"messages": [{"role": "ai", "content": "hi"}]}`

// CreateExportDir writes files (relative path -> content) into a new
// temporary directory and returns it
func CreateExportDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := CreateTempDir(t)
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	return dir
}

// CreateExportZip builds a ZIP archive of files in a new temporary directory
// and returns its path
func CreateExportZip(t *testing.T, files map[string]string) string {
	t.Helper()
	return CreateZip(t, filepath.Join(CreateTempDir(t), "export.zip"), files)
}
