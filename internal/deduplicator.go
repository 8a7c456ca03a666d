package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator removes duplicate conversations
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate removes conversations whose source and messages hash the same
// as an earlier one. The first occurrence is kept and order is preserved.
func (d *Deduplicator) Deduplicate(conversations []Conversation) []Conversation {
	seen := make(map[string]bool)
	unique := make([]Conversation, 0, len(conversations))

	for _, conv := range conversations {
		hash := d.hashConversationContent(&conv)
		if !seen[hash] {
			seen[hash] = true
			unique = append(unique, conv)
		}
	}

	return unique
}

// hashConversationContent creates a content-based hash for a conversation
func (d *Deduplicator) hashConversationContent(conv *Conversation) string {
	h := sha256.New()
	h.Write([]byte(conv.Source))

	for _, msg := range conv.Messages {
		h.Write([]byte{0})
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
		h.Write([]byte(formatTimestamp(msg.CreatedAt)))
	}

	return hex.EncodeToString(h.Sum(nil))
}
