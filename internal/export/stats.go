package export

import (
	"time"
	"unicode/utf8"

	"github.com/iksnae/chatvault/internal"
)

// Stats summarizes a set of conversations
type Stats struct {
	TotalConversations int            `json:"total_conversations" yaml:"total_conversations"`
	TotalMessages      int            `json:"total_messages" yaml:"total_messages"`
	TotalCharacters    int            `json:"total_characters" yaml:"total_characters"`
	Platforms          map[string]int `json:"platforms" yaml:"platforms"`
	Models             map[string]int `json:"models" yaml:"models"`
	DateRangeStart     *time.Time     `json:"date_range_start,omitempty" yaml:"date_range_start,omitempty"`
	DateRangeEnd       *time.Time     `json:"date_range_end,omitempty" yaml:"date_range_end,omitempty"`
}

// ComputeStats counts conversations, messages and characters per platform
// and model and finds the span of conversation dates
func ComputeStats(conversations []internal.Conversation) Stats {
	stats := Stats{
		TotalConversations: len(conversations),
		Platforms:          make(map[string]int),
		Models:             make(map[string]int),
	}

	for i := range conversations {
		conv := &conversations[i]
		stats.TotalMessages += conv.MessageCount()
		for _, msg := range conv.Messages {
			stats.TotalCharacters += utf8.RuneCountInString(msg.Content)
		}

		stats.Platforms[conv.PlatformDisplay()]++
		model := conv.ResolvedModel()
		if model == "" {
			model = "unknown"
		}
		stats.Models[model]++

		if conv.CreatedAt != nil {
			if stats.DateRangeStart == nil || conv.CreatedAt.Before(*stats.DateRangeStart) {
				stats.DateRangeStart = conv.CreatedAt
			}
			if stats.DateRangeEnd == nil || conv.CreatedAt.After(*stats.DateRangeEnd) {
				stats.DateRangeEnd = conv.CreatedAt
			}
		}
	}

	return stats
}
