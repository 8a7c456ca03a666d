// Package adapters turns extracted provider exports into canonical
// conversations. Adapters never fail on malformed input: unreadable files
// and records without usable content are skipped.
package adapters

import (
	"context"

	"github.com/iksnae/chatvault/internal"
)

// Adapter parses one provider's extracted export
type Adapter interface {
	Source() internal.Source
	// Parse returns the conversations found under root in discovery order.
	// Cancellation stops parsing early and returns what was collected.
	Parse(ctx context.Context, root string, progress internal.Progress) []internal.Conversation
}

// NewAdapter returns the adapter for source. Unknown sources get the
// generic best-effort adapter. threshold is the streaming threshold in
// bytes handed to the JSON ingester; zero selects the default.
func NewAdapter(source internal.Source, threshold int64) Adapter {
	switch source {
	case internal.SourceChatGPT:
		return &ChatGPTAdapter{Threshold: threshold}
	case internal.SourceClaude:
		return &ClaudeAdapter{Threshold: threshold}
	case internal.SourceGemini:
		return &GeminiAdapter{Threshold: threshold}
	case internal.SourceGrok:
		return &GrokAdapter{Threshold: threshold}
	default:
		return &GenericAdapter{Threshold: threshold}
	}
}

// Registry holds one adapter per provider key
type Registry struct {
	adapters map[internal.Source]Adapter
}

// NewRegistry builds a registry covering every known source
func NewRegistry(threshold int64) *Registry {
	r := &Registry{adapters: make(map[internal.Source]Adapter, len(internal.Sources))}
	for _, source := range internal.Sources {
		r.adapters[source] = NewAdapter(source, threshold)
	}
	return r
}

// Register replaces the adapter used for a source
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Source()] = adapter
}

// For returns the adapter for source, falling back to the generic adapter
func (r *Registry) For(source internal.Source) Adapter {
	if adapter, ok := r.adapters[source]; ok {
		return adapter
	}
	return r.adapters[internal.SourceUnknown]
}
