package export

import (
	"fmt"
	"io"

	"github.com/iksnae/chatvault/internal"
)

// Exporter defines the interface for all per-conversation export formats
type Exporter interface {
	Export(conv *internal.Conversation, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format. Only the Markdown
// exporter uses opts.
func NewExporter(format string, opts RenderOptions) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{Options: opts}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml, jsonl)", format)
	}
}
