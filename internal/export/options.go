package export

import (
	"fmt"
	"slices"
)

// Output structures
const (
	StructureFlat       = "flat"
	StructureStructured = "structured"
)

// Filename styles
const (
	FilenameDateTitle      = "date_title"
	FilenameDateFirstWords = "date_first_words"
	FilenameIDOnly         = "id_only"
)

// Grouping keys for structured output
const (
	GroupByPlatform = "platform"
	GroupByModel    = "model"
	GroupByMonth    = "month"
	GroupByYear     = "year"
)

var (
	FilenameStyles = []string{FilenameDateTitle, FilenameDateFirstWords, FilenameIDOnly}
	GroupKeys      = []string{GroupByPlatform, GroupByModel, GroupByMonth, GroupByYear}
)

// RenderOptions controls Markdown rendering and vault layout
type RenderOptions struct {
	IncludeTimestamps     bool
	IncludeSystemMessages bool
	EmojiHeaders          bool
	OutputStructure       string
	// TruncateLength cuts message content at this many characters; 0 disables it
	TruncateLength int
	FilenameStyle  string
	GroupBy        string
}

// DefaultRenderOptions returns the default rendering settings
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		IncludeTimestamps:     true,
		IncludeSystemMessages: false,
		EmojiHeaders:          true,
		OutputStructure:       StructureStructured,
		TruncateLength:        0,
		FilenameStyle:         FilenameDateTitle,
		GroupBy:               GroupByPlatform,
	}
}

// Validate checks that enumerated settings hold known values
func (o RenderOptions) Validate() error {
	if o.OutputStructure != StructureFlat && o.OutputStructure != StructureStructured {
		return fmt.Errorf("invalid output structure %q (supported: flat, structured)", o.OutputStructure)
	}
	if !slices.Contains(FilenameStyles, o.FilenameStyle) {
		return fmt.Errorf("invalid filename style %q (supported: %v)", o.FilenameStyle, FilenameStyles)
	}
	if !slices.Contains(GroupKeys, o.GroupBy) {
		return fmt.Errorf("invalid group-by %q (supported: %v)", o.GroupBy, GroupKeys)
	}
	if o.TruncateLength < 0 {
		return fmt.Errorf("truncate length must not be negative, got %d", o.TruncateLength)
	}
	return nil
}
