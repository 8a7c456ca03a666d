package export

import (
	"strings"
	"testing"

	"github.com/iksnae/chatvault/internal"
)

func TestFilename(t *testing.T) {
	dated := internal.CreateTestConversation("conv/42:x")
	undated := internal.CreateTestConversationWithMessages("plain-id", internal.SourceClaude, []internal.Message{
		{Role: internal.RoleAssistant, Content: "no user turn"},
	})
	undated.Title = "Math question"
	symbols := internal.CreateTestConversationWithMessages("sym", internal.SourceGrok, []internal.Message{
		{Role: internal.RoleUser, Content: "!!! ???"},
	})
	symbols.Title = "!!!"

	tests := []struct {
		name  string
		conv  *internal.Conversation
		style string
		index int
		want  string
	}{
		{"date and title", dated, FilenameDateTitle, 3, "2025-01-15_test-conversation_0003"},
		{"title without date", undated, FilenameDateTitle, 0, "math-question_0000"},
		{"id only", dated, FilenameIDOnly, 12, "2025-01-15_conv_42_x_0012"},
		{"first words", dated, FilenameDateFirstWords, 1, "2025-01-15_hello-how-are-you_0001"},
		{"first words falls back to title", undated, FilenameDateFirstWords, 7, "math-question_0007"},
		{"nothing sluggable", symbols, FilenameDateFirstWords, 0, "untitled_0000"},
		{"unknown style uses title", undated, "", 10000, "math-question_10000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultRenderOptions()
			opts.FilenameStyle = tt.style
			if got := Filename(tt.conv, tt.index, opts); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilename_Limits(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("x", internal.SourceChatGPT, []internal.Message{
		{Role: internal.RoleUser, Content: "one two three four five six seven eight"},
	})
	conv.Title = strings.Repeat("word ", 40)
	conv.ID = strings.Repeat("a", 60)

	opts := DefaultRenderOptions()
	stem := strings.TrimSuffix(Filename(conv, 0, opts), "_0000")
	if len(stem) > titleSlugLength || strings.HasSuffix(stem, "-") {
		t.Errorf("title slug %q exceeds %d characters or ends in a separator", stem, titleSlugLength)
	}

	opts.FilenameStyle = FilenameDateFirstWords
	if got := Filename(conv, 0, opts); got != "one-two-three-four-five-six_0000" {
		t.Errorf("Filename() = %q, want the first six words", got)
	}

	opts.FilenameStyle = FilenameIDOnly
	if got := Filename(conv, 0, opts); got != strings.Repeat("a", 40)+"_0000" {
		t.Errorf("Filename() = %q, want a 40 character id", got)
	}
}

func TestGroupFolder(t *testing.T) {
	dated := internal.CreateTestConversation("g")
	undated := internal.CreateTestConversationWithMessages("u", internal.SourceGrok, []internal.Message{
		{Role: internal.RoleUser, Content: "x"},
	})

	tests := []struct {
		name    string
		conv    *internal.Conversation
		groupBy string
		want    string
	}{
		{"platform", dated, GroupByPlatform, "ChatGPT"},
		{"platform of unknown source", internal.CreateTestConversationWithMessages("z", internal.SourceUnknown, nil), GroupByPlatform, "Unknown"},
		{"model", dated, GroupByModel, "gpt-4"},
		{"missing model", undated, GroupByModel, "unknown_model"},
		{"month", dated, GroupByMonth, "2025-01"},
		{"year", dated, GroupByYear, "2025"},
		{"month without date", undated, GroupByMonth, "no_date"},
		{"year without date", undated, GroupByYear, "no_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultRenderOptions()
			opts.GroupBy = tt.groupBy
			if got := GroupFolder(tt.conv, opts); got != tt.want {
				t.Errorf("GroupFolder() = %q, want %q", got, tt.want)
			}
		})
	}
}
