package export

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/iksnae/chatvault/internal"
)

const (
	titleSlugLength = 80
	wordsSlugLength = 50
	idPrefixLength  = 40
	firstWordsCount = 6
	untitledSlug    = "untitled"
	noDateFolder    = "no_date"
	noModelFolder   = "unknown_model"
)

var unsafeIDChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

// Filename returns the vault file name of the conversation at index, without
// an extension. Names end in a zero-padded index so they never collide.
func Filename(conv *internal.Conversation, index int, opts RenderOptions) string {
	var prefix string
	if conv.CreatedAt != nil {
		prefix = conv.CreatedAt.Format(dateLayout) + "_"
	}

	var stem string
	switch opts.FilenameStyle {
	case FilenameIDOnly:
		stem = unsafeIDChars.Replace(truncateRunes(conv.ID, idPrefixLength))
	case FilenameDateFirstWords:
		if words := strings.Fields(conv.FirstUserMessage()); len(words) > 0 {
			stem = makeSlug(strings.Join(words[:min(len(words), firstWordsCount)], " "), wordsSlugLength)
		}
		if stem == "" {
			stem = makeSlug(titleOrUntitled(conv), wordsSlugLength)
		}
	default:
		stem = makeSlug(titleOrUntitled(conv), titleSlugLength)
	}
	if stem == "" {
		stem = untitledSlug
	}

	return fmt.Sprintf("%s%s_%04d", prefix, stem, index)
}

// GroupFolder returns the sub-folder a conversation is filed under in a
// structured vault
func GroupFolder(conv *internal.Conversation, opts RenderOptions) string {
	switch opts.GroupBy {
	case GroupByModel:
		if folder := makeSlug(conv.ResolvedModel(), 0); folder != "" {
			return folder
		}
		return noModelFolder
	case GroupByMonth:
		if conv.CreatedAt != nil {
			return conv.CreatedAt.Format("2006-01")
		}
		return noDateFolder
	case GroupByYear:
		if conv.CreatedAt != nil {
			return conv.CreatedAt.Format("2006")
		}
		return noDateFolder
	default:
		return conv.PlatformDisplay()
	}
}

// makeSlug slugifies s and cuts it to at most maxLen characters without a
// trailing separator. maxLen 0 means no limit.
func makeSlug(s string, maxLen int) string {
	out := slug.Make(s)
	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	return out
}

func titleOrUntitled(conv *internal.Conversation) string {
	if conv.Title == "" {
		return untitledSlug
	}
	return conv.Title
}
