package internal

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnknownID is the identifier used when a source supplies none
const UnknownID = "unknown"

var (
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)

	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04",
		"2006-01-02",
	}

	// Bounds of representable calendar years
	minEpoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpoch = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// TimeFromEpoch converts a Unix timestamp in seconds to a UTC time.
// Numbers, json.Number and numeric strings are accepted; anything else,
// including out-of-range values, yields nil.
func TimeFromEpoch(v any) *time.Time {
	var secs float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		secs = n
	case float32:
		secs = float64(n)
	case int:
		secs = float64(n)
	case int64:
		secs = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		secs = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		secs = f
	default:
		return nil
	}

	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return nil
	}
	if secs < float64(minEpoch) || secs > float64(maxEpoch) {
		return nil
	}

	whole, frac := math.Modf(secs)
	t := time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)).UTC()
	return &t
}

// TimeFromISO parses an ISO 8601 string. A trailing "Z" means UTC and
// strings without an offset are taken as UTC. Empty or unparsable input
// yields nil.
func TimeFromISO(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "Z", "+00:00")

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if _, offset := t.Zone(); offset == 0 {
				t = t.UTC()
			}
			return &t
		}
	}
	return nil
}

// StripMarkup decodes HTML entities, removes tags, collapses runs of three
// or more newlines to two and trims the result.
func StripMarkup(text string) string {
	text = html.UnescapeString(text)
	text = tagPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// FlattenContent turns a raw message body into one trimmed string. The body
// may be nil, a string, or a list of parts where each part is a string or an
// object carrying a "text" field. List parts are joined with newlines.
func FlattenContent(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case []any:
		parts := make([]string, 0, len(c))
		for _, part := range c {
			switch p := part.(type) {
			case string:
				parts = append(parts, p)
			case map[string]any:
				if text, ok := p["text"]; ok {
					parts = append(parts, stringify(text))
				} else {
					parts = append(parts, stringify(p))
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	default:
		return strings.TrimSpace(stringify(c))
	}
}

// SanitizeID returns the trimmed string form of an identifier, or "unknown"
// for missing, empty or falsy values. It never returns "".
func SanitizeID(v any) string {
	if !Truthy(v) {
		return UnknownID
	}
	id := strings.TrimSpace(stringify(v))
	if id == "" {
		return UnknownID
	}
	return id
}

// Truthy reports whether a decoded JSON value counts as present:
// nil, false, zero, "" and empty collections do not.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// stringify renders a decoded JSON value as text
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// Stringify is the exported form of stringify for adapters
func Stringify(v any) string {
	return stringify(v)
}

// formatTimestamp formats an optional time as RFC3339
func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
