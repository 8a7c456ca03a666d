package internal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// DefaultStreamingThreshold is the file size above which JSON arrays are
// parsed incrementally instead of being loaded whole.
const DefaultStreamingThreshold int64 = 50 * 1024 * 1024

var (
	errUnsupportedStructure = errors.New("top-level value is not an array")
	errInvalidEncoding      = errors.New("file is not valid UTF-8")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Ingester yields the elements of a top-level JSON array file
type Ingester struct {
	// Threshold selects the incremental strategy for files strictly larger
	// than this many bytes. Zero means DefaultStreamingThreshold.
	Threshold int64
	Progress  Progress
	// Source tags parse failures with the provider being parsed
	Source Source

	err error
}

// NewIngester creates an Ingester with the given threshold and sink
func NewIngester(threshold int64, progress Progress) *Ingester {
	return &Ingester{Threshold: threshold, Progress: progress}
}

// ingestStrategy is one way of reading the elements of a JSON file.
// elements returns nil when the file was fully read or the consumer stopped.
type ingestStrategy interface {
	elements(ctx context.Context, path string, yield func(json.RawMessage) bool) error
}

// Err returns the *ParseError that ended the most recent sequence early,
// or nil if the file was read completely
func (in *Ingester) Err() error {
	return in.err
}

func (in *Ingester) fail(path, format string, err error) {
	in.err = &ParseError{Source: string(in.Source), Path: path, Err: err}
	in.Progress.Report(format, err)
	LogDebug("%v", in.err)
}

// Items returns a single-use sequence of every element of the top-level
// JSON array in path, in document order. A top-level object counts as a
// one-element array. Parse failures end the sequence early; they are
// reported to the progress sink and kept for Err, never returned.
func (in *Ingester) Items(ctx context.Context, path string) iter.Seq[json.RawMessage] {
	return func(yield func(json.RawMessage) bool) {
		in.err = nil

		info, err := os.Stat(path)
		if err != nil {
			in.fail(path, "JSON parse error: %v", err)
			return
		}

		threshold := in.Threshold
		if threshold <= 0 {
			threshold = DefaultStreamingThreshold
		}

		var whole, streaming ingestStrategy = wholeFileStrategy{}, streamStrategy{}

		if info.Size() <= threshold {
			in.Progress.Report("Loading JSON file...")
			if err := whole.elements(ctx, path, yield); err != nil {
				in.fail(path, "JSON parse error: %v", err)
			}
			return
		}

		in.Progress.Report("Large file detected (%s), using streaming parser...", humanize.Bytes(uint64(info.Size())))

		yielded := 0
		stopped := false
		err = streaming.elements(ctx, path, func(raw json.RawMessage) bool {
			yielded++
			if !yield(raw) {
				stopped = true
				return false
			}
			return true
		})
		if err == nil || stopped || ctx.Err() != nil {
			return
		}

		in.Progress.Report("Streaming parse error: %v. Falling back to standard parser.", err)
		// Elements already handed out are not repeated
		skip := yielded
		err = whole.elements(ctx, path, func(raw json.RawMessage) bool {
			if skip > 0 {
				skip--
				return true
			}
			return yield(raw)
		})
		if err != nil {
			in.fail(path, "JSON parse error: %v", err)
		}
	}
}

// Objects is Items restricted to JSON objects; other array elements are
// skipped
func (in *Ingester) Objects(ctx context.Context, path string) iter.Seq[json.RawMessage] {
	return func(yield func(json.RawMessage) bool) {
		for raw := range in.Items(ctx, path) {
			if !isJSONObject(raw) {
				continue
			}
			if !yield(raw) {
				return
			}
		}
	}
}

// streamStrategy decodes one array element at a time
type streamStrategy struct{}

func (streamStrategy) elements(ctx context.Context, path string, yield func(json.RawMessage) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	if head, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = reader.Discard(len(utf8BOM))
	}

	dec := json.NewDecoder(reader)
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return errUnsupportedStructure
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if !yield(raw) {
			return nil
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("unterminated array: %w", err)
	}
	return nil
}

// wholeFileStrategy reads and validates the whole document at once
type wholeFileStrategy struct{}

func (wholeFileStrategy) elements(ctx context.Context, path string, yield func(json.RawMessage) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return errInvalidEncoding
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return io.ErrUnexpectedEOF
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !yield(item) {
				return nil
			}
		}
		return nil
	case '{':
		if !json.Valid(trimmed) {
			var v any
			return json.Unmarshal(trimmed, &v)
		}
		yield(json.RawMessage(trimmed))
		return nil
	default:
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		return nil
	}
}

// DecodeObject decodes a raw JSON object, keeping numbers as json.Number
func DecodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return obj, nil
}

// ProbeObjects reads at most limit bytes of path and decodes up to n
// leading objects of the array (or the single object) it starts with.
// Elements cut off by the limit are not returned. Any failure yields nil.
func ProbeObjects(path string, limit int64, n int) []map[string]any {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil
	}
	head = bytes.TrimSpace(bytes.TrimPrefix(head, utf8BOM))
	if len(head) == 0 || (head[0] != '[' && head[0] != '{') {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(head))
	dec.UseNumber()

	if head[0] == '{' {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil
		}
		return []map[string]any{obj}
	}

	if _, err := dec.Token(); err != nil {
		return nil
	}
	var items []map[string]any
	for i := 0; i < n && dec.More(); i++ {
		var item any
		if err := dec.Decode(&item); err != nil {
			break
		}
		if obj, ok := item.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
