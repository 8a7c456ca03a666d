package adapters

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iksnae/chatvault/internal"
)

// progressEvery is how often adapters report a running conversation count
const progressEvery = 50

// roleTable maps raw provider role strings to canonical roles
type roleTable map[string]internal.Role

func (rt roleTable) resolve(raw string, fallback internal.Role) internal.Role {
	if role, ok := rt[raw]; ok {
		return role
	}
	return fallback
}

// pick returns the first truthy value among keys, or nil
func pick(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v := raw[key]; internal.Truthy(v) {
			return v
		}
	}
	return nil
}

// pickString is pick rendered as text, falling back to def
func pickString(raw map[string]any, def string, keys ...string) string {
	if v := pick(raw, keys...); v != nil {
		return internal.Stringify(v)
	}
	return def
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func lower(v any) string {
	return strings.ToLower(internal.Stringify(v))
}

// parseTime accepts either an ISO 8601 string or epoch seconds
func parseTime(v any) *time.Time {
	if t := internal.TimeFromISO(v); t != nil {
		return t
	}
	return internal.TimeFromEpoch(v)
}

func firstTime(times ...*time.Time) *time.Time {
	for _, t := range times {
		if t != nil {
			return t
		}
	}
	return nil
}

// elements yields every array element of a file through the ingester,
// decoded as an object. Elements that are not objects yield nil.
func elements(ctx context.Context, source internal.Source, path string, threshold int64, progress internal.Progress) iter.Seq[map[string]any] {
	in := &internal.Ingester{Threshold: threshold, Progress: progress, Source: source}
	return func(yield func(map[string]any) bool) {
		for raw := range in.Items(ctx, path) {
			obj, _ := internal.DecodeObject(raw)
			if !yield(obj) {
				return
			}
		}
	}
}

// objects yields every decodable JSON object of a file through the ingester
func objects(ctx context.Context, source internal.Source, path string, threshold int64, progress internal.Progress) iter.Seq[map[string]any] {
	return func(yield func(map[string]any) bool) {
		for obj := range elements(ctx, source, path, threshold, progress) {
			if obj == nil {
				continue
			}
			if !yield(obj) {
				return
			}
		}
	}
}

// readText reads a whole file as text, replacing invalid UTF-8
func readText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		internal.LogDebug("Skipping %s: %v", path, err)
		return "", false
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), true
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
