package internal

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	jsonProbeBytes = 200_000
	jsonProbeItems = 5
	htmlProbeBytes = 10_000
)

// Detection is the outcome of source detection
type Detection struct {
	Source Source
	// Rule names the check that matched, empty when nothing did
	Rule string
	// Path is the archive-relative file that triggered the match
	Path string
}

// schemaRule maps a predicate over one probed JSON object to a source.
// Rules are evaluated in table order for each object and the first match wins.
type schemaRule struct {
	name   string
	source Source
	match  func(item map[string]any) bool
}

var schemaRules = []schemaRule{
	{
		name:   "mapping object",
		source: SourceChatGPT,
		match: func(item map[string]any) bool {
			_, ok := item["mapping"].(map[string]any)
			return ok
		},
	},
	{
		name:   "chat_messages field",
		source: SourceClaude,
		match:  func(item map[string]any) bool { return hasKeys(item, "chat_messages") },
	},
	{
		name:   "uuid and name fields",
		source: SourceClaude,
		match:  func(item map[string]any) bool { return hasKeys(item, "uuid", "name") },
	},
	{
		name:   "grok marker",
		source: SourceGrok,
		match: func(item map[string]any) bool {
			data, err := json.Marshal(item)
			return err == nil && strings.Contains(strings.ToLower(string(data)), "grok")
		},
	},
	{
		name:   "sender and conversation_id fields",
		source: SourceGrok,
		match:  func(item map[string]any) bool { return hasKeys(item, "sender", "conversation_id") },
	},
}

var htmlGeminiMarkers = []string{"gemini", "bard", "google ai"}

// DetectSource returns the provider that produced the archive extracted at root
func DetectSource(root string) Source {
	return Detect(root).Source
}

// Detect inspects an extracted archive and reports which provider produced
// it. Checks run in a fixed order: path markers, JSON schema probes, then
// HTML markers. Unreadable or malformed files never match.
func Detect(root string) Detection {
	files := ListFiles(root)

	for _, marker := range []struct {
		token  string
		source Source
	}{
		{"gemini", SourceGemini},
		{"grok", SourceGrok},
	} {
		for _, rel := range files {
			if strings.Contains(strings.ToLower(rel), marker.token) {
				return Detection{Source: marker.source, Rule: "path contains " + marker.token, Path: rel}
			}
		}
	}

	for _, rel := range files {
		if filepath.Ext(rel) != ".json" {
			continue
		}
		if source, rule := probeJSONSchema(filepath.Join(root, rel)); source != SourceUnknown {
			return Detection{Source: source, Rule: rule, Path: rel}
		}
	}

	for _, rel := range files {
		if filepath.Ext(rel) != ".html" {
			continue
		}
		if probeHTMLForGemini(filepath.Join(root, rel)) {
			return Detection{Source: SourceGemini, Rule: "html marker", Path: rel}
		}
	}

	return Detection{Source: SourceUnknown}
}

// ListFiles returns the root-relative paths of every file under root in
// lexical walk order. Unreadable directories are skipped.
func ListFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files
}

// FilesWithExt returns the absolute paths of files under root with the given
// extension, e.g. ".json"
func FilesWithExt(root, ext string) []string {
	var out []string
	for _, rel := range ListFiles(root) {
		if filepath.Ext(rel) == ext {
			out = append(out, filepath.Join(root, rel))
		}
	}
	return out
}

func probeJSONSchema(path string) (Source, string) {
	for _, item := range ProbeObjects(path, jsonProbeBytes, jsonProbeItems) {
		for _, rule := range schemaRules {
			if rule.match(item) {
				return rule.source, rule.name
			}
		}
	}
	return SourceUnknown, ""
}

func probeHTMLForGemini(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, htmlProbeBytes))
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(head))
	for _, marker := range htmlGeminiMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func hasKeys(item map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := item[key]; !ok {
			return false
		}
	}
	return true
}
