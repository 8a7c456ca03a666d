package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheVersion = "1.0"

// CacheManager caches parsed conversations per export archive. Each archive
// gets its own entry directory holding a YAML index and a JSON file of
// conversations; an entry is valid while the archive's path, size and
// modification time are unchanged.
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about a cache entry
type CacheMetadata struct {
	ArchivePath    string    `json:"archive_path" yaml:"archive_path"`
	ArchiveModTime time.Time `json:"archive_mod_time" yaml:"archive_mod_time"`
	ArchiveSize    int64     `json:"archive_size" yaml:"archive_size"`
	Source         Source    `json:"source" yaml:"source"`
	CacheVersion   string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// ConversationIndexEntry represents a conversation entry in the index
type ConversationIndexEntry struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title,omitempty"`
	CreatedAt    string `yaml:"created_at,omitempty"`
	MessageCount int    `yaml:"message_count"`
}

// ConversationIndex represents the YAML index of a cache entry
type ConversationIndex struct {
	Conversations []ConversationIndexEntry `yaml:"conversations"`
	Metadata      CacheMetadata            `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetEntryDir returns the cache entry directory for an archive
func (cm *CacheManager) GetEntryDir(archivePath string) string {
	return filepath.Join(cm.cacheDir, cacheKey(archivePath))
}

// GetIndexPath returns the path to an archive's index YAML file
func (cm *CacheManager) GetIndexPath(archivePath string) string {
	return filepath.Join(cm.GetEntryDir(archivePath), "index.yaml")
}

// GetConversationsPath returns the path to an archive's cached conversations
func (cm *CacheManager) GetConversationsPath(archivePath string) string {
	return filepath.Join(cm.GetEntryDir(archivePath), "conversations.json")
}

// IsCacheValid checks if the cache entry matches the archive on disk
func (cm *CacheManager) IsCacheValid(archivePath string) (bool, error) {
	index, err := cm.LoadIndex(archivePath)
	if err != nil {
		return false, nil
	}

	if index.Metadata.CacheVersion != cacheVersion {
		return false, nil
	}
	if index.Metadata.ArchivePath != absPath(archivePath) {
		return false, nil
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return false, nil
	}
	if info.Size() != index.Metadata.ArchiveSize || !index.Metadata.ArchiveModTime.Equal(info.ModTime()) {
		return false, nil
	}

	if _, err := os.Stat(cm.GetConversationsPath(archivePath)); err != nil {
		return false, nil
	}
	return true, nil
}

// LoadIndex loads an archive's index
func (cm *CacheManager) LoadIndex(archivePath string) (*ConversationIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath(archivePath))
	if err != nil {
		return nil, err
	}

	var index ConversationIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// Save stores the parsed conversations of an archive and rewrites its index
func (cm *CacheManager) Save(archivePath string, source Source, conversations []Conversation) error {
	info, err := os.Stat(archivePath)
	if err != nil {
		return err
	}

	entryDir := cm.GetEntryDir(archivePath)
	if err := os.MkdirAll(entryDir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	if err := os.WriteFile(cm.GetConversationsPath(archivePath), data, 0644); err != nil {
		return err
	}

	index := ConversationIndex{
		Conversations: make([]ConversationIndexEntry, 0, len(conversations)),
		Metadata: CacheMetadata{
			ArchivePath:    absPath(archivePath),
			ArchiveModTime: info.ModTime(),
			ArchiveSize:    info.Size(),
			Source:         source,
			CacheVersion:   cacheVersion,
			CreatedAt:      time.Now(),
		},
	}
	for _, conv := range conversations {
		index.Conversations = append(index.Conversations, ConversationIndexEntry{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    formatTimestamp(conv.CreatedAt),
			MessageCount: conv.MessageCount(),
		})
	}

	indexData, err := yaml.Marshal(&index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(cm.GetIndexPath(archivePath), indexData, 0644)
}

// Load returns the cached source and conversations of an archive. Callers
// check IsCacheValid first.
func (cm *CacheManager) Load(archivePath string) (Source, []Conversation, error) {
	index, err := cm.LoadIndex(archivePath)
	if err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(cm.GetConversationsPath(archivePath))
	if err != nil {
		return "", nil, err
	}

	var conversations []Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal conversations: %w", err)
	}

	// Empty metadata maps are omitted on disk
	kept := conversations[:0]
	for _, conv := range conversations {
		if conv.Finalize() {
			kept = append(kept, conv)
		}
	}

	return index.Metadata.Source, kept, nil
}

// ClearCache removes every cache entry
func (cm *CacheManager) ClearCache() error {
	entries, err := os.ReadDir(cm.cacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cm.cacheDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "index.yaml")); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// cacheKey derives a stable directory name from an archive's absolute path
func cacheKey(archivePath string) string {
	sum := sha256.Sum256([]byte(absPath(archivePath)))
	return hex.EncodeToString(sum[:8])
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
