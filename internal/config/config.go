// Package config resolves command defaults from the environment and an
// optional .env file. Command-line flags override every value here.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load
const (
	EnvOutput             = "CHATVAULT_OUTPUT"
	EnvCacheDir           = "CHATVAULT_CACHE_DIR"
	EnvStreamingThreshold = "CHATVAULT_STREAMING_THRESHOLD_MB"
	EnvGroupBy            = "CHATVAULT_GROUP_BY"
	EnvFilenameStyle      = "CHATVAULT_FILENAME_STYLE"
)

const (
	defaultOutput        = "./output"
	defaultCacheDirName  = ".chatvault-cache"
	defaultThresholdMB   = 50
	defaultGroupBy       = "platform"
	defaultFilenameStyle = "date_title"
	bytesPerMB           = 1024 * 1024
)

// Config holds the defaults for a conversion
type Config struct {
	OutputDir     string
	CacheDir      string
	GroupBy       string
	FilenameStyle string

	// StreamingThresholdMB is the JSON file size above which parsing is
	// incremental
	StreamingThresholdMB int64
}

// Load reads .env from the working directory if it exists, then the
// environment
func Load() *Config {
	return LoadFrom()
}

// LoadFrom is Load with explicit .env files. Variables already set in the
// environment win over file values.
func LoadFrom(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		OutputDir:            getEnv(EnvOutput, defaultOutput),
		CacheDir:             getEnv(EnvCacheDir, defaultCacheDir()),
		GroupBy:              getEnv(EnvGroupBy, defaultGroupBy),
		FilenameStyle:        getEnv(EnvFilenameStyle, defaultFilenameStyle),
		StreamingThresholdMB: getEnvInt(EnvStreamingThreshold, defaultThresholdMB),
	}
}

// StreamingThresholdBytes returns the streaming threshold in bytes
func (c *Config) StreamingThresholdBytes() int64 {
	return c.StreamingThresholdMB * bytesPerMB
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultCacheDirName
	}
	return filepath.Join(home, defaultCacheDirName)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue for unset, malformed or non-positive values
func getEnvInt(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
