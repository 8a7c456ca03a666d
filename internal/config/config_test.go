package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvOutput, EnvCacheDir, EnvStreamingThreshold, EnvGroupBy, EnvFilenameStyle} {
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, value) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
		_ = os.Unsetenv(key)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.OutputDir != "./output" {
		t.Errorf("OutputDir = %q, want ./output", cfg.OutputDir)
	}
	if filepath.Base(cfg.CacheDir) != ".chatvault-cache" {
		t.Errorf("CacheDir = %q, want a .chatvault-cache directory", cfg.CacheDir)
	}
	if cfg.GroupBy != "platform" || cfg.FilenameStyle != "date_title" {
		t.Errorf("GroupBy = %q, FilenameStyle = %q", cfg.GroupBy, cfg.FilenameStyle)
	}
	if cfg.StreamingThresholdMB != 50 || cfg.StreamingThresholdBytes() != 50*1024*1024 {
		t.Errorf("StreamingThresholdMB = %d", cfg.StreamingThresholdMB)
	}
}

func TestLoadFrom_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOutput, "/tmp/vault")
	t.Setenv(EnvCacheDir, "/tmp/cache")
	t.Setenv(EnvStreamingThreshold, "5")
	t.Setenv(EnvGroupBy, "month")
	t.Setenv(EnvFilenameStyle, "id_only")

	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))

	want := Config{
		OutputDir:            "/tmp/vault",
		CacheDir:             "/tmp/cache",
		GroupBy:              "month",
		FilenameStyle:        "id_only",
		StreamingThresholdMB: 5,
	}
	if *cfg != want {
		t.Errorf("LoadFrom() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadFrom_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGroupBy, "year")
	path := filepath.Join(t.TempDir(), ".env")
	content := "CHATVAULT_OUTPUT=/data/vault\nCHATVAULT_GROUP_BY=model\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg := LoadFrom(path)

	if cfg.OutputDir != "/data/vault" {
		t.Errorf("OutputDir = %q, want the file value", cfg.OutputDir)
	}
	if cfg.GroupBy != "year" {
		t.Errorf("GroupBy = %q, want the environment to win over the file", cfg.GroupBy)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
	}{
		{"valid", "200", 200},
		{"padded", " 7 ", 7},
		{"malformed", "lots", 50},
		{"zero", "0", 50},
		{"negative", "-3", 50},
		{"empty", "", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvStreamingThreshold, tt.value)
			if got := getEnvInt(EnvStreamingThreshold, 50); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}
