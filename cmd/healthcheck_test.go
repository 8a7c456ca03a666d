package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	vault := buildVault(t)
	empty := t.TempDir()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "vault with catalog",
			args: []string{"healthcheck", vault},
			want: []string{"Health Check", "Vault: " + vault, "Catalog records 1 conversion(s)", "Newest: 1 Claude conversation(s)"},
		},
		{
			name: "directory without catalog",
			args: []string{"healthcheck", empty},
			want: []string{"No catalog yet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("healthcheck error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestHealthcheckCommand_CorruptCatalog(t *testing.T) {
	vault := t.TempDir()
	if err := os.WriteFile(filepath.Join(vault, "catalog.db"), []byte("not a database"), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	out, err := executeCommand(t, "healthcheck", vault)
	if err == nil {
		t.Fatal("healthcheck should fail on a corrupt catalog")
	}
	if !strings.Contains(out, "Catalog unreadable") {
		t.Errorf("output missing the failure line:\n%s", out)
	}
}

func TestHealthcheckCommand_TooManyArgs(t *testing.T) {
	if _, err := executeCommand(t, "healthcheck", "a", "b"); err == nil {
		t.Error("healthcheck should accept at most one argument")
	}
}
