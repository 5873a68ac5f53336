package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thiagokokada/doublegit-go/internal/git/backend"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    *Config
		wantErr string
	}{
		{
			name:  "github",
			input: `{"type": "github", "owner": "remram44", "repo": "doublegit"}`,
			want:  &Config{Type: "github", Settings: []byte(`{"owner":"remram44","repo":"doublegit"}`)},
		},
		{
			name:  "backend override",
			input: `{"type": "git", "backend": "GitCLI"}`,
			want:  &Config{Type: "git", Backend: backend.KindGitCLI, Settings: []byte(`{}`)},
		},
		{
			name:  "yaml is accepted",
			input: "type: git\nurl: https://example.com/r.git\n",
			want:  &Config{Type: "git", Settings: []byte(`{"url":"https://example.com/r.git"}`)},
		},
		{name: "empty", input: ``, wantErr: "expected an object"},
		{name: "array", input: `[1, 2]`, wantErr: "invalid config"},
		{name: "missing type", input: `{"owner": "x"}`, wantErr: `missing string "type"`},
		{name: "type not a string", input: `{"type": 3}`, wantErr: `missing string "type"`},
		{name: "unknown backend", input: `{"type": "git", "backend": "libgit2"}`, wantErr: "unknown backend"},
		{name: "backend not a string", input: `{"type": "git", "backend": true}`, wantErr: `"backend" must be a string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Load(dir); !errors.Is(err, ErrNotTracked) {
		t.Fatalf("Load(untracked) error = %v, want ErrNotTracked", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{"type": "git"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Type != "git" {
		t.Fatalf("Type = %q", cfg.Type)
	}

	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, FileName), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	if err == nil || errors.Is(err, ErrNotTracked) || !strings.Contains(err.Error(), FileName) {
		t.Fatalf("Load(malformed) error = %v", err)
	}
}

func TestResolveBackend(t *testing.T) {
	cfg := &Config{Type: "git"}

	t.Setenv(BackendEnv, "")
	if got, err := cfg.ResolveBackend(""); err != nil || got != backend.KindNative {
		t.Fatalf("default = %q, %v", got, err)
	}

	t.Setenv(BackendEnv, "gitcli")
	if got, err := cfg.ResolveBackend(""); err != nil || got != backend.KindGitCLI {
		t.Fatalf("env = %q, %v", got, err)
	}

	cfg.Backend = backend.KindNative
	if got, _ := cfg.ResolveBackend(""); got != backend.KindNative {
		t.Fatalf("marker should win over env, got %q", got)
	}
	if got, _ := cfg.ResolveBackend(backend.KindGitCLI); got != backend.KindGitCLI {
		t.Fatalf("override should win, got %q", got)
	}

	t.Setenv(BackendEnv, "bogus")
	cfg.Backend = ""
	if _, err := cfg.ResolveBackend(""); err == nil {
		t.Fatal("expected error for bogus env backend")
	}
}
