package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, dir string)
		wantFile string
	}{
		{
			"devcontainer/devcontainer.json",
			func(t *testing.T, dir string) {
				t.Helper()
				writeFile(t, filepath.Join(dir, ".devcontainer", "devcontainer.json"), `{"image":"ubuntu"}`)
			},
			filepath.Join(".devcontainer", "devcontainer.json"),
		},
		{
			".devcontainer.json at root",
			func(t *testing.T, dir string) {
				t.Helper()
				writeFile(t, filepath.Join(dir, ".devcontainer.json"), `{"image":"ubuntu"}`)
			},
			".devcontainer.json",
		},
		{
			"subfolder config",
			func(t *testing.T, dir string) {
				t.Helper()
				writeFile(t, filepath.Join(dir, ".devcontainer", "python", "devcontainer.json"), `{"image":"python"}`)
			},
			filepath.Join(".devcontainer", "python", "devcontainer.json"),
		},
		{
			"prefers .devcontainer/ over .devcontainer.json",
			func(t *testing.T, dir string) {
				t.Helper()
				writeFile(t, filepath.Join(dir, ".devcontainer", "devcontainer.json"), `{"image":"ubuntu"}`)
				writeFile(t, filepath.Join(dir, ".devcontainer.json"), `{"image":"other"}`)
			},
			filepath.Join(".devcontainer", "devcontainer.json"),
		},
		{
			"no config found",
			func(t *testing.T, dir string) { t.Helper() },
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			got, err := Find(dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantFile == "" {
				if got != "" {
					t.Errorf("expected empty, got %q", got)
				}
				return
			}
			if want := filepath.Join(dir, tt.wantFile); got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devcontainer.json")
	writeFile(t, path, `{
		// JSONC is accepted
		"name": "app",
		"build": {"dockerfile": "Dockerfile", "context": ".."},
		"workspaceFolder": "/workspace",
		"features": {"ghcr.io/devcontainers/features/go:1": {}},
	}`)

	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "app" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Build == nil || cfg.Build.Dockerfile != "Dockerfile" || cfg.Build.Context != ".." {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Origin != path {
		t.Errorf("Origin = %q, want %q", cfg.Origin, path)
	}
	if cfg.Kind() != KindDockerfile {
		t.Errorf("Kind = %q", cfg.Kind())
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, path, `{invalid json}`)

	if _, err := Parse(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParse_NonexistentFile(t *testing.T) {
	if _, err := Parse("/nonexistent/devcontainer.json"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestKindAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		kind    Kind
		wantErr error
		invalid bool
	}{
		{"image", `{"image":"node:20"}`, KindImage, nil, false},
		{"build object", `{"build":{"dockerfile":"Dockerfile"}}`, KindDockerfile, nil, false},
		{"legacy dockerFile", `{"dockerFile":"Dockerfile"}`, KindDockerfile, nil, false},
		{"compose string", `{"dockerComposeFile":"docker-compose.yml","service":"app"}`, KindCompose, ErrComposeUnsupported, true},
		{"compose list", `{"dockerComposeFile":["a.yml","b.yml"],"service":"app"}`, KindCompose, ErrComposeUnsupported, true},
		{"nothing", `{"name":"empty"}`, KindImage, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseBytes([]byte(tt.json))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Kind() != tt.kind {
				t.Errorf("Kind = %q, want %q", cfg.Kind(), tt.kind)
			}
			err = cfg.Validate()
			if tt.invalid != (err != nil) {
				t.Errorf("Validate() = %v, invalid=%v", err, tt.invalid)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".devcontainer")
	writeFile(t, filepath.Join(cfgDir, "devcontainer.json"), `{"image":"x"}`)

	got, err := ResolveConfigPath(cfgDir)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if want := filepath.Join(cfgDir, "devcontainer.json"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = ResolveConfigPath(filepath.Join(cfgDir, "devcontainer.json"))
	if err != nil || got != filepath.Join(cfgDir, "devcontainer.json") {
		t.Errorf("file: got %q, %v", got, err)
	}

	if _, err := ResolveConfigPath(dir); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a dir without config, got %v", err)
	}
	if _, err := ResolveConfigPath(filepath.Join(dir, "missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing path, got %v", err)
	}
}

// --- Test helpers ---

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
