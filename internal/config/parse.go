package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Find searches for a devcontainer.json starting from the given folder.
// Search order:
//  1. .devcontainer/devcontainer.json
//  2. .devcontainer.json
//  3. .devcontainer/{subfolder}/devcontainer.json (one level deep, first in
//     directory order)
//
// Returns the absolute path to the config file, or empty string if not found.
func Find(folder string) (string, error) {
	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("resolving folder path: %w", err)
	}

	candidates := []string{
		filepath.Join(absFolder, ".devcontainer", "devcontainer.json"),
		filepath.Join(absFolder, ".devcontainer.json"),
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}

	devcontainerDir := filepath.Join(absFolder, ".devcontainer")
	entries, err := os.ReadDir(devcontainerDir)
	if err != nil {
		return "", nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p := filepath.Join(devcontainerDir, entry.Name(), "devcontainer.json")
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// Parse reads and parses a devcontainer.json file at the given path.
// Supports JSONC (comments and trailing commas).
func Parse(path string) (*DevContainerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Origin = absPath
	return cfg, nil
}

// ParseBytes parses devcontainer.json content from bytes.
func ParseBytes(data []byte) (*DevContainerConfig, error) {
	var cfg DevContainerConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ResolveConfigPath accepts either a devcontainer.json file or a directory
// containing one and returns the absolute file path.
func ResolveConfigPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if !info.IsDir() {
		return abs, nil
	}
	for _, name := range []string{"devcontainer.json", ".devcontainer.json"} {
		p := filepath.Join(abs, name)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, abs)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
