package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const rcFile = ".cradlerc"

// cradleRC holds project defaults loaded from a .cradlerc file.
type cradleRC struct {
	Config string // devcontainer config directory (same as --config / -C)
	Name   string // project name (same as spawn --name)

	// Copy and Editor, when set, override the copy_source_files and
	// launch_editor settings for this project.
	Copy   *bool
	Editor *bool
}

// loadCradleRC reads .cradlerc from dir. Returns nil, nil if not found.
func loadCradleRC(dir string) (*cradleRC, error) {
	f, err := os.Open(filepath.Join(dir, rcFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parseCradleRC(f)
}

// parseCradleRC parses simple "key = value" pairs; lines starting with #
// are comments and unknown keys are ignored.
func parseCradleRC(r io.Reader) (*cradleRC, error) {
	rc := &cradleRC{}
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "config":
			rc.Config = val
		case "name":
			rc.Name = val
		case "copy":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: copy: %w", rcFile, n, err)
			}
			rc.Copy = &b
		case "editor":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: editor: %w", rcFile, n, err)
			}
			rc.Editor = &b
		}
	}
	return rc, scanner.Err()
}
