package engine

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgrehm/cradle/internal/config"
)

// upOutput is the result line `devcontainer up` prints on stdout.
type upOutput struct {
	Outcome               string `json:"outcome"`
	ContainerID           string `json:"containerId"`
	RemoteUser            string `json:"remoteUser"`
	RemoteWorkspaceFolder string `json:"remoteWorkspaceFolder"`
	Message               string `json:"message"`
	Description           string `json:"description"`
}

func (o *upOutput) errorText() string {
	switch {
	case o.Message != "" && o.Description != "":
		return o.Message + ": " + o.Description
	case o.Message != "":
		return o.Message
	case o.Description != "":
		return o.Description
	}
	return "no details"
}

// parseUpOutput finds the last JSON object carrying an outcome in stdout.
// Log lines interleaved with it are ignored.
func parseUpOutput(stdout string) (*upOutput, error) {
	var found *upOutput
	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var out upOutput
		if err := json.Unmarshal([]byte(line), &out); err != nil || out.Outcome == "" {
			continue
		}
		found = &out
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.New("no result found in devcontainer up output")
	}
	return found, nil
}

// configSubtree returns the part of the project that holds the devcontainer
// config, relative to projectPath: the config directory, or only the file
// when it sits in the project root. ok is false when the config lives
// outside the project.
func configSubtree(projectPath, configPath string) (sub string, ok bool) {
	rel, err := filepath.Rel(projectPath, filepath.Dir(configPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return filepath.Base(configPath), true
	}
	return rel, true
}

// stageConfig copies the devcontainer config into stagingDir and rewrites
// devcontainer.json for the workspace volume. The whole config directory
// is copied so files it references (Dockerfiles, local features) come along;
// a config in the project root is copied alone. Returns the path of the
// staged devcontainer.json.
func stageConfig(projectPath, configPath, stagingDir string, r config.VolumeRewrite) (string, error) {
	configDir := filepath.Dir(configPath)
	if sub, ok := configSubtree(projectPath, configPath); ok && sub != filepath.Base(configPath) {
		if err := copyDir(configDir, stagingDir); err != nil {
			return "", fmt.Errorf("copying %s: %w", configDir, err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", err
	}
	rewritten, err := config.RewriteForVolume(data, r)
	if err != nil {
		return "", err
	}

	staged := filepath.Join(stagingDir, filepath.Base(configPath))
	if err := os.WriteFile(staged, rewritten, 0o644); err != nil {
		return "", err
	}
	return staged, nil
}

// copyDir copies the regular files and directories under src into dst.
// Symlinks are followed for files and skipped for directories.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
