package engine

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"golang.org/x/sync/errgroup"
)

// IgnoreFile lists patterns, in .dockerignore syntax, of project files that
// are not copied into the workspace volume.
const IgnoreFile = ".cradleignore"

// ignoreMatcher combines the project's ignore file with the extra patterns
// from settings. It returns nil when there is nothing to ignore.
func ignoreMatcher(projectPath string, extra []string) (*patternmatcher.PatternMatcher, error) {
	patterns := append([]string(nil), extra...)

	f, err := os.Open(filepath.Join(projectPath, IgnoreFile))
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		filePatterns, err := ignorefile.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
		}
		patterns = append(patterns, filePatterns...)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	if len(patterns) == 0 {
		return nil, nil
	}
	return patternmatcher.New(patterns)
}

// copyTree streams root/sub into the bootstrap container's volume mount,
// preserving paths relative to root. An empty sub copies all of root.
func (e *Engine) copyTree(ctx context.Context, containerID, root, sub string, pm *patternmatcher.PatternMatcher) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := writeTar(gctx, pw, root, sub, pm)
		_ = pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := e.deps.Runtime.CopyToContainer(gctx, containerID, bootstrapMountPath, pr)
		_ = pr.CloseWithError(err)
		return err
	})
	return g.Wait()
}

// writeTar writes the files under root/sub to w as a tar stream with names
// relative to root. Paths matched by pm are skipped.
func writeTar(ctx context.Context, w io.Writer, root, sub string, pm *patternmatcher.PatternMatcher) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(filepath.Join(root, sub), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if pm != nil {
			skip, err := pm.MatchesOrParentMatches(rel)
			if err != nil {
				return err
			}
			if skip {
				// Exclusion patterns (!foo) may re-include something below
				// an ignored directory, so only prune when there are none.
				if d.IsDir() && !pm.Exclusions() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return addTarEntry(tw, path, rel, d)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

func addTarEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	if info.Mode()&(fs.ModeSocket|fs.ModeNamedPipe|fs.ModeDevice|fs.ModeIrregular) != 0 {
		return nil
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(tw, f)
	return err
}
