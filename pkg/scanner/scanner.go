// Package scanner discovers candidate files under a set of root paths. It
// walks directories recursively, skipping hidden entries, well-known system
// directories, configurable exclusion patterns, oversized files, and
// symlinked directories, and deduplicates results by canonical path.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/logger"
)

// ErrInvalidPath marks a missing or unreadable root path. It is the only
// fatal error class in the pipeline.
var ErrInvalidPath = errors.New("invalid input path")

// Directories that never contain user content worth organizing.
var skipDirs = map[string]bool{
	"__pycache__": true, "node_modules": true, ".git": true, ".svn": true,
	".hg": true, "venv": true, "env": true, ".venv": true, ".env": true,
	"build": true, "dist": true, "target": true, "out": true,
	".idea": true, ".vscode": true, ".vs": true, "bin": true, "obj": true,
	".cache": true, ".pytest_cache": true, ".mypy_cache": true,
	".tox": true, ".eggs": true,
}

var skipFiles = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, "desktop.ini": true,
}

// Scanner enumerates candidate file paths.
type Scanner struct {
	// Exclude holds doublestar patterns matched against the path relative
	// to the scanned root, e.g. "**/*.tmp".
	Exclude     []string
	MaxFileSize int64
	Recursive   bool
}

// New returns a Scanner with the given exclusion patterns and size limit.
func New(exclude []string, maxFileSize int64, recursive bool) *Scanner {
	return &Scanner{Exclude: exclude, MaxFileSize: maxFileSize, Recursive: recursive}
}

// Scan validates each root and enumerates files beneath it. A missing or
// unreadable root fails the whole scan with an ErrInvalidPath-wrapped error;
// everything else is skipped silently or logged. The returned slice is
// sorted and deduplicated by canonical path.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]string, error) {
	log := logger.G(ctx)

	seen := map[string]bool{}
	var out []string

	add := func(p string, size int64) {
		if s.MaxFileSize > 0 && size > s.MaxFileSize {
			log.WithField("path", p).WithField("size", size).Debug("skipping oversized file")
			return
		}
		canonical, err := filepath.EvalSymlinks(p)
		if err != nil {
			canonical = filepath.Clean(p)
		}
		if seen[canonical] {
			return
		}
		seen[canonical] = true
		out = append(out, canonical)
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPath, "%s: %v", root, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPath, "%s: %v", root, err)
		}

		if !info.IsDir() {
			add(abs, info.Size())
			continue
		}

		// Readability check up front so an inaccessible root is fatal
		// rather than silently empty.
		if _, err := os.ReadDir(abs); err != nil {
			return nil, errors.Wrapf(ErrInvalidPath, "%s: %v", root, err)
		}

		if err := s.walkRoot(ctx, abs, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

func (s *Scanner) walkRoot(ctx context.Context, root string, add func(string, int64)) error {
	log := logger.G(ctx)

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// Unreadable subdirectories are non-fatal; only the root
			// itself aborts the scan.
			log.WithError(err).WithField("path", p).Debug("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if p == root {
				return nil
			}
			if !s.Recursive {
				return fs.SkipDir
			}
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return fs.SkipDir
			}
			// WalkDir does not follow directory symlinks, but a root
			// reached through one could still loop; skip them outright.
			if d.Type()&fs.ModeSymlink != 0 {
				return fs.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || skipFiles[name] {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = name
		}
		if s.excluded(filepath.ToSlash(rel)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.WithError(err).WithField("path", p).Debug("skipping statless entry")
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		add(p, info.Size())
		return nil
	})
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
