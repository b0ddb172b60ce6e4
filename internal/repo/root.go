// Package repo resolves the repository root once at startup and exposes small
// helpers for inspecting files relative to it.
package repo

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when no enclosing version-control checkout is
// found.
var ErrNotRepository = errors.New("not inside a git checkout")

// Root is an immutable handle on the repository root. Both workflows receive
// the same value rather than looking the root up themselves.
type Root struct {
	path     string
	lookPath func(string) (string, error)
}

// New constructs a Root at the provided path without any discovery. Commands
// are resolved using exec.LookPath by default.
func New(path string) Root {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Root{path: path, lookPath: exec.LookPath}
}

// NewWithLookPath allows tests to override the command lookup implementation
// so that tool checks can be exercised without relying on the host PATH.
func NewWithLookPath(path string, lookPath func(string) (string, error)) Root {
	root := New(path)
	if lookPath != nil {
		root.lookPath = lookPath
	}
	return root
}

// Discover walks up from start until it finds a directory containing a
// ".git" entry (directory for a regular checkout, file for a worktree).
func Discover(start string) (Root, error) {
	if strings.TrimSpace(start) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Root{}, fmt.Errorf("failed to determine working directory: %w", err)
		}
		start = wd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return Root{}, fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return New(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Root{}, fmt.Errorf("%w: %s", ErrNotRepository, start)
		}
		dir = parent
	}
}

// Path returns the absolute root directory.
func (r Root) Path() string {
	return r.path
}

// Join resolves a slash-separated, root-relative path to an absolute path.
func (r Root) Join(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(r.path, filepath.FromSlash(relPath))
}

// Rel returns abs relative to the root using forward slashes. Paths outside
// the root are returned unchanged.
func (r Root) Rel(abs string) string {
	rel, err := filepath.Rel(r.path, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// HasFile reports whether a file exists relative to the repository root.
func (r Root) HasFile(relPath string) bool {
	if relPath == "" {
		return false
	}
	info, err := os.Stat(r.Join(relPath))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// HasDir reports whether a directory exists relative to the repository root.
func (r Root) HasDir(relPath string) bool {
	if relPath == "" {
		return false
	}
	info, err := os.Stat(r.Join(relPath))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CommandExists reports whether a command is available on PATH.
func (r Root) CommandExists(name string) bool {
	if name == "" || r.lookPath == nil {
		return false
	}
	_, err := r.lookPath(name)
	return err == nil
}
