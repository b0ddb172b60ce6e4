package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	// ErrTargetMissing is returned when a replacement targets a file that
	// does not exist. Replacements never create files.
	ErrTargetMissing = errors.New("target file does not exist")
	// ErrSymlinkTarget is returned when the target, or a directory above it,
	// is a symlink that could carry a write outside the repository.
	ErrSymlinkTarget = errors.New("target is a symlink")
)

// Error represents a structured failure while touching the working copy. It
// satisfies the error interface so it can be returned directly from helpers.
type Error struct {
	Message      string
	RelativePath string
	Err          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "patch error"
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Result describes the outcome for a single file.
type Result struct {
	// Status is "M" when the file was rewritten and "=" when it already held
	// the replacement content.
	Status string
	Path   string
}

// Target resolves repoPath against root and returns its absolute path when
// it names an existing regular file inside root. Symlinked targets are
// refused.
func Target(root, repoPath string) (string, error) {
	abs, _, err := statTarget(root, repoPath)
	return abs, err
}

// Replace overwrites the existing file at repoPath (relative to root) with
// content, preserving its permission bits.
func Replace(root, repoPath string, content []byte) (Result, error) {
	abs, info, err := statTarget(root, repoPath)
	if err != nil {
		return Result{}, err
	}

	current, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, &Error{Message: fmt.Sprintf("failed to read %s: %v", repoPath, err), RelativePath: repoPath, Err: err}
	}
	if bytes.Equal(current, content) {
		return Result{Status: "=", Path: repoPath}, nil
	}

	perm := info.Mode() & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(abs, content, perm); err != nil {
		return Result{}, &Error{Message: fmt.Sprintf("failed to write %s: %v", repoPath, err), RelativePath: repoPath, Err: err}
	}

	// WriteFile only applies perm on create; restore special bits and any
	// drift caused by the umask.
	desired := info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	after, statErr := os.Stat(abs)
	if statErr != nil {
		return Result{}, &Error{Message: fmt.Sprintf("failed to stat %s after write: %v", repoPath, statErr), RelativePath: repoPath, Err: statErr}
	}
	if after.Mode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky) != desired {
		if err := os.Chmod(abs, desired); err != nil {
			return Result{}, &Error{Message: fmt.Sprintf("failed to restore permissions for %s: %v", repoPath, err), RelativePath: repoPath, Err: err}
		}
	}

	return Result{Status: "M", Path: repoPath}, nil
}

// statTarget checks the target without following a final symlink, then makes
// sure its parent directory still resolves inside root.
func statTarget(root, repoPath string) (string, fs.FileInfo, error) {
	abs, err := resolvePath(root, repoPath)
	if err != nil {
		return "", nil, err
	}
	fail := func(msg string, cause error) (string, fs.FileInfo, error) {
		return abs, nil, &Error{Message: msg, RelativePath: repoPath, Err: cause}
	}

	info, err := os.Lstat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fail(ErrTargetMissing.Error(), ErrTargetMissing)
	case err != nil:
		return fail(fmt.Sprintf("failed to stat %s: %v", repoPath, err), err)
	case info.Mode()&fs.ModeSymlink != 0:
		return fail(fmt.Sprintf("refusing to replace symlink %s", repoPath), ErrSymlinkTarget)
	case info.IsDir():
		return fail(fmt.Sprintf("cannot replace directory %s", repoPath), ErrTargetMissing)
	case !info.Mode().IsRegular():
		return fail(fmt.Sprintf("cannot replace non-regular file %s", repoPath), ErrTargetMissing)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fail(fmt.Sprintf("failed to resolve repository root: %v", err), err)
	}
	realDir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return fail(fmt.Sprintf("failed to resolve %s: %v", repoPath, err), err)
	}
	rel, err := filepath.Rel(realRoot, realDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fail(fmt.Sprintf("refusing to replace %s: it resolves outside the repository", repoPath), ErrSymlinkTarget)
	}
	return abs, info, nil
}

func resolvePath(root, repoPath string) (string, error) {
	rel := strings.TrimSpace(repoPath)
	if err := validateRepoPath(rel); err != nil {
		return "", &Error{Message: err.Error(), RelativePath: repoPath, Err: err}
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}
