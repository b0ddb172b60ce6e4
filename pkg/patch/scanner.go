package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDirMissing is returned when the staging directory does not exist.
	ErrDirMissing = errors.New("patch directory does not exist")
	// ErrDirEmpty is returned when the staging directory holds no recognized
	// artifacts.
	ErrDirEmpty = errors.New("patch directory contains no artifacts")
)

// Artifact is a single staged file.
type Artifact struct {
	// Name is the on-disk, encoded filename.
	Name string
	Kind Kind
	// Path is the decoded repository-relative target (slash separated).
	Path string
	// FullPath is the artifact's location on disk.
	FullPath string
}

// Read loads the artifact content.
func (a Artifact) Read() ([]byte, error) {
	data, err := os.ReadFile(a.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", a.Name, err)
	}
	return data, nil
}

// Rejection records a file that carried a recognized suffix but could not be
// decoded into a usable repository path.
type Rejection struct {
	Name   string
	Reason error
}

// Scanner lists staged artifacts in a directory.
type Scanner struct {
	dir   string
	codec Codec
}

// NewScanner returns a scanner for dir using codec to decode names.
func NewScanner(dir string, codec Codec) *Scanner {
	return &Scanner{dir: dir, codec: codec.withDefaults()}
}

// Dir returns the directory being scanned.
func (s *Scanner) Dir() string {
	return s.dir
}

// Codec returns the codec used to decode names.
func (s *Scanner) Codec() Codec {
	return s.codec
}

// Listing is a snapshot of the artifact names present in a directory.
// Artifact content is only read on demand.
type Listing struct {
	Dir       string
	Artifacts []Artifact
	Rejected  []Rejection
}

// Scan lists the directory. Each call re-reads the directory, so repeated
// scans of an unchanged directory yield the same listing. Entries are
// returned in filename order.
func (s *Scanner) Scan() (Listing, error) {
	info, err := os.Stat(s.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Listing{}, fmt.Errorf("%w: %s", ErrDirMissing, s.dir)
	case err != nil:
		return Listing{}, fmt.Errorf("stat %s: %w", s.dir, err)
	case !info.IsDir():
		return Listing{}, fmt.Errorf("%w: %s is not a directory", ErrDirMissing, s.dir)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Listing{}, fmt.Errorf("read %s: %w", s.dir, err)
	}

	listing := Listing{Dir: s.dir}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := s.codec.KindOf(name); !ok {
			continue
		}
		kind, repoPath, decodeErr := s.codec.Decode(name)
		if decodeErr != nil {
			listing.Rejected = append(listing.Rejected, Rejection{Name: name, Reason: decodeErr})
			continue
		}
		listing.Artifacts = append(listing.Artifacts, Artifact{
			Name:     name,
			Kind:     kind,
			Path:     repoPath,
			FullPath: filepath.Join(s.dir, name),
		})
	}

	if len(listing.Artifacts) == 0 && len(listing.Rejected) == 0 {
		return listing, fmt.Errorf("%w: %s", ErrDirEmpty, s.dir)
	}
	return listing, nil
}

// All yields every artifact in scan order.
func (l Listing) All() iter.Seq[Artifact] {
	return func(yield func(Artifact) bool) {
		for _, artifact := range l.Artifacts {
			if !yield(artifact) {
				return
			}
		}
	}
}

// OfKind yields only artifacts of the given kind, in scan order.
func (l Listing) OfKind(kind Kind) iter.Seq[Artifact] {
	return func(yield func(Artifact) bool) {
		for artifact := range l.All() {
			if artifact.Kind != kind {
				continue
			}
			if !yield(artifact) {
				return
			}
		}
	}
}

// Count returns the number of artifacts of the given kind.
func (l Listing) Count(kind Kind) int {
	n := 0
	for range l.OfKind(kind) {
		n++
	}
	return n
}
