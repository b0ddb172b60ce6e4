package patch

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Kind identifies what a staged artifact represents.
type Kind string

const (
	// KindReplacement is a full-file replacement for an existing repository file.
	KindReplacement Kind = "replacement"
	// KindNote is a free-text instruction shown to the operator and never applied.
	KindNote Kind = "note"
)

const (
	// DefaultSeparator stands in for the path delimiter inside artifact names.
	DefaultSeparator = "__"
	// DefaultReplaceSuffix marks full-file replacement artifacts.
	DefaultReplaceSuffix = ".patch"
	// DefaultNoteSuffix marks free-text instruction artifacts.
	DefaultNoteSuffix = ".txt"
)

var (
	// ErrUnrecognizedSuffix is returned when an artifact name carries neither
	// the replacement nor the note suffix.
	ErrUnrecognizedSuffix = errors.New("unrecognized artifact suffix")
	// ErrAmbiguousPath is returned when a repository path cannot be flattened
	// without colliding with another path once decoded.
	ErrAmbiguousPath = errors.New("path cannot be encoded unambiguously")
	// ErrUnsafePath is returned when a path is absolute, escapes the repository
	// root, or contains empty segments.
	ErrUnsafePath = errors.New("unsafe repository path")
)

// Codec converts between repository-relative paths and flattened artifact
// names.
//
// Encoding replaces every "/" with Separator and appends the kind suffix.
// Decoding reverses that. The mapping round-trips for every path Encode
// accepts; Encode refuses paths where a segment contains the separator, where
// a non-first segment starts with '_' or where a non-last segment ends with
// '_' (for the default "__" separator, "a_/b" and "a/_b" would both flatten
// to "a___b"). Artifacts produced by other tools with such names decode to
// whatever the leftmost-first replacement yields and are rejected if that
// result is unsafe.
type Codec struct {
	Separator     string
	ReplaceSuffix string
	NoteSuffix    string
	// SourceExt, when set, is stripped from the repository path before the
	// replacement suffix is appended and restored on decode, so
	// "src/app.py" flattens to "src__app.patch".
	SourceExt string
}

// DefaultCodec returns the codec used by the staging tools.
func DefaultCodec() Codec {
	return Codec{
		Separator:     DefaultSeparator,
		ReplaceSuffix: DefaultReplaceSuffix,
		NoteSuffix:    DefaultNoteSuffix,
	}
}

func (c Codec) withDefaults() Codec {
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.ReplaceSuffix == "" {
		c.ReplaceSuffix = DefaultReplaceSuffix
	}
	if c.NoteSuffix == "" {
		c.NoteSuffix = DefaultNoteSuffix
	}
	return c
}

// Suffix returns the filename suffix used for kind.
func (c Codec) Suffix(kind Kind) string {
	c = c.withDefaults()
	if kind == KindNote {
		return c.NoteSuffix
	}
	return c.ReplaceSuffix
}

// KindOf reports the artifact kind implied by name's suffix.
func (c Codec) KindOf(name string) (Kind, bool) {
	c = c.withDefaults()
	switch {
	case strings.HasSuffix(name, c.ReplaceSuffix) && len(name) > len(c.ReplaceSuffix):
		return KindReplacement, true
	case strings.HasSuffix(name, c.NoteSuffix) && len(name) > len(c.NoteSuffix):
		return KindNote, true
	default:
		return "", false
	}
}

// Encode flattens a repository-relative, slash-separated path into an
// artifact name of the given kind.
func (c Codec) Encode(repoPath string, kind Kind) (string, error) {
	c = c.withDefaults()
	if err := validateRepoPath(repoPath); err != nil {
		return "", err
	}

	body := repoPath
	if kind == KindReplacement && c.SourceExt != "" {
		if !strings.HasSuffix(body, c.SourceExt) || len(body) == len(c.SourceExt) {
			return "", fmt.Errorf("%w: %s does not end with %s", ErrAmbiguousPath, repoPath, c.SourceExt)
		}
		body = strings.TrimSuffix(body, c.SourceExt)
	}

	segments := strings.Split(body, "/")
	// A segment edge that repeats the separator's own edge character merges
	// with the separator and shifts the decoded boundary.
	first := c.Separator[:1]
	last := c.Separator[len(c.Separator)-1:]
	for i, segment := range segments {
		if strings.Contains(segment, c.Separator) {
			return "", fmt.Errorf("%w: segment %q contains %q", ErrAmbiguousPath, segment, c.Separator)
		}
		if i > 0 && strings.HasPrefix(segment, first) {
			return "", fmt.Errorf("%w: segment %q starts with %q", ErrAmbiguousPath, segment, first)
		}
		if i < len(segments)-1 && strings.HasSuffix(segment, last) {
			return "", fmt.Errorf("%w: segment %q ends with %q", ErrAmbiguousPath, segment, last)
		}
	}

	return strings.Join(segments, c.Separator) + c.Suffix(kind), nil
}

// Decode reverses Encode. It returns the artifact kind together with the
// repository-relative path. Note artifacts are free text and their decoded
// path is informational only; it is not validated.
func (c Codec) Decode(name string) (Kind, string, error) {
	c = c.withDefaults()
	kind, ok := c.KindOf(name)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnrecognizedSuffix, name)
	}

	body := strings.TrimSuffix(name, c.Suffix(kind))
	decoded := strings.ReplaceAll(body, c.Separator, "/")
	if kind == KindNote {
		return kind, decoded, nil
	}
	if c.SourceExt != "" {
		decoded += c.SourceExt
	}
	if err := validateRepoPath(decoded); err != nil {
		return "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	return kind, decoded, nil
}

func validateRepoPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %s", ErrUnsafePath, p)
		}
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}
	return nil
}
