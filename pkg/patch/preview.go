package patch

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff is a bounded unified diff between a target and its replacement.
type Diff struct {
	Lines []string
	// Total is the number of diff lines before truncation.
	Total     int
	Truncated bool
}

// Empty reports whether the two sides were identical.
func (d Diff) Empty() bool {
	return d.Total == 0
}

// String joins the retained lines.
func (d Diff) String() string {
	return strings.Join(d.Lines, "\n")
}

// Preview computes a unified diff (three lines of context) from current to
// replacement, keeping at most maxLines lines. maxLines <= 0 keeps all.
func Preview(repoPath string, current, replacement []byte, maxLines int) (Diff, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(replacement)),
		FromFile: "a/" + repoPath,
		ToFile:   "b/" + repoPath,
		Context:  3,
	})
	if err != nil {
		return Diff{}, err
	}
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return Diff{}, nil
	}
	lines := strings.Split(text, "\n")
	kept, truncated := headLines(lines, maxLines)
	return Diff{Lines: kept, Total: len(lines), Truncated: truncated}, nil
}

// Excerpt returns at most maxLines leading lines of content along with a flag
// telling whether anything was cut.
func Excerpt(content []byte, maxLines int) (string, bool) {
	normalized := strings.ReplaceAll(string(content), "\r\n", "\n")
	normalized = strings.TrimRight(normalized, "\n")
	if normalized == "" {
		return "", false
	}
	kept, truncated := headLines(strings.Split(normalized, "\n"), maxLines)
	return strings.Join(kept, "\n"), truncated
}

func headLines(lines []string, maxLines int) ([]string, bool) {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines, false
	}
	return lines[:maxLines], true
}
