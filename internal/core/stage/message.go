package stage

import (
	"fmt"
	"strings"
	"time"
)

const branchTimeLayout = "20060102-150405"

// BranchName builds the review branch name from prefix and the UTC time. When
// fine is set the nanoseconds are appended; that form is used for the retry
// after a collision.
func BranchName(prefix string, now time.Time, fine bool) string {
	now = now.UTC()
	name := fmt.Sprintf("%s-%s", prefix, now.Format(branchTimeLayout))
	if fine {
		name = fmt.Sprintf("%s-%09d", name, now.Nanosecond())
	}
	return name
}

// CommitMessage renders the three-part commit message: a subject line, the
// diagnostics report reference and a UTC timestamp.
func CommitMessage(subject, reportPath string, now time.Time) string {
	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Diagnostics: %s\n", reportPath)
	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format(time.RFC3339))
	return b.String()
}

// PushCommands returns the commands an operator runs to publish the branch
// and open a pull request. They are printed, never executed.
func PushCommands(branch, baseBranch, subject, reportPath string) []string {
	return []string{
		fmt.Sprintf("git push -u origin %s", branch),
		fmt.Sprintf("gh pr create --base %s --head %s --title %s --body-file %s",
			baseBranch, branch, shellQuote(subject), shellQuote(reportPath)),
	}
}

// ReviewFollowUp returns the manual steps printed after an interactive run
// applied at least one file.
func ReviewFollowUp(paths []string) []string {
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		quoted = append(quoted, shellQuote(p))
	}
	return []string{
		"git status",
		"git diff",
		"git add -- " + strings.Join(quoted, " "),
		`git commit -m "fix: apply reviewed patches"`,
	}
}

// shellQuote wraps s in single quotes when it contains anything beyond a
// conservative set of safe characters.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@+,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
