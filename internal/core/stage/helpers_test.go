package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/patchstage/internal/vcs"
	"github.com/asynkron/patchstage/pkg/patch"
)

// fakeGit keeps branch state in memory so workflows can be exercised without
// a git binary.
type fakeGit struct {
	current  string
	branches map[string]bool
	staged   []string
	commits  []string
	// committed holds the paths recorded by each commit.
	committed [][]string
	calls     []string
	// detached is a commit hash HEAD can be checked out to.
	detached string
	// taken marks names that collide on creation.
	taken     map[string]bool
	failAdd   error
	failCheck error
}

func newFakeGit(current string) *fakeGit {
	return &fakeGit{
		current:  current,
		branches: map[string]bool{current: true},
		taken:    map[string]bool{},
	}
}

// newDetachedFakeGit starts with HEAD detached at hash.
func newDetachedFakeGit(hash string) *fakeGit {
	return &fakeGit{
		current:  hash,
		detached: hash,
		branches: map[string]bool{},
		taken:    map[string]bool{},
	}
}

func (g *fakeGit) CurrentBranch(context.Context) (string, error) {
	g.calls = append(g.calls, "current")
	return g.current, nil
}

func (g *fakeGit) CreateBranch(_ context.Context, name string) error {
	g.calls = append(g.calls, "create "+name)
	if g.branches[name] || g.taken[name] {
		return fmt.Errorf("%w: %s", vcs.ErrBranchExists, name)
	}
	g.branches[name] = true
	g.current = name
	return nil
}

func (g *fakeGit) Checkout(_ context.Context, name string) error {
	g.calls = append(g.calls, "checkout "+name)
	if g.failCheck != nil {
		return g.failCheck
	}
	if !g.branches[name] && (g.detached == "" || name != g.detached) {
		return fmt.Errorf("no branch %s", name)
	}
	g.current = name
	return nil
}

func (g *fakeGit) DeleteBranch(_ context.Context, name string) error {
	g.calls = append(g.calls, "delete "+name)
	if g.current == name {
		return fmt.Errorf("cannot delete checked out branch %s", name)
	}
	delete(g.branches, name)
	return nil
}

func (g *fakeGit) Add(_ context.Context, paths ...string) error {
	g.calls = append(g.calls, "add "+strings.Join(paths, " "))
	if g.failAdd != nil {
		return g.failAdd
	}
	g.staged = append(g.staged, paths...)
	return nil
}

// Commit mirrors "git commit --only": only paths are recorded and the rest of
// the index stays staged.
func (g *fakeGit) Commit(_ context.Context, message string, paths ...string) (string, error) {
	g.calls = append(g.calls, "commit "+strings.Join(paths, " "))
	if len(paths) == 0 {
		return "", fmt.Errorf("nothing to commit")
	}
	only := make(map[string]bool, len(paths))
	for _, p := range paths {
		only[p] = true
	}
	var rest []string
	for _, p := range g.staged {
		if !only[p] {
			rest = append(rest, p)
		}
	}
	g.commits = append(g.commits, message)
	g.committed = append(g.committed, append([]string(nil), paths...))
	g.staged = rest
	return fmt.Sprintf("%040d", len(g.commits)), nil
}

func (g *fakeGit) called(prefix string) int {
	n := 0
	for _, call := range g.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

type reportEntry struct {
	kind   string
	status FileStatus
	text   string
	detail string
}

// recorder captures Reporter calls.
type recorder struct {
	entries []reportEntry
}

func (r *recorder) add(kind, text string) {
	r.entries = append(r.entries, reportEntry{kind: kind, text: text})
}

func (r *recorder) Section(title string) { r.add("section", title) }
func (r *recorder) Info(msg string)      { r.add("info", msg) }
func (r *recorder) Warn(msg string)      { r.add("warn", msg) }
func (r *recorder) Success(msg string)   { r.add("success", msg) }
func (r *recorder) Failure(msg string)   { r.add("failure", msg) }
func (r *recorder) File(status FileStatus, path, detail string) {
	r.entries = append(r.entries, reportEntry{kind: "file", status: status, text: path, detail: detail})
}
func (r *recorder) Note(title, body string, truncated bool) {
	r.entries = append(r.entries, reportEntry{kind: "note", text: title, detail: body})
}
func (r *recorder) Diff(path string, diff patch.Diff) {
	r.entries = append(r.entries, reportEntry{kind: "diff", text: path, detail: diff.String()})
}
func (r *recorder) Commands(title string, commands []string) {
	r.entries = append(r.entries, reportEntry{kind: "commands", text: title, detail: strings.Join(commands, "\n")})
}

func (r *recorder) files(status FileStatus) []string {
	var out []string
	for _, e := range r.entries {
		if e.kind == "file" && e.status == status {
			out = append(out, e.text)
		}
	}
	return out
}

func (r *recorder) of(kind string) []reportEntry {
	var out []reportEntry
	for _, e := range r.entries {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) contains(kind, substr string) bool {
	for _, e := range r.of(kind) {
		if strings.Contains(e.text, substr) || strings.Contains(e.detail, substr) {
			return true
		}
	}
	return false
}

// scriptedConfirmer answers prompts from a fixed list.
type scriptedConfirmer struct {
	answers []Decision
	prompts []Prompt
}

func (c *scriptedConfirmer) Confirm(_ context.Context, prompt Prompt) (Decision, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.prompts) > len(c.answers) {
		return DecisionQuit, nil
	}
	return c.answers[len(c.prompts)-1], nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) NowUTC() time.Time { return c.now }

var testNow = time.Date(2026, 10, 16, 9, 30, 15, 123456789, time.UTC)

func mustWrite(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func mustRead(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// stagePatch writes a replacement artifact for repoPath into the default
// patch directory.
func stagePatch(t *testing.T, root, repoPath, content string) {
	t.Helper()
	name, err := patch.DefaultCodec().Encode(repoPath, patch.KindReplacement)
	require.NoError(t, err)
	mustWrite(t, root, DefaultPatchDir+"/"+name, content)
}
