// Package vcs wraps the local git operations the staging workflows need.
// Only local, non-remote subcommands can be issued through it.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const maxErrorOutputBytes = 4 * 1024

var (
	// ErrBranchExists is returned by CreateBranch when the name is taken.
	ErrBranchExists = errors.New("branch already exists")
	// ErrForbiddenCommand is returned for any git subcommand that could reach
	// a remote.
	ErrForbiddenCommand = errors.New("git subcommand not permitted")
)

// Git is the version-control collaborator used by the workflows.
type Git interface {
	// CurrentBranch returns the checked-out branch, or the commit hash when
	// HEAD is detached. Either value is accepted by Checkout.
	CurrentBranch(ctx context.Context) (string, error)
	CreateBranch(ctx context.Context, name string) error
	Checkout(ctx context.Context, ref string) error
	DeleteBranch(ctx context.Context, name string) error
	Add(ctx context.Context, paths ...string) error
	// Commit records exactly paths; anything else already in the index stays
	// staged and out of the commit.
	Commit(ctx context.Context, message string, paths ...string) (string, error)
}

// allowedSubcommands lists every git subcommand ExecGit will run. Anything
// else, including push, fetch, pull and remote, is refused before exec.
var allowedSubcommands = map[string]bool{
	"add":          true,
	"branch":       true,
	"checkout":     true,
	"commit":       true,
	"rev-parse":    true,
	"show-ref":     true,
	"symbolic-ref": true,
}

// CommandError describes a failed git invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecGit runs git as a subprocess against a fixed working tree.
type ExecGit struct {
	dir     string
	binary  string
	timeout time.Duration
}

// NewExecGit returns an ExecGit rooted at dir. The git binary is resolved
// lazily so construction never fails.
func NewExecGit(dir string) *ExecGit {
	return &ExecGit{dir: dir, binary: "git", timeout: time.Minute}
}

// Dir returns the working tree the commands run against.
func (g *ExecGit) Dir() string {
	return g.dir
}

func (g *ExecGit) run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 || !allowedSubcommands[args[0]] {
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}
		return "", fmt.Errorf("%w: %q", ErrForbiddenCommand, sub)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	full := append([]string{"-C", g.dir}, args...)
	cmd := exec.CommandContext(runCtx, g.binary, full...)
	// Keep git from prompting for credentials or editors.
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_EDITOR=true")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		output := stderr.String()
		if strings.TrimSpace(output) == "" {
			output = stdout.String()
		}
		return stdout.String(), &CommandError{
			Args:     args,
			ExitCode: exitCode,
			Output:   truncateOutput(output, maxErrorOutputBytes),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// CurrentBranch returns the checked-out branch name, or the HEAD commit hash
// when HEAD is detached.
func (g *ExecGit) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "symbolic-ref", "-q", "--short", "HEAD")
	if err == nil {
		return strings.TrimSpace(out), nil
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 1 {
		return "", err
	}
	out, err = g.run(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchExists reports whether a local branch with name exists.
func (g *ExecGit) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := g.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// CreateBranch creates name from HEAD and checks it out. It returns
// ErrBranchExists when the name is already taken.
func (g *ExecGit) CreateBranch(ctx context.Context, name string) error {
	exists, err := g.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}
	if _, err := g.run(ctx, "checkout", "-b", name); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
		return err
	}
	return nil
}

// Checkout switches to an existing local branch. Any other ref, such as the
// hash CurrentBranch returns for a detached HEAD, is checked out detached.
func (g *ExecGit) Checkout(ctx context.Context, ref string) error {
	exists, err := g.BranchExists(ctx, ref)
	if err != nil {
		return err
	}
	if exists {
		_, err = g.run(ctx, "checkout", ref)
	} else {
		_, err = g.run(ctx, "checkout", "--detach", ref)
	}
	return err
}

// DeleteBranch force-deletes a local branch.
func (g *ExecGit) DeleteBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "branch", "-D", name)
	return err
}

// Add stages the given root-relative paths.
func (g *ExecGit) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := g.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records paths only and returns the new commit hash. Changes the
// operator staged beforehand are left in the index.
func (g *ExecGit) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New("commit: no paths given")
	}
	args := append([]string{"commit", "--only", "-m", message, "--"}, paths...)
	if _, err := g.run(ctx, args...); err != nil {
		return "", err
	}
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func truncateOutput(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}
	return output[len(output)-maxBytes:]
}
