package stage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/asynkron/patchstage/internal/core/schema"
	"github.com/asynkron/patchstage/internal/repo"
	"github.com/asynkron/patchstage/internal/vcs"
	"github.com/asynkron/patchstage/pkg/patch"
)

// BatchState is a step of the unattended workflow.
type BatchState string

const (
	StateStart         BatchState = "start"
	StateBranchCreated BatchState = "branch-created"
	StateApplying      BatchState = "applying"
	StateCommitted     BatchState = "committed"
	StateRolledBack    BatchState = "rolled-back"
)

// FileOutcome records the handling of a single artifact.
type FileOutcome struct {
	Artifact string
	Path     string
	Status   FileStatus
	Detail   string
}

// BatchResult summarizes one batch invocation.
type BatchResult struct {
	State          BatchState
	Branch         string
	PreviousBranch string
	Commit         string
	Message        string
	Applied        []string
	Outcomes       []FileOutcome
	Notes          []string
	// FollowUp holds the printed, never executed, publish commands.
	FollowUp []string
}

// Batch applies every eligible artifact onto a fresh branch and commits once.
type Batch struct {
	root    repo.Root
	git     vcs.Git
	out     Reporter
	scanner *patch.Scanner
	opts    BatchOptions
}

// NewBatch wires the unattended workflow.
func NewBatch(root repo.Root, git vcs.Git, out Reporter, opts BatchOptions) (*Batch, error) {
	if git == nil {
		return nil, errors.New("stage: git collaborator is required")
	}
	if out == nil {
		return nil, errors.New("stage: reporter is required")
	}
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Batch{
		root:    root,
		git:     git,
		out:     out,
		scanner: patch.NewScanner(root.Join(opts.PatchDir), opts.Codec),
		opts:    opts,
	}, nil
}

// Run executes Start → BranchCreated → Applying → {Committed, RolledBack}.
// Cancelling ctx stops between artifacts and leaves the branch in place.
func (b *Batch) Run(ctx context.Context) (BatchResult, error) {
	log := b.opts.Logger
	result := BatchResult{State: StateStart}

	listing, err := b.scanner.Scan()
	if err != nil {
		b.out.Failure(fmt.Sprintf("Cannot start: %v", err))
		log.Error(ctx, "patch directory unusable", err, Field("dir", b.scanner.Dir()))
		return result, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	log.Info(ctx, "scanned patch directory",
		Field("dir", b.scanner.Dir()),
		Field("replacements", listing.Count(patch.KindReplacement)),
		Field("notes", listing.Count(patch.KindNote)),
		Field("rejected", len(listing.Rejected)))

	b.reportContext(ctx)

	previous, err := b.git.CurrentBranch(ctx)
	if err != nil {
		b.out.Failure(fmt.Sprintf("Cannot determine the current branch: %v", err))
		return result, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	result.PreviousBranch = previous

	branch, err := b.createBranch(ctx)
	if err != nil {
		b.out.Failure(fmt.Sprintf("Cannot create a review branch: %v", err))
		log.Error(ctx, "branch creation failed", err)
		return result, err
	}
	result.Branch = branch
	result.State = StateBranchCreated
	b.out.Info(fmt.Sprintf("Created branch %s (from %s)", branch, previous))
	log.Info(ctx, "branch created", Field("branch", branch), Field("previous", previous))

	result.State = StateApplying
	b.out.Section("Applying patches")
	for _, rejection := range listing.Rejected {
		b.record(&result, FileOutcome{Artifact: rejection.Name, Status: StatusRejected, Detail: rejection.Reason.Error()})
	}
	for artifact := range listing.All() {
		if ctx.Err() != nil {
			b.out.Warn(fmt.Sprintf("Interrupted; branch %s left as is for inspection", branch))
			log.Warn(ctx, "batch interrupted", Field("branch", branch), Field("applied", len(result.Applied)))
			return result, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		if artifact.Kind == patch.KindNote {
			b.showNote(ctx, &result, artifact)
			continue
		}
		if err := b.applyReplacement(ctx, &result, artifact); err != nil {
			b.out.Failure(fmt.Sprintf("Aborting; branch %s left as is for inspection: %v", branch, err))
			log.Error(ctx, "staging failed", err, Field("path", artifact.Path))
			return result, err
		}
	}

	if len(result.Applied) == 0 {
		return b.rollback(ctx, result)
	}
	return b.commit(ctx, result)
}

func (b *Batch) createBranch(ctx context.Context) (string, error) {
	var name string
	err := executeWithRetry(ctx, b.opts.Retry, isBranchCollision, func(attempt int) error {
		name = BranchName(b.opts.BranchPrefix, b.opts.Clock.NowUTC(), attempt > 0)
		if attempt > 0 {
			b.out.Warn(fmt.Sprintf("Branch name was taken; retrying as %s", name))
		}
		return b.git.CreateBranch(ctx, name)
	})
	if err != nil {
		if isBranchCollision(err) {
			return "", fmt.Errorf("%w: %w", ErrBranchCollision, err)
		}
		return "", err
	}
	return name, nil
}

func (b *Batch) showNote(ctx context.Context, result *BatchResult, artifact patch.Artifact) {
	content, err := artifact.Read()
	if err != nil {
		b.out.Warn(fmt.Sprintf("Cannot read instruction %s: %v", artifact.Name, err))
		return
	}
	excerpt, truncated := patch.Excerpt(content, b.opts.NotePreviewLines)
	b.out.Note(artifact.Name, excerpt, truncated)
	result.Notes = append(result.Notes, artifact.Name)
	b.opts.Logger.Debug(ctx, "instruction displayed", Field("artifact", artifact.Name))
}

func (b *Batch) applyReplacement(ctx context.Context, result *BatchResult, artifact patch.Artifact) error {
	outcome := FileOutcome{Artifact: artifact.Name, Path: artifact.Path}
	if _, err := patch.Target(b.root.Path(), artifact.Path); err != nil {
		outcome.Status = StatusSkipped
		outcome.Detail = err.Error()
		b.record(result, outcome)
		return nil
	}

	content, err := artifact.Read()
	if err != nil {
		outcome.Status = StatusSkipped
		outcome.Detail = err.Error()
		b.record(result, outcome)
		return nil
	}

	res, err := patch.Replace(b.root.Path(), artifact.Path, content)
	if err != nil {
		outcome.Status = StatusSkipped
		outcome.Detail = err.Error()
		b.record(result, outcome)
		return nil
	}
	if res.Status == "=" {
		outcome.Status = StatusUnchanged
		outcome.Detail = "already matches the patch"
		b.record(result, outcome)
		return nil
	}

	if err := b.git.Add(ctx, artifact.Path); err != nil {
		return fmt.Errorf("stage %s: %w", artifact.Path, err)
	}
	outcome.Status = StatusApplied
	b.record(result, outcome)
	result.Applied = append(result.Applied, artifact.Path)
	return nil
}

func (b *Batch) record(result *BatchResult, outcome FileOutcome) {
	result.Outcomes = append(result.Outcomes, outcome)
	display := outcome.Path
	if display == "" {
		display = outcome.Artifact
	}
	b.out.File(outcome.Status, display, outcome.Detail)
}

func (b *Batch) rollback(ctx context.Context, result BatchResult) (BatchResult, error) {
	log := b.opts.Logger
	b.out.Failure("No patch was applied; rolling back")
	if err := b.git.Checkout(ctx, result.PreviousBranch); err != nil {
		b.out.Failure(fmt.Sprintf("Rollback failed: cannot check out %s: %v", result.PreviousBranch, err))
		return result, fmt.Errorf("%w: rollback checkout: %w", ErrNothingApplied, err)
	}
	if err := b.git.DeleteBranch(ctx, result.Branch); err != nil {
		b.out.Failure(fmt.Sprintf("Rollback incomplete: cannot delete %s: %v", result.Branch, err))
		return result, fmt.Errorf("%w: rollback delete: %w", ErrNothingApplied, err)
	}
	result.State = StateRolledBack
	b.out.Info(fmt.Sprintf("Checked out %s and deleted branch %s", result.PreviousBranch, result.Branch))
	log.Warn(ctx, "rolled back empty branch", Field("branch", result.Branch))
	return result, ErrNothingApplied
}

func (b *Batch) commit(ctx context.Context, result BatchResult) (BatchResult, error) {
	now := b.opts.Clock.NowUTC()
	result.Message = CommitMessage(b.opts.Subject, b.opts.ReportPath, now)
	hash, err := b.git.Commit(ctx, result.Message, result.Applied...)
	if err != nil {
		b.out.Failure(fmt.Sprintf("Commit failed; branch %s left with staged changes: %v", result.Branch, err))
		return result, fmt.Errorf("commit: %w", err)
	}
	result.Commit = hash
	result.State = StateCommitted
	result.FollowUp = PushCommands(result.Branch, b.opts.BaseBranch, b.opts.Subject, b.opts.ReportPath)

	b.out.Success(fmt.Sprintf("Committed %d file(s) on %s", len(result.Applied), result.Branch))
	b.out.Commands("Review, then publish manually", result.FollowUp)
	b.opts.Logger.Info(ctx, "batch committed",
		Field("branch", result.Branch),
		Field("commit", hash),
		Field("applied", len(result.Applied)))
	return result, nil
}

// reportContext surfaces the upstream diagnostics report and the dependency
// manifest when present. Problems with either are warnings only.
func (b *Batch) reportContext(ctx context.Context) {
	reportPath := b.root.Join(schema.DiagnosticsReportFile)
	if summary, err := LoadDiagnostics(reportPath); err != nil {
		b.out.Warn(fmt.Sprintf("Ignoring diagnostics report: %v", err))
		b.opts.Logger.Warn(ctx, "diagnostics report invalid", Field("path", reportPath))
	} else if summary != nil {
		b.out.Info(fmt.Sprintf("Diagnostics (%s): %s", schema.DiagnosticsReportFile, summary))
	}

	manifestPath := filepath.Join(b.scanner.Dir(), schema.DependencySummaryFile)
	manifest, err := LoadDependencySummary(manifestPath)
	if err != nil {
		b.out.Warn(fmt.Sprintf("Ignoring dependency summary: %v", err))
		return
	}
	if manifest == nil {
		return
	}
	b.out.Info(fmt.Sprintf("Dependency summary lists %d patch(es)", manifest.TotalPatches))
	for _, entry := range manifest.Patches {
		b.out.Info(fmt.Sprintf("  %s: add %s (%s)", entry.File, entry.Dependency, entry.PatchFile))
	}
}
