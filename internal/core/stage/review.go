package stage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/asynkron/patchstage/internal/repo"
	"github.com/asynkron/patchstage/pkg/patch"
)

// ReviewResult summarizes one interactive invocation.
type ReviewResult struct {
	Applied []string
	Skipped []string
	// Unreviewed lists artifacts never prompted because the operator quit or
	// the run was interrupted.
	Unreviewed []string
	Stopped    bool
	FollowUp   []string
}

// Review walks replacement artifacts one by one and applies each only after
// an explicit yes. It never creates branches or commits.
type Review struct {
	root    repo.Root
	confirm Confirmer
	out     Reporter
	scanner *patch.Scanner
	opts    ReviewOptions
}

// NewReview wires the interactive workflow.
func NewReview(root repo.Root, confirm Confirmer, out Reporter, opts ReviewOptions) (*Review, error) {
	if confirm == nil {
		return nil, errors.New("stage: confirmer is required")
	}
	if out == nil {
		return nil, errors.New("stage: reporter is required")
	}
	opts.setDefaults()
	return &Review{
		root:    root,
		confirm: confirm,
		out:     out,
		scanner: patch.NewScanner(root.Join(opts.PatchDir), opts.Codec),
		opts:    opts,
	}, nil
}

// Run prompts for every replacement artifact in scan order.
func (r *Review) Run(ctx context.Context) (ReviewResult, error) {
	log := r.opts.Logger
	var result ReviewResult

	listing, err := r.scanner.Scan()
	if err != nil {
		r.out.Failure(fmt.Sprintf("Cannot start: %v", err))
		log.Error(ctx, "patch directory unusable", err, Field("dir", r.scanner.Dir()))
		return result, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	var artifacts []patch.Artifact
	for artifact := range listing.OfKind(patch.KindReplacement) {
		artifacts = append(artifacts, artifact)
	}
	for _, rejection := range listing.Rejected {
		r.out.File(StatusRejected, rejection.Name, rejection.Reason.Error())
	}
	if len(artifacts) == 0 {
		r.out.Info(fmt.Sprintf("No replacement patches in %s; nothing to review", r.opts.PatchDir))
		return result, nil
	}

	r.out.Section(fmt.Sprintf("Reviewing %d patch(es)", len(artifacts)))
	var runErr error
	for i, artifact := range artifacts {
		if ctx.Err() != nil {
			runErr = fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
			result.Stopped = true
			result.Unreviewed = appendPaths(result.Unreviewed, artifacts[i:])
			break
		}

		decision, err := r.reviewOne(ctx, &result, artifact, Prompt{Path: artifact.Path, Index: i + 1, Total: len(artifacts)})
		if err != nil {
			if ctx.Err() != nil {
				runErr = fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
			} else {
				runErr = err
			}
		}
		if decision == DecisionQuit || err != nil {
			result.Stopped = true
			result.Unreviewed = appendPaths(result.Unreviewed, artifacts[i:])
			break
		}
	}

	r.summarize(ctx, &result)
	return result, runErr
}

// reviewOne handles a single artifact. Returning DecisionQuit stops the loop
// before anything is applied for this artifact.
func (r *Review) reviewOne(ctx context.Context, result *ReviewResult, artifact patch.Artifact, prompt Prompt) (Decision, error) {
	abs, err := patch.Target(r.root.Path(), artifact.Path)
	if err != nil {
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusSkipped, artifact.Path, err.Error())
		return DecisionSkip, nil
	}

	replacement, err := artifact.Read()
	if err != nil {
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusSkipped, artifact.Path, err.Error())
		return DecisionSkip, nil
	}
	current, err := os.ReadFile(abs)
	if err != nil {
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusSkipped, artifact.Path, err.Error())
		return DecisionSkip, nil
	}

	diff, err := patch.Preview(artifact.Path, current, replacement, r.opts.DiffPreviewLines)
	if err != nil {
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusSkipped, artifact.Path, fmt.Sprintf("cannot compute diff: %v", err))
		return DecisionSkip, nil
	}
	if diff.Empty() {
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusUnchanged, artifact.Path, "already matches the patch")
		return DecisionSkip, nil
	}
	r.out.Diff(artifact.Path, diff)

	decision, err := r.confirm.Confirm(ctx, prompt)
	if err != nil {
		return DecisionQuit, err
	}
	r.opts.Logger.Debug(ctx, "operator decision", Field("path", artifact.Path), Field("decision", decision))

	switch decision {
	case DecisionApply:
		if _, err := patch.Replace(r.root.Path(), artifact.Path, replacement); err != nil {
			result.Skipped = append(result.Skipped, artifact.Path)
			r.out.File(StatusSkipped, artifact.Path, err.Error())
			return DecisionSkip, nil
		}
		result.Applied = append(result.Applied, artifact.Path)
		r.out.File(StatusApplied, artifact.Path, "")
		return DecisionApply, nil
	case DecisionQuit:
		return DecisionQuit, nil
	default:
		result.Skipped = append(result.Skipped, artifact.Path)
		r.out.File(StatusSkipped, artifact.Path, "declined")
		return DecisionSkip, nil
	}
}

func (r *Review) summarize(ctx context.Context, result *ReviewResult) {
	r.out.Section("Summary")
	r.out.Info(fmt.Sprintf("applied=%d skipped=%d unreviewed=%d", len(result.Applied), len(result.Skipped), len(result.Unreviewed)))
	if len(result.Unreviewed) > 0 {
		r.out.Warn(fmt.Sprintf("Stopped early; %d patch(es) not reviewed", len(result.Unreviewed)))
	}
	if len(result.Applied) > 0 {
		result.FollowUp = ReviewFollowUp(result.Applied)
		r.out.Commands("Next steps (run manually)", result.FollowUp)
	}
	r.opts.Logger.Info(ctx, "review finished",
		Field("applied", len(result.Applied)),
		Field("skipped", len(result.Skipped)),
		Field("unreviewed", len(result.Unreviewed)))
}

func appendPaths(dst []string, artifacts []patch.Artifact) []string {
	for _, artifact := range artifacts {
		dst = append(dst, artifact.Path)
	}
	return dst
}
