package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/patchstage/internal/repo"
)

func newTestReview(t *testing.T, dir string, confirm Confirmer, out *recorder) *Review {
	t.Helper()
	review, err := NewReview(repo.New(dir), confirm, out, ReviewOptions{})
	require.NoError(t, err)
	return review
}

func seedThree(t *testing.T, dir string) []string {
	t.Helper()
	paths := []string{"a/one.txt", "b/two.txt", "c/three.txt"}
	for _, p := range paths {
		mustWrite(t, dir, p, "before "+p+"\n")
		stagePatch(t, dir, p, "after "+p+"\n")
	}
	return paths
}

func TestReviewDecliningEverythingChangesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := seedThree(t, dir)
	confirm := &scriptedConfirmer{answers: []Decision{DecisionSkip, DecisionSkip, DecisionSkip}}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Applied)
	require.Len(t, result.Skipped, 3)
	require.Len(t, confirm.prompts, 3)
	for _, p := range paths {
		require.Equal(t, "before "+p+"\n", mustRead(t, dir, p))
	}
	require.True(t, out.contains("info", "applied=0 skipped=3 unreviewed=0"))
	require.Empty(t, result.FollowUp)
}

func TestReviewAppliesOnlyConfirmedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedThree(t, dir)
	// Scan order is filename order: a__one, b__two, c__three.
	confirm := &scriptedConfirmer{answers: []Decision{DecisionSkip, DecisionApply, DecisionSkip}}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b/two.txt"}, result.Applied)
	require.Equal(t, "before a/one.txt\n", mustRead(t, dir, "a/one.txt"))
	require.Equal(t, "after b/two.txt\n", mustRead(t, dir, "b/two.txt"))
	require.Equal(t, "before c/three.txt\n", mustRead(t, dir, "c/three.txt"))

	require.Len(t, out.of("diff"), 3, "every prompt is preceded by a diff")
	require.Equal(t, Prompt{Path: "b/two.txt", Index: 2, Total: 3}, confirm.prompts[1])
	require.Contains(t, result.FollowUp, "git add -- b/two.txt")
}

func TestReviewSkipsMissingTargetsWithoutPrompting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite(t, dir, "here.txt", "old\n")
	stagePatch(t, dir, "here.txt", "new\n")
	stagePatch(t, dir, "nowhere/gone.txt", "new\n")
	confirm := &scriptedConfirmer{answers: []Decision{DecisionApply}}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, confirm.prompts, 1)
	require.Equal(t, "here.txt", confirm.prompts[0].Path)
	require.Equal(t, []string{"here.txt"}, result.Applied)
	require.Equal(t, []string{"nowhere/gone.txt"}, result.Skipped)
	require.NoFileExists(t, dir+"/nowhere/gone.txt")
}

func TestReviewIdenticalTargetIsNotPrompted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite(t, dir, "same.txt", "same\n")
	stagePatch(t, dir, "same.txt", "same\n")
	confirm := &scriptedConfirmer{}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, confirm.prompts)
	require.Equal(t, []string{"same.txt"}, out.files(StatusUnchanged))
	require.Equal(t, []string{"same.txt"}, result.Skipped)
}

func TestReviewQuitStopsAndLeavesRestUnreviewed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedThree(t, dir)
	confirm := &scriptedConfirmer{answers: []Decision{DecisionApply, DecisionQuit}}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Stopped)
	require.Equal(t, []string{"a/one.txt"}, result.Applied)
	require.Equal(t, []string{"b/two.txt", "c/three.txt"}, result.Unreviewed)
	require.Equal(t, "before b/two.txt\n", mustRead(t, dir, "b/two.txt"))
	require.True(t, out.contains("warn", "not reviewed"))
	require.True(t, out.contains("info", "applied=1 skipped=0 unreviewed=2"), "summary counts every discovered patch")
}

func TestReviewNotesOnlyExitsCleanly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite(t, dir, DefaultPatchDir+"/add_httpx_to_requirements.txt", "PATCH for requirements.txt\n")
	confirm := &scriptedConfirmer{}
	out := &recorder{}

	result, err := newTestReview(t, dir, confirm, out).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, confirm.prompts)
	require.Empty(t, result.Applied)
	require.True(t, out.contains("info", "nothing to review"))
}

func TestReviewMissingDirectoryIsSetupError(t *testing.T) {
	t.Parallel()

	confirm := &scriptedConfirmer{}
	out := &recorder{}
	_, err := newTestReview(t, t.TempDir(), confirm, out).Run(context.Background())
	require.True(t, errors.Is(err, ErrSetup))
	require.Empty(t, confirm.prompts)
}

func TestReviewCancelledContextIsInterrupted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedThree(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestReview(t, dir, &scriptedConfirmer{}, &recorder{}).Run(ctx)
	require.True(t, errors.Is(err, ErrInterrupted))
	require.Len(t, result.Unreviewed, 3)
	require.Empty(t, result.Applied)
}

type failingConfirmer struct{ err error }

func (f failingConfirmer) Confirm(context.Context, Prompt) (Decision, error) {
	return DecisionSkip, f.err
}

func TestReviewConfirmerErrorStops(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedThree(t, dir)
	boom := errors.New("terminal gone")

	result, err := newTestReview(t, dir, failingConfirmer{err: boom}, &recorder{}).Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.True(t, result.Stopped)
	require.Len(t, result.Unreviewed, 3)
}
