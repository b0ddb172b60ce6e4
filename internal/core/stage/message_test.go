package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBranchName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	require.Equal(t, "ultimaprime/fix-20260102-030405", BranchName("ultimaprime/fix", now, false))
	require.Equal(t, "ultimaprime/fix-20260102-030405-000000006", BranchName("ultimaprime/fix", now, true))

	local := now.In(time.FixedZone("east", 5*3600))
	require.Equal(t, "p-20260102-030405", BranchName("p", local, false), "names always use UTC")
}

func TestCommitMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t,
		"fix: subject\n\nDiagnostics: diagnostics/report.txt\nGenerated: 2026-01-02T03:04:05Z\n",
		CommitMessage("fix: subject", "diagnostics/report.txt", now))
}

func TestPushCommandsQuoteArguments(t *testing.T) {
	t.Parallel()

	commands := PushCommands("ultimaprime/fix-1", "main", "fix: it's done", "diagnostics/report.txt")
	require.Equal(t, []string{
		"git push -u origin ultimaprime/fix-1",
		`gh pr create --base main --head ultimaprime/fix-1 --title 'fix: it'"'"'s done' --body-file diagnostics/report.txt`,
	}, commands)
}

func TestReviewFollowUp(t *testing.T) {
	t.Parallel()

	steps := ReviewFollowUp([]string{"a.txt", "dir with space/b.txt"})
	require.Equal(t, "git add -- a.txt 'dir with space/b.txt'", steps[2])
	require.Equal(t, "git status", steps[0])
}
