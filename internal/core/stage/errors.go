package stage

import "errors"

var (
	// ErrSetup marks fatal problems found before any side effect, such as a
	// missing or empty patch directory.
	ErrSetup = errors.New("setup failed")
	// ErrBranchCollision is returned when the review branch name is still
	// taken after the single retry.
	ErrBranchCollision = errors.New("could not create a unique review branch")
	// ErrNothingApplied is returned by the batch workflow after it rolled
	// back a branch on which no patch applied.
	ErrNothingApplied = errors.New("no patches were applied")
	// ErrInterrupted is returned when the context is cancelled mid-run. Work
	// already done is left in place.
	ErrInterrupted = errors.New("interrupted")
)
