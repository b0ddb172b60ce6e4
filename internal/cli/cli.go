package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/asynkron/patchstage/internal/core/stage"
	"github.com/asynkron/patchstage/internal/tui"
	"github.com/asynkron/patchstage/internal/vcs"
	"github.com/asynkron/patchstage/pkg/patch"
)

// Exit codes shared by both commands.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

var lookupEnv = os.LookupEnv

// RunBatch applies every staged patch onto a fresh branch and commits once.
// It returns a POSIX-style exit code indicating whether execution succeeded.
func RunBatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	flagSet, values := newFlagSet("stage-patches", stderr, true)
	if err := flagSet.Parse(args); err != nil {
		return ExitUsage
	}
	if flagSet.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", flagSet.Args())
		return ExitUsage
	}

	cfg, err := values.resolve(flagSet, lookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}
	if !cfg.root.CommandExists("git") {
		fmt.Fprintln(stderr, "git is required on PATH.")
		return ExitFailure
	}

	logger := stage.NewStdLogger(cfg.logLevel, stderr).WithFields(stage.Field("workflow", "batch"))
	ctx = stage.WithRunID(ctx, stage.NewRunID(time.Now()))
	printer := tui.NewPrinter(stdout, !cfg.plain && tui.ColorAllowed(stdout, lookupEnv))

	batch, err := stage.NewBatch(cfg.root, vcs.NewExecGit(cfg.root.Path()), printer, stage.BatchOptions{
		PatchDir:         cfg.patchDir,
		Codec:            patch.Codec{SourceExt: cfg.sourceExt},
		BranchPrefix:     cfg.branchPrefix,
		BaseBranch:       cfg.baseBranch,
		ReportPath:       cfg.report,
		NotePreviewLines: cfg.previewLines,
		Logger:           logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return ExitUsage
	}

	_, err = batch.Run(ctx)
	return exitCode(err)
}

// RunReview walks staged patches interactively. Nothing is committed.
func RunReview(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	flagSet, values := newFlagSet("review-patches", stderr, false)
	if err := flagSet.Parse(args); err != nil {
		return ExitUsage
	}
	if flagSet.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", flagSet.Args())
		return ExitUsage
	}
	if stdin == nil {
		fmt.Fprintln(stderr, "interactive review needs an input stream.")
		return ExitFailure
	}

	cfg, err := values.resolve(flagSet, lookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}

	logger := stage.NewStdLogger(cfg.logLevel, stderr).WithFields(stage.Field("workflow", "review"))
	ctx = stage.WithRunID(ctx, stage.NewRunID(time.Now()))
	printer := tui.NewPrinter(stdout, !cfg.plain && tui.ColorAllowed(stdout, lookupEnv))

	var confirm stage.Confirmer
	if !cfg.plain && tui.IsTerminal(stdin) && tui.IsTerminal(stdout) {
		confirm = tui.NewConfirmer(stdin, stdout, printer)
	} else {
		confirm = stage.NewLineConfirmer(stdin, stdout)
	}

	review, err := stage.NewReview(cfg.root, confirm, printer, stage.ReviewOptions{
		PatchDir:         cfg.patchDir,
		Codec:            patch.Codec{SourceExt: cfg.sourceExt},
		DiffPreviewLines: cfg.previewLines,
		Logger:           logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return ExitUsage
	}

	_, err = review.Run(ctx)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, stage.ErrInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
