package stage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decision is the operator's answer for one artifact.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionApply
	// DecisionQuit stops the review; nothing further is prompted or applied.
	DecisionQuit
)

func (d Decision) String() string {
	switch d {
	case DecisionApply:
		return "apply"
	case DecisionQuit:
		return "quit"
	default:
		return "skip"
	}
}

// Prompt describes the artifact awaiting confirmation.
type Prompt struct {
	Path  string
	Index int
	Total int
}

// Question renders the prompt text.
func (p Prompt) Question() string {
	return fmt.Sprintf("[%d/%d] Apply patch to %s? [y/N] ", p.Index, p.Total, p.Path)
}

// Confirmer asks the operator whether to apply one artifact. It blocks until
// an answer arrives or ctx is cancelled.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (Decision, error)
}

// LineConfirmer reads one line per prompt. Only "y" and "yes"
// (case-insensitive) apply; "q" or "quit" and end of input stop the review;
// anything else skips.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer builds a LineConfirmer that prints questions to out.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	if out == nil {
		out = io.Discard
	}
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

type lineResult struct {
	line string
	err  error
}

func (c *LineConfirmer) Confirm(ctx context.Context, prompt Prompt) (Decision, error) {
	if _, err := fmt.Fprint(c.out, prompt.Question()); err != nil {
		return DecisionSkip, err
	}

	// The read runs in its own goroutine so cancellation is observed even
	// while the reader blocks.
	results := make(chan lineResult, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		results <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return DecisionQuit, ctx.Err()
	case res := <-results:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return DecisionQuit, res.err
		}
		if errors.Is(res.err, io.EOF) && strings.TrimSpace(res.line) == "" {
			fmt.Fprintln(c.out)
			return DecisionQuit, nil
		}
		return ParseAnswer(res.line), nil
	}
}

// ParseAnswer maps a typed answer to a Decision.
func ParseAnswer(answer string) Decision {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return DecisionApply
	case "q", "quit":
		return DecisionQuit
	default:
		return DecisionSkip
	}
}
