package stage

import (
	"errors"
	"strings"
	"time"

	"github.com/asynkron/patchstage/pkg/patch"
)

const (
	DefaultPatchDir         = "tools/ultimaprime/patches"
	DefaultBranchPrefix     = "ultimaprime/fix"
	DefaultBaseBranch       = "main"
	DefaultReportPath       = "diagnostics/report.txt"
	DefaultSubject          = "fix: apply staged ULTIMA-PRIME patches"
	DefaultNotePreviewLines = 20
	DefaultDiffPreviewLines = 40
)

// Clock abstracts time so commit timestamps and branch names are
// deterministic in tests.
type Clock interface {
	NowUTC() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) NowUTC() time.Time {
	return time.Now().UTC()
}

// BatchOptions configures the unattended workflow.
type BatchOptions struct {
	// PatchDir is the staging directory, relative to the repository root.
	PatchDir string
	// Codec decodes artifact names; zero fields take the patch defaults.
	Codec patch.Codec
	// BranchPrefix is joined with a UTC timestamp to name the review branch.
	BranchPrefix string
	// BaseBranch only appears in the printed pull request command.
	BaseBranch string
	// ReportPath is the diagnostics report referenced by the commit message,
	// relative to the repository root.
	ReportPath string
	Subject    string
	// NotePreviewLines bounds how much of an instruction note is shown.
	NotePreviewLines int

	Clock  Clock
	Logger Logger
	Retry  *RetryConfig
}

func (o *BatchOptions) setDefaults() {
	o.PatchDir = strings.TrimSpace(o.PatchDir)
	if o.PatchDir == "" {
		o.PatchDir = DefaultPatchDir
	}
	o.BranchPrefix = strings.Trim(strings.TrimSpace(o.BranchPrefix), "/-")
	if o.BranchPrefix == "" {
		o.BranchPrefix = DefaultBranchPrefix
	}
	if strings.TrimSpace(o.BaseBranch) == "" {
		o.BaseBranch = DefaultBaseBranch
	}
	if strings.TrimSpace(o.ReportPath) == "" {
		o.ReportPath = DefaultReportPath
	}
	o.Subject = strings.TrimSpace(o.Subject)
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.NotePreviewLines <= 0 {
		o.NotePreviewLines = DefaultNotePreviewLines
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = &NoOpLogger{}
	}
	if o.Retry == nil {
		o.Retry = BranchRetryConfig()
	}
}

func (o *BatchOptions) validate() error {
	if strings.ContainsAny(o.BranchPrefix, " ~^:?*[\\") || strings.Contains(o.BranchPrefix, "..") {
		return errors.New("branch prefix contains characters git does not allow in branch names")
	}
	if strings.Contains(o.Subject, "\n") {
		return errors.New("commit subject must be a single line")
	}
	return nil
}

// ReviewOptions configures the interactive workflow.
type ReviewOptions struct {
	PatchDir string
	Codec    patch.Codec
	// DiffPreviewLines bounds the diff shown before each confirmation.
	DiffPreviewLines int
	Logger           Logger
}

func (o *ReviewOptions) setDefaults() {
	o.PatchDir = strings.TrimSpace(o.PatchDir)
	if o.PatchDir == "" {
		o.PatchDir = DefaultPatchDir
	}
	if o.DiffPreviewLines <= 0 {
		o.DiffPreviewLines = DefaultDiffPreviewLines
	}
	if o.Logger == nil {
		o.Logger = &NoOpLogger{}
	}
}
