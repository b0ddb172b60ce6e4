package stage

import (
	"github.com/asynkron/patchstage/pkg/patch"
)

// FileStatus classifies what happened to one artifact.
type FileStatus string

const (
	StatusApplied   FileStatus = "applied"
	StatusSkipped   FileStatus = "skipped"
	StatusUnchanged FileStatus = "unchanged"
	StatusRejected  FileStatus = "rejected"
)

// Reporter receives every operator-facing message the workflows produce.
// Implementations decide on styling; the workflows only decide content.
type Reporter interface {
	Section(title string)
	Info(msg string)
	Warn(msg string)
	Success(msg string)
	Failure(msg string)
	File(status FileStatus, path, detail string)
	Note(title, body string, truncated bool)
	Diff(path string, diff patch.Diff)
	Commands(title string, commands []string)
}
