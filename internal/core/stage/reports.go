package stage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/asynkron/patchstage/internal/core/schema"
)

var (
	diagnosticsLoader     gojsonschema.JSONLoader
	diagnosticsLoaderErr  error
	diagnosticsLoaderOnce sync.Once

	summaryLoader     gojsonschema.JSONLoader
	summaryLoaderErr  error
	summaryLoaderOnce sync.Once
)

type schemaValidationError struct {
	file   string
	issues []string
}

func (e schemaValidationError) Error() string {
	if len(e.issues) == 0 {
		return fmt.Sprintf("%s failed schema validation", e.file)
	}
	return fmt.Sprintf("%s failed schema validation: %s", e.file, strings.Join(e.issues, "; "))
}

// DiagnosticsSummary condenses diagnostics/report.json.
type DiagnosticsSummary struct {
	Timestamp   string         `json:"timestamp"`
	TotalIssues int            `json:"total_issues"`
	BySeverity  map[string]int `json:"by_severity"`
}

// String renders the counts on one line.
func (d DiagnosticsSummary) String() string {
	return fmt.Sprintf("%d issue(s): HIGH %d, MEDIUM %d, LOW %d",
		d.TotalIssues, d.BySeverity["HIGH"], d.BySeverity["MEDIUM"], d.BySeverity["LOW"])
}

// DependencyPatch is one entry of the dependency summary manifest.
type DependencyPatch struct {
	File       string `json:"file"`
	Dependency string `json:"dependency"`
	PatchFile  string `json:"patch_file"`
}

// DependencySummary mirrors DEPENDENCIES_PATCH_SUMMARY.json.
type DependencySummary struct {
	TotalPatches int               `json:"total_patches"`
	Patches      []DependencyPatch `json:"patches"`
}

// LoadDiagnostics reads and validates a diagnostics report. A missing file
// yields (nil, nil).
func LoadDiagnostics(path string) (*DiagnosticsSummary, error) {
	raw, err := readOptional(path)
	if err != nil || raw == nil {
		return nil, err
	}
	loader, err := loadSchema(&diagnosticsLoaderOnce, &diagnosticsLoader, &diagnosticsLoaderErr, schema.DiagnosticsReportSchema)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(path, loader, raw); err != nil {
		return nil, err
	}
	var summary DiagnosticsSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if summary.BySeverity == nil {
		summary.BySeverity = map[string]int{}
	}
	return &summary, nil
}

// LoadDependencySummary reads and validates the dependency patch manifest. A
// missing file yields (nil, nil).
func LoadDependencySummary(path string) (*DependencySummary, error) {
	raw, err := readOptional(path)
	if err != nil || raw == nil {
		return nil, err
	}
	loader, err := loadSchema(&summaryLoaderOnce, &summaryLoader, &summaryLoaderErr, schema.DependencySummarySchema)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(path, loader, raw); err != nil {
		return nil, err
	}
	var summary DependencySummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &summary, nil
}

func readOptional(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func validateDocument(path string, loader gojsonschema.JSONLoader, raw []byte) error {
	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return schemaValidationError{file: path, issues: issues}
}

func loadSchema(once *sync.Once, loader *gojsonschema.JSONLoader, loaderErr *error, build func() (map[string]any, error)) (gojsonschema.JSONLoader, error) {
	once.Do(func() {
		schemaMap, err := build()
		if err != nil {
			*loaderErr = fmt.Errorf("stage: load schema: %w", err)
			return
		}
		*loader = gojsonschema.NewGoLoader(schemaMap)
	})
	if *loaderErr != nil {
		return nil, *loaderErr
	}
	return *loader, nil
}
