// Package schema holds the JSON schemas for the machine-readable files the
// upstream diagnostics and patch generators leave next to the staged patches.
package schema

import "encoding/json"

// DiagnosticsReportFile is the conventional location of the machine-readable
// CI diagnostics report, relative to the repository root.
const DiagnosticsReportFile = "diagnostics/report.json"

// DependencySummaryFile is written into the patch directory by the dependency
// patch generator.
const DependencySummaryFile = "DEPENDENCIES_PATCH_SUMMARY.json"

const diagnosticsReportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["timestamp", "total_issues", "issues", "by_severity"],
  "properties": {
    "timestamp": {"type": "string", "minLength": 1},
    "return_code": {"type": "integer"},
    "total_issues": {"type": "integer", "minimum": 0},
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "severity": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
          "fix": {"type": "string"}
        }
      }
    },
    "by_severity": {
      "type": "object",
      "properties": {
        "HIGH": {"type": "integer", "minimum": 0},
        "MEDIUM": {"type": "integer", "minimum": 0},
        "LOW": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

const dependencySummarySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["total_patches", "patches"],
  "properties": {
    "total_patches": {"type": "integer", "minimum": 0},
    "patches": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file", "dependency", "patch_file"],
        "properties": {
          "file": {"type": "string", "minLength": 1},
          "dependency": {"type": "string", "minLength": 1},
          "patch_file": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

// DiagnosticsReportSchema returns the schema for diagnostics/report.json.
func DiagnosticsReportSchema() (map[string]any, error) {
	return decode(diagnosticsReportSchema)
}

// DependencySummarySchema returns the schema for the dependency patch
// summary manifest.
func DependencySummarySchema() (map[string]any, error) {
	return decode(dependencySummarySchema)
}

func decode(raw string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
