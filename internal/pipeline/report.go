package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// FailureRecord is one file the build could not produce, with its cause.
type FailureRecord struct {
	Stage string `json:"stage"`
	File  string `json:"file"`
	Error string `json:"error"`
}

// StageSummary captures the per-stage counters surfaced in the report.
type StageSummary struct {
	Processed uint          `json:"processed"`
	Failed    int           `json:"failed"`
	Symlinks  int           `json:"symlinks_skipped,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BuildReport captures everything one build invocation did. Failures are
// additive across stages; the exit status derives from their total count.
type BuildReport struct {
	SchemaVersion int                     `json:"schema_version"`
	BuildID       string                  `json:"build_id"`
	Target        string                  `json:"target"`
	SourceRoot    string                  `json:"source_root"`
	DestRoot      string                  `json:"dest_root"`
	Start         time.Time               `json:"start"`
	End           time.Time               `json:"end"`
	Stages        map[string]StageSummary `json:"stages"`
	StageOrder    []string                `json:"stage_order"`
	Processed     uint                    `json:"processed"`
	Failed        int                     `json:"failed"`
	Failures      []FailureRecord         `json:"failures"`
	Outcome       BuildOutcome            `json:"outcome"`
}

func newBuildReport(buildID, target, sourceRoot, destRoot string) *BuildReport {
	return &BuildReport{
		SchemaVersion: 1,
		BuildID:       buildID,
		Target:        target,
		SourceRoot:    sourceRoot,
		DestRoot:      destRoot,
		Start:         time.Now(),
		Stages:        make(map[string]StageSummary),
	}
}

func (r *BuildReport) finish(canceled bool) {
	r.End = time.Now()
	switch {
	case canceled:
		r.Outcome = OutcomeCanceled
	case r.Failed > 0:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("target=%s processed=%d failed=%d stages=%d duration=%s outcome=%s",
		r.Target, r.Processed, r.Failed, len(r.Stages), dur.Truncate(time.Millisecond), r.Outcome)
}

// Persist writes the report atomically into root:
//
//	build-report.json  (machine readable)
//	build-report.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change the
// build outcome.
func (r *BuildReport) Persist(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(root, "build-report.json")
	tmpJSON := jsonPath + ".tmp"
	if err := os.WriteFile(tmpJSON, jb, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmpJSON, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	summaryPath := filepath.Join(root, "build-report.txt")
	tmpTxt := summaryPath + ".tmp"
	if err := os.WriteFile(tmpTxt, []byte(r.Summary()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write temp report summary: %w", err)
	}
	if err := os.Rename(tmpTxt, summaryPath); err != nil {
		return fmt.Errorf("atomic rename summary: %w", err)
	}
	return nil
}
