package model

import (
	"fmt"
	"time"
)

// Job represents one orchestrated download operation over an ordered set of
// targets. A Job is created when a user submits a download request and is
// mutated only by the download orchestrator.
type Job struct {
	ID          string        `json:"id"`
	Targets     []MediaTarget `json:"targets"`
	Mode        Mode          `json:"mode"`
	State       JobState      `json:"state"`
	OutputPaths []string      `json:"output_paths"`
	Errors      []TargetError `json:"errors"`

	// Dir is the job's dedicated subdirectory under the shared output root.
	// Per-job directories keep one job's file discovery from claiming another
	// job's in-flight files.
	Dir string `json:"dir"`

	// Runtime telemetry for the progress sink
	CurrentIndex   int    `json:"current_index"`
	CurrentPercent int    `json:"current_percent"`
	OverallPercent int    `json:"overall_percent"`
	Speed          string `json:"speed,omitempty"`
	ETASec         int    `json:"eta_sec"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewJob validates the request and returns a pending job. It fails with
// ValidationError if targets is empty or any target is malformed.
func NewJob(id string, targets []MediaTarget, mode Mode) (*Job, error) {
	if len(targets) == 0 {
		return nil, &ValidationError{Reason: "job has no targets"}
	}
	if mode != ModeVideo && mode != ModeAudioOnly {
		return nil, &ValidationError{Reason: "unknown mode: " + string(mode)}
	}
	for _, target := range targets {
		if target.SourceURL == "" {
			return nil, &ValidationError{Reason: "target has empty source URL"}
		}
	}

	return &Job{
		ID:        id,
		Targets:   append([]MediaTarget(nil), targets...),
		Mode:      mode,
		State:     JobStatePending,
		ETASec:    -1,
		CreatedAt: time.Now(),
	}, nil
}

// MarkTargetSuccess appends an output path for one target and recomputes the
// job state. OutputPaths keeps the submission order of targets minus failures.
func (j *Job) MarkTargetSuccess(path string) {
	j.OutputPaths = append(j.OutputPaths, path)
	j.recomputeState()
}

// MarkTargetFailure records a per-target error and recomputes the job state.
// A single bad target never aborts the batch.
func (j *Job) MarkTargetFailure(target MediaTarget, kind TargetErrorKind, message string) {
	j.Errors = append(j.Errors, TargetError{
		SourceURL: target.SourceURL,
		Kind:      kind,
		Message:   message,
	})
	j.recomputeState()
}

// recomputeState applies the state invariant: Completed only when every
// target produced exactly one output path; any failure yields PartiallyFailed
// (with at least one success) or Failed (with none).
func (j *Job) recomputeState() {
	settled := len(j.OutputPaths) + len(j.Errors)
	if settled < len(j.Targets) {
		j.State = JobStateRunning
		return
	}

	switch {
	case len(j.Errors) == 0:
		j.State = JobStateCompleted
	case len(j.OutputPaths) > 0:
		j.State = JobStatePartiallyFailed
	default:
		j.State = JobStateFailed
	}
}

// CompletedTargets returns how many targets have settled, success or failure
func (j *Job) CompletedTargets() int {
	return len(j.OutputPaths) + len(j.Errors)
}

// Progress returns the overall job percentage combining settled targets with
// the fraction of the target currently downloading.
func (j *Job) Progress(currentFraction float64) int {
	total := len(j.Targets)
	if total == 0 {
		return 0
	}
	if currentFraction < 0 {
		currentFraction = 0
	}
	if currentFraction > 1 {
		currentFraction = 1
	}

	overall := (float64(j.CompletedTargets()) + currentFraction) / float64(total) * 100
	if overall > 100 {
		overall = 100
	}
	return int(overall)
}

// Snapshot returns a deep copy safe to hand to callers while the orchestrator
// keeps mutating the original.
func (j *Job) Snapshot() Job {
	copied := *j
	copied.Targets = append([]MediaTarget(nil), j.Targets...)
	copied.OutputPaths = append([]string(nil), j.OutputPaths...)
	copied.Errors = append([]TargetError(nil), j.Errors...)
	return copied
}

// Summary describes the outcome for display: success count plus every failed
// target with its reason. A partially failed job is never presented as a full
// success.
func (j *Job) Summary() string {
	switch j.State {
	case JobStateCompleted:
		return "all targets downloaded"
	case JobStateFailed:
		return "no targets downloaded"
	case JobStatePartiallyFailed:
		return fmt.Sprintf("downloaded %d of %d targets", len(j.OutputPaths), len(j.Targets))
	default:
		return string(j.State)
	}
}
