package model

// JobState represents the lifecycle state of a download job
type JobState string

const (
	// JobStatePending means the job is queued but not started
	JobStatePending JobState = "Pending"

	// JobStateRunning means the job is executing its targets
	JobStateRunning JobState = "Running"

	// JobStatePartiallyFailed means the job finished with at least one
	// success and at least one failure
	JobStatePartiallyFailed JobState = "PartiallyFailed"

	// JobStateCompleted means every target produced exactly one output file
	JobStateCompleted JobState = "Completed"

	// JobStateFailed means the job finished without a single success
	JobStateFailed JobState = "Failed"
)

// String returns the string representation of JobState
func (js JobState) String() string {
	return string(js)
}

// IsActive returns true if the job is in an active state
func (js JobState) IsActive() bool {
	return js == JobStatePending || js == JobStateRunning
}

// IsFinished returns true if the job is in a terminal state
func (js JobState) IsFinished() bool {
	return js == JobStateCompleted || js == JobStatePartiallyFailed || js == JobStateFailed
}
