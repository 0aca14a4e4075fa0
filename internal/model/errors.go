package model

import "fmt"

// TargetErrorKind classifies why a single target failed inside a job
type TargetErrorKind string

const (
	// ErrorKindDownload means the collaborator failed to fetch the target
	ErrorKindDownload TargetErrorKind = "Download"

	// ErrorKindCancelled means the job was cancelled before the target ran
	ErrorKindCancelled TargetErrorKind = "Cancelled"
)

// TargetError records a per-target failure inside a job. It never aborts the
// containing job.
type TargetError struct {
	SourceURL string          `json:"source_url"`
	Kind      TargetErrorKind `json:"kind"`
	Message   string          `json:"message"`
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s failed (%s): %s", e.SourceURL, e.Kind, e.Message)
}

// ValidationError reports empty or malformed input, caught before any I/O.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// MetadataFetchError means the collaborator could not describe a target
// (private account, blocked content, invalid URL). The underlying collaborator
// message is preserved for display.
type MetadataFetchError struct {
	SourceURL string
	Err       error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("metadata fetch failed for %s: %v", e.SourceURL, e.Err)
}

func (e *MetadataFetchError) Unwrap() error {
	return e.Err
}

// PackagingError reports a failed archive request: nothing to archive, or a
// filesystem failure while staging or zipping.
type PackagingError struct {
	JobID string
	Err   error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed for job %s: %v", e.JobID, e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

// CredentialError means the auth context could not be written to or removed
// from its job-scoped credential file.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential file error: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
