// Package download implements the job orchestration core built on top of the
// extraction collaborator. It manages job lifecycle, a bounded pool of job
// workers, sequential per-target execution, progress aggregation, cooperative
// cancellation, job-scoped credential files, and retention of finished jobs.
package download
