package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/anydl/any-downloader/internal/extractor"
	"github.com/anydl/any-downloader/internal/model"
	"github.com/anydl/any-downloader/internal/platform"
)

// Job identifier constants
const (
	JobIDPrefix = "job-"
)

// Output constants
const (
	// OutputTemplateName caps titles at 100 characters, matching the
	// collaborator's template syntax
	OutputTemplateName = "%(title).100s.%(ext)s"

	// AudioExtension is the extension audio-only outputs carry after the
	// collaborator's transcode step
	AudioExtension = ".mp3"
)

// Sentinel errors callers can match with errors.Is
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// Resource guards
const (
	// MinFreeDiskBytes is the least free space the output root may have
	// before new jobs are refused
	MinFreeDiskBytes = 512 * 1024 * 1024
)

// Service orchestrates download jobs against the extraction collaborator.
type Service struct {
	jobs        map[string]*model.Job
	auths       map[string]*model.AuthContext
	cancelled   map[string]bool
	jobsMutex   sync.RWMutex
	maxParallel int
	activeCount int

	extractor       extractor.Extractor
	outputRoot      string
	audioQuality    string
	collectionLimit int
	repo            *Repository
	onUpdate        func(*model.Job) // callback for the progress sink
}

// NewService creates a new orchestration service writing under outputRoot
func NewService(ex extractor.Extractor, outputRoot string, maxParallel int) *Service {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Service{
		jobs:        make(map[string]*model.Job),
		auths:       make(map[string]*model.AuthContext),
		cancelled:   make(map[string]bool),
		maxParallel: maxParallel,
		extractor:   ex,
		outputRoot:  outputRoot,
	}
}

// SetUpdateCallback sets the callback function for job updates
func (s *Service) SetUpdateCallback(callback func(*model.Job)) {
	s.onUpdate = callback
}

// SetRepository attaches the job history store. Without one the service is
// purely in-memory.
func (s *Service) SetRepository(repo *Repository) {
	s.repo = repo
}

// SetAudioQuality overrides the transcode bitrate for audio-only jobs
func (s *Service) SetAudioQuality(quality string) {
	s.audioQuality = quality
}

// SetCollectionLimit caps how many items an account/collection target may
// download. Zero means no cap.
func (s *Service) SetCollectionLimit(limit int) {
	if limit >= 0 {
		s.collectionLimit = limit
	}
}

// Submit validates the request, registers a job, and starts it when a worker
// slot is free. The job runs on its own worker; the caller is never blocked.
func (s *Service) Submit(targets []model.MediaTarget, mode model.Mode, auth *model.AuthContext) (*model.Job, error) {
	job, err := model.NewJob(newJobID(), targets, mode)
	if err != nil {
		return nil, err
	}
	job.Dir = filepath.Join(s.outputRoot, job.ID)

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	if !auth.IsEmpty() {
		s.auths[job.ID] = auth
	}
	// Claim the worker slot and state before the goroutine starts so a burst
	// of submissions can never exceed maxParallel
	if s.activeCount < s.maxParallel {
		s.activeCount++
		job.State = model.JobStateRunning
		go s.runJob(job)
	}
	s.jobsMutex.Unlock()

	s.persist(job)
	return job, nil
}

// GetJob returns a snapshot of a job by ID
func (s *Service) GetJob(id string) (model.Job, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return model.Job{}, false
	}
	return job.Snapshot(), true
}

// ListJobs returns snapshots of all known jobs
func (s *Service) ListJobs() []model.Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	return jobs
}

// Cancel requests cooperative cancellation. The signal is checked between
// targets, never mid-download; already-completed targets keep their outputs.
func (s *Service) Cancel(id string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.State.IsFinished() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.State)
	}

	s.cancelled[id] = true
	return nil
}

// SweepExpired discards finished jobs older than the retention window along
// with their output directories. Returns how many jobs were discarded.
func (s *Service) SweepExpired(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	s.jobsMutex.Lock()
	var expired []*model.Job
	for id, job := range s.jobs {
		if job.State.IsFinished() && !job.FinishedAt.IsZero() && job.FinishedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(s.jobs, id)
			delete(s.cancelled, id)
		}
	}
	s.jobsMutex.Unlock()

	for _, job := range expired {
		if job.Dir != "" {
			if err := os.RemoveAll(job.Dir); err != nil {
				log.Printf("Failed to remove expired job dir %s: %v", job.Dir, err)
			}
		}
		if s.repo != nil {
			if err := s.repo.DeleteJob(job.ID); err != nil {
				log.Printf("Failed to delete expired job %s from history: %v", job.ID, err)
			}
		}
	}
	return len(expired)
}

// runJob executes a job's targets sequentially on a dedicated worker
func (s *Service) runJob(job *model.Job) {
	s.jobsMutex.Lock()
	job.StartedAt = time.Now()
	auth := s.auths[job.ID]
	s.jobsMutex.Unlock()

	s.notifyUpdate(job)

	defer func() {
		s.jobsMutex.Lock()
		s.activeCount--
		delete(s.auths, job.ID)
		s.jobsMutex.Unlock()

		s.startNextPendingJob()
	}()

	if err := platform.CreateDirectoryIfNotExists(job.Dir); err != nil {
		s.failAllTargets(job, fmt.Sprintf("failed to create job directory: %v", err))
		return
	}

	if !s.hasFreeDiskSpace() {
		s.failAllTargets(job, "insufficient free disk space in output root")
		return
	}

	cookieFile, err := WriteCredentialFile(job.Dir, auth)
	if err != nil {
		s.failAllTargets(job, err.Error())
		return
	}
	defer RemoveCredentialFile(cookieFile)

	// The credential file lives in the job dir; claim it up front so the
	// discovery fallback can never attribute it as a media output
	claimed := make(map[string]bool)
	if cookieFile != "" {
		claimed[cookieFile] = true
	}
	ctx := context.Background()

	for i, target := range job.Targets {
		if s.isCancelled(job.ID) {
			s.markRemainingCancelled(job, i)
			break
		}

		s.jobsMutex.Lock()
		job.CurrentIndex = i
		job.CurrentPercent = 0
		job.Speed = ""
		job.ETASec = -1
		s.jobsMutex.Unlock()
		s.notifyUpdate(job)

		started := time.Now()
		opts := extractor.DownloadOptions{
			OutputTemplate: filepath.Join(job.Dir, OutputTemplateName),
			Mode:           job.Mode,
			AudioQuality:   s.audioQuality,
			CookieFile:     cookieFile,
		}
		if target.Kind == model.KindAccountCollection {
			opts.EntryLimit = s.collectionLimit
		}

		result, err := s.extractor.Download(ctx, target.SourceURL, opts, func(p extractor.Progress) {
			s.updateJobProgress(job, p)
		})
		if err != nil {
			log.Printf("Job %s target %d failed: %v", job.ID, i, err)
			s.jobsMutex.Lock()
			job.MarkTargetFailure(target, model.ErrorKindDownload, err.Error())
			job.OverallPercent = job.Progress(0)
			s.jobsMutex.Unlock()
			s.notifyUpdate(job)
			s.persist(job)
			continue
		}

		path := s.resolveOutputPath(job, result, started, claimed)
		s.jobsMutex.Lock()
		if path == "" {
			job.MarkTargetFailure(target, model.ErrorKindDownload, "collaborator produced no output file")
		} else {
			claimed[path] = true
			job.MarkTargetSuccess(path)
			job.CurrentPercent = 100
		}
		job.OverallPercent = job.Progress(0)
		s.jobsMutex.Unlock()
		s.notifyUpdate(job)
		s.persist(job)
	}

	s.jobsMutex.Lock()
	job.FinishedAt = time.Now()
	if job.State == model.JobStateCompleted {
		job.OverallPercent = 100
	}
	s.jobsMutex.Unlock()

	s.notifyUpdate(job)
	s.persist(job)
	log.Printf("Job %s finished: %s (%s)", job.ID, job.State, job.Summary())
}

// markRemainingCancelled records a Cancelled error for every target from
// index on. Already-completed targets keep their output paths.
func (s *Service) markRemainingCancelled(job *model.Job, from int) {
	s.jobsMutex.Lock()
	for _, target := range job.Targets[from:] {
		job.MarkTargetFailure(target, model.ErrorKindCancelled, "job cancelled")
	}
	s.jobsMutex.Unlock()
	s.notifyUpdate(job)
	s.persist(job)
}

// failAllTargets settles every unsettled target with the same failure. Used
// for setup failures that precede any download.
func (s *Service) failAllTargets(job *model.Job, message string) {
	s.jobsMutex.Lock()
	for i := job.CompletedTargets(); i < len(job.Targets); i++ {
		job.MarkTargetFailure(job.Targets[i], model.ErrorKindDownload, message)
	}
	job.FinishedAt = time.Now()
	s.jobsMutex.Unlock()
	s.notifyUpdate(job)
	s.persist(job)
}

// updateJobProgress translates a collaborator progress event into job-level
// telemetry. The per-target percentage never moves backwards.
func (s *Service) updateJobProgress(job *model.Job, progress extractor.Progress) {
	s.jobsMutex.Lock()

	percent := int(progress.Fraction * 100)
	if percent > job.CurrentPercent {
		job.CurrentPercent = percent
	}
	job.OverallPercent = job.Progress(float64(job.CurrentPercent) / 100)
	if progress.Speed != "" {
		job.Speed = progress.Speed
	}
	job.ETASec = progress.ETASec

	s.jobsMutex.Unlock()
	s.notifyUpdate(job)
}

// resolveOutputPath maps a finished download to the file it produced. The
// collaborator-reported path wins; scanning the job directory for new files
// is the fallback, bounded to the job's own directory and unclaimed paths.
func (s *Service) resolveOutputPath(job *model.Job, result *extractor.Result, started time.Time, claimed map[string]bool) string {
	if result != nil {
		for _, reported := range result.OutputPaths {
			candidate := reported
			if job.Mode == model.ModeAudioOnly {
				// Post-processing replaces the container the collaborator
				// reported before transcoding
				candidate = strings.TrimSuffix(reported, filepath.Ext(reported)) + AudioExtension
			}
			if !claimed[candidate] {
				if _, err := os.Stat(candidate); err == nil {
					return candidate
				}
			}
			if !claimed[reported] {
				if _, err := os.Stat(reported); err == nil {
					return reported
				}
			}
		}
	}

	path, err := platform.FindNewestFile(job.Dir, started, claimed)
	if err != nil {
		return ""
	}
	return path
}

// startNextPendingJob starts the oldest pending job if a worker slot is free
func (s *Service) startNextPendingJob() {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if s.activeCount >= s.maxParallel {
		return
	}

	var next *model.Job
	for _, job := range s.jobs {
		if job.State != model.JobStatePending {
			continue
		}
		if next == nil || job.CreatedAt.Before(next.CreatedAt) {
			next = job
		}
	}
	if next != nil {
		s.activeCount++
		next.State = model.JobStateRunning
		go s.runJob(next)
	}
}

// isCancelled reports whether cancellation was requested for the job
func (s *Service) isCancelled(id string) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return s.cancelled[id]
}

// hasFreeDiskSpace checks the output root before starting a job. When usage
// cannot be determined the job proceeds.
func (s *Service) hasFreeDiskSpace() bool {
	usage, err := disk.Usage(s.outputRoot)
	if err != nil {
		return true
	}
	return usage.Free >= MinFreeDiskBytes
}

// notifyUpdate calls the update callback with a snapshot if set
func (s *Service) notifyUpdate(job *model.Job) {
	if s.onUpdate != nil {
		s.onUpdate(job)
	}
}

// persist saves the job state to the history store if one is attached
func (s *Service) persist(job *model.Job) {
	if s.repo == nil {
		return
	}
	snapshot := func() model.Job {
		s.jobsMutex.RLock()
		defer s.jobsMutex.RUnlock()
		return job.Snapshot()
	}()
	if err := s.repo.SaveJob(&snapshot); err != nil {
		log.Printf("Failed to persist job %s: %v", job.ID, err)
	}
}

// newJobID generates a unique job ID using UUID v7 for time ordering
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}
