package download

import (
	"time"

	"github.com/anydl/any-downloader/internal/model"
)

// Orchestrator defines the interface for the download orchestration service.
type Orchestrator interface {
	SetUpdateCallback(func(*model.Job))
	Submit(targets []model.MediaTarget, mode model.Mode, auth *model.AuthContext) (*model.Job, error)
	GetJob(id string) (model.Job, bool)
	ListJobs() []model.Job
	Cancel(id string) error
	SweepExpired(olderThan time.Duration) int
}
