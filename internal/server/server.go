// Package server exposes the orchestrator over an HTTP API.
package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/anydl/any-downloader/internal/archive"
	"github.com/anydl/any-downloader/internal/download"
	"github.com/anydl/any-downloader/internal/model"
	"github.com/anydl/any-downloader/internal/session"
)

// Server wires the HTTP handlers to the orchestration services
type Server struct {
	orchestrator download.Orchestrator
	packager     archive.Packager
	session      *session.Session
	previewLimit int
	outputRoot   string
}

// New creates a Server over the given services
func New(orchestrator download.Orchestrator, packager archive.Packager, sess *session.Session, previewLimit int, outputRoot string) *Server {
	return &Server{
		orchestrator: orchestrator,
		packager:     packager,
		session:      sess,
		previewLimit: previewLimit,
		outputRoot:   outputRoot,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.POST("/preview", s.handlePreview)
		api.POST("/jobs", s.handleSubmit)
		api.GET("/jobs", s.handleListJobs)
		api.GET("/jobs/:id", s.handleGetJob)
		api.POST("/jobs/:id/cancel", s.handleCancel)
		api.GET("/jobs/:id/archive", s.handleArchive)
		api.GET("/system", s.handleSystem)
	}

	return router
}

type previewRequest struct {
	URL    string `json:"url" binding:"required"`
	Kind   string `json:"kind"`
	Cookie string `json:"cookie"`
}

type submitRequest struct {
	URLs   []string `json:"urls" binding:"required"`
	Kind   string   `json:"kind"`
	Mode   string   `json:"mode" binding:"required"`
	Cookie string   `json:"cookie"`
}

// handlePreview returns cached-or-fetched metadata for one target. For
// collections the entry list is capped at the preview limit.
func (s *Server) handlePreview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := model.NewMediaTarget(req.URL, parseKind(req.Kind))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Request cookies stay request-scoped; they never enter the shared
	// session, which would hand one client's credentials to the next
	var auth *model.AuthContext
	if req.Cookie != "" {
		auth = &model.AuthContext{CookieData: req.Cookie}
	}

	record, err := s.session.PreviewWithAuth(c.Request.Context(), target, s.previewLimit, auth)
	if err != nil {
		var fetchErr *model.MetadataFetchError
		if errors.As(err, &fetchErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleSubmit validates the request and registers a new job
func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, ok := parseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'video' or 'audio'"})
		return
	}

	kind := parseKind(req.Kind)
	targets := make([]model.MediaTarget, 0, len(req.URLs))
	for _, rawURL := range req.URLs {
		target, err := model.NewMediaTarget(rawURL, kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		targets = append(targets, target)
	}

	// Only an explicitly supplied cookie reaches the job; there is no stored
	// fallback to inherit another client's credentials from
	var auth *model.AuthContext
	if req.Cookie != "" {
		auth = &model.AuthContext{CookieData: req.Cookie}
	}

	job, err := s.orchestrator.Submit(targets, mode, auth)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "state": job.State})
}

// handleListJobs returns snapshots of all known jobs
func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.orchestrator.ListJobs()})
}

// handleGetJob returns a snapshot of one job
func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.orchestrator.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleCancel requests cooperative cancellation of a job
func (s *Server) handleCancel(c *gin.Context) {
	err := s.orchestrator.Cancel(c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "cancellation requested"})
	case errors.Is(err, download.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, download.ErrJobFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleArchive packages a finished job's outputs into a zip and serves it
func (s *Server) handleArchive(c *gin.Context) {
	job, ok := s.orchestrator.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if !job.State.IsFinished() {
		c.JSON(http.StatusConflict, gin.H{"error": "job is still active"})
		return
	}

	archivePath, err := s.packager.Package(&job)
	if err != nil {
		var packErr *model.PackagingError
		if errors.As(err, &packErr) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(archivePath, filepath.Base(archivePath))
}

// handleSystem reports host resources relevant to running downloads
func (s *Server) handleSystem(c *gin.Context) {
	payload := gin.H{"goroutines": runtime.NumGoroutine()}

	if usage, err := disk.Usage(s.outputRoot); err == nil {
		payload["disk_total_bytes"] = usage.Total
		payload["disk_free_bytes"] = usage.Free
		payload["disk_used_percent"] = usage.UsedPercent
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		payload["mem_total_bytes"] = vm.Total
		payload["mem_used_percent"] = vm.UsedPercent
	}

	c.JSON(http.StatusOK, payload)
}

// parseMode maps an API mode string to the job mode
func parseMode(raw string) (model.Mode, bool) {
	switch raw {
	case "video", string(model.ModeVideo):
		return model.ModeVideo, true
	case "audio", string(model.ModeAudioOnly):
		return model.ModeAudioOnly, true
	default:
		return "", false
	}
}

// parseKind maps an API kind string to the target kind, defaulting to a
// single video
func parseKind(raw string) model.TargetKind {
	switch raw {
	case "account", "collection", string(model.KindAccountCollection):
		return model.KindAccountCollection
	default:
		return model.KindSingleVideo
	}
}
