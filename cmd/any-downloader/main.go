package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anydl/any-downloader/internal/archive"
	"github.com/anydl/any-downloader/internal/config"
	"github.com/anydl/any-downloader/internal/database"
	"github.com/anydl/any-downloader/internal/download"
	"github.com/anydl/any-downloader/internal/extractor"
	"github.com/anydl/any-downloader/internal/model"
	"github.com/anydl/any-downloader/internal/platform"
	"github.com/anydl/any-downloader/internal/server"
	"github.com/anydl/any-downloader/internal/session"
)

// Timing constants
const (
	ShutdownTimeout = 10 * time.Second
	SweepInterval   = 1 * time.Hour
	PollInterval    = 500 * time.Millisecond
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	var (
		listenAddr = flag.String("listen", "", "listen address, overrides env")
		oneShotURL = flag.String("url", "", "download one URL and exit instead of serving")
		mode       = flag.String("mode", "video", "download mode: video or audio")
		account    = flag.Bool("account", false, "treat the URL as an account/collection page")
		limit      = flag.Int("limit", 0, "max items to download from a collection, 0 for all")
		cookieFile = flag.String("cookies", "", "path to a cookie file for restricted sources")
		zipOutput  = flag.Bool("zip", false, "package one-shot outputs into a zip archive")
	)
	flag.Parse()

	cfg := config.Load()
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := platform.CreateDirectoryIfNotExists(cfg.OutputRoot); err != nil {
		log.Fatalf("Failed to create output root %s: %v", cfg.OutputRoot, err)
	}

	ex := extractor.NewYTDLP()

	service := download.NewService(ex, cfg.OutputRoot, cfg.MaxParallelJobs)
	service.SetAudioQuality(cfg.AudioQuality)
	service.SetCollectionLimit(cfg.CollectionLimit)
	if *limit > 0 {
		service.SetCollectionLimit(*limit)
	}

	db, err := database.Init(cfg.DataDir)
	if err != nil {
		log.Printf("Job history unavailable, continuing in-memory: %v", err)
	} else {
		defer db.Close()
		repo, err := download.NewRepository(db)
		if err != nil {
			log.Printf("Job history unavailable, continuing in-memory: %v", err)
		} else {
			service.SetRepository(repo)
		}
	}

	packager := archive.NewService(cfg.OutputRoot)

	if *oneShotURL != "" {
		runOnce(service, packager, *oneShotURL, *mode, *account, *cookieFile, *zipOutput)
		return
	}

	serve(cfg, service, packager, ex)
}

// serve runs the HTTP API until interrupted, sweeping expired jobs on a timer
func serve(cfg *config.Config, service *download.Service, packager archive.Packager, ex extractor.Extractor) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(ex)
	defer sess.Close()

	srv := server.New(service, packager, sess, cfg.PreviewLimit, cfg.OutputRoot)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := service.SweepExpired(cfg.Retention); removed > 0 {
					log.Printf("Swept %d expired jobs", removed)
				}
			}
		}
	}()

	go func() {
		log.Printf("Listening on %s, output root %s", cfg.ListenAddr, cfg.OutputRoot)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}

// runOnce submits a single job, waits for it, and prints a summary
func runOnce(service *download.Service, packager archive.Packager, rawURL, rawMode string, account bool, cookieFile string, zipOutput bool) {
	jobMode := model.ModeVideo
	if rawMode == "audio" {
		jobMode = model.ModeAudioOnly
	}

	kind := model.KindSingleVideo
	if account {
		kind = model.KindAccountCollection
	}

	target, err := model.NewMediaTarget(rawURL, kind)
	if err != nil {
		log.Fatalf("Invalid URL: %v", err)
	}

	var auth *model.AuthContext
	if cookieFile != "" {
		data, err := os.ReadFile(cookieFile)
		if err != nil {
			log.Fatalf("Failed to read cookie file: %v", err)
		}
		auth = &model.AuthContext{CookieData: string(data)}
	}

	lastPercent := -1
	service.SetUpdateCallback(func(job *model.Job) {
		if job.OverallPercent != lastPercent {
			lastPercent = job.OverallPercent
			log.Printf("Progress: %d%% (target %d of %d)", job.OverallPercent, job.CurrentIndex+1, len(job.Targets))
		}
	})

	job, err := service.Submit([]model.MediaTarget{target}, jobMode, auth)
	if err != nil {
		log.Fatalf("Failed to submit job: %v", err)
	}

	var finished model.Job
	for {
		snapshot, ok := service.GetJob(job.ID)
		if !ok {
			log.Fatalf("Job %s disappeared", job.ID)
		}
		if snapshot.State.IsFinished() {
			finished = snapshot
			break
		}
		time.Sleep(PollInterval)
	}

	fmt.Printf("Job %s: %s, %s\n", finished.ID, finished.State, finished.Summary())
	for _, path := range finished.OutputPaths {
		fmt.Println("  " + path)
	}
	for _, targetErr := range finished.Errors {
		fmt.Printf("  failed %s: %s\n", targetErr.SourceURL, targetErr.Message)
	}

	if zipOutput && len(finished.OutputPaths) > 0 {
		archivePath, err := packager.Package(&finished)
		if err != nil {
			log.Fatalf("Failed to package outputs: %v", err)
		}
		fmt.Println("Archive: " + archivePath)
	}

	if len(finished.Errors) > 0 {
		os.Exit(1)
	}
}
