// Package config resolves runtime settings from the environment with
// sensible defaults. Values come from process env vars, typically loaded
// from a .env file at startup.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anydl/any-downloader/internal/platform"
)

// Environment variable names
const (
	EnvListenAddr      = "ANYDL_LISTEN_ADDR"
	EnvOutputRoot      = "ANYDL_OUTPUT_ROOT"
	EnvDataDir         = "ANYDL_DATA_DIR"
	EnvMaxParallelJobs = "ANYDL_MAX_PARALLEL_JOBS"
	EnvPreviewLimit    = "ANYDL_PREVIEW_LIMIT"
	EnvCollectionLimit = "ANYDL_COLLECTION_LIMIT"
	EnvAudioQuality    = "ANYDL_AUDIO_QUALITY"
	EnvRetention       = "ANYDL_RETENTION"
)

// Defaults
const (
	DefaultListenAddr      = ":8090"
	DefaultMaxParallelJobs = 2
	DefaultPreviewLimit    = 12
	DefaultAudioQuality    = "192K"

	// DefaultCollectionLimit of 0 downloads every item a collection lists
	DefaultCollectionLimit = 0
	DefaultRetention       = 72 * time.Hour

	// MaxParallelJobsCeiling bounds the worker pool regardless of env input
	MaxParallelJobsCeiling = 10
)

// Config holds all runtime settings for the process
type Config struct {
	ListenAddr      string
	OutputRoot      string
	DataDir         string
	MaxParallelJobs int
	PreviewLimit    int
	CollectionLimit int
	AudioQuality    string
	Retention       time.Duration
}

// Load builds a Config from the environment, falling back to defaults for
// anything unset or unparsable.
func Load() *Config {
	cfg := &Config{
		ListenAddr:      getString(EnvListenAddr, DefaultListenAddr),
		OutputRoot:      getString(EnvOutputRoot, defaultOutputRoot()),
		MaxParallelJobs: getInt(EnvMaxParallelJobs, DefaultMaxParallelJobs),
		PreviewLimit:    getInt(EnvPreviewLimit, DefaultPreviewLimit),
		CollectionLimit: getInt(EnvCollectionLimit, DefaultCollectionLimit),
		AudioQuality:    getString(EnvAudioQuality, DefaultAudioQuality),
		Retention:       getDuration(EnvRetention, DefaultRetention),
	}
	cfg.DataDir = getString(EnvDataDir, filepath.Join(cfg.OutputRoot, ".data"))

	if cfg.MaxParallelJobs < 1 {
		cfg.MaxParallelJobs = 1
	}
	if cfg.MaxParallelJobs > MaxParallelJobsCeiling {
		cfg.MaxParallelJobs = MaxParallelJobsCeiling
	}
	if cfg.PreviewLimit < 1 {
		cfg.PreviewLimit = DefaultPreviewLimit
	}
	if cfg.CollectionLimit < 0 {
		cfg.CollectionLimit = DefaultCollectionLimit
	}

	return cfg
}

func defaultOutputRoot() string {
	downloads, err := platform.GetHomeDownloadsDir()
	if err != nil {
		return filepath.Join(".", "downloads")
	}
	return filepath.Join(downloads, "any-downloader")
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
