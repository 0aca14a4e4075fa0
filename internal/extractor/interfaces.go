package extractor

import (
	"context"

	"github.com/anydl/any-downloader/internal/model"
)

// Progress is one translated collaborator progress event for the current
// download. Fraction is monotonic in 0.0..1.0 for the current target.
type Progress struct {
	DownloadedBytes int64
	TotalBytes      int64
	Fraction        float64
	Speed           string // human readable speed (e.g., "1.2MB/s")
	ETASec          int    // ETA in seconds, -1 if unknown
	Title           string // item title, once the collaborator reports it
}

// ProgressFunc receives push-style progress events during a download
type ProgressFunc func(Progress)

// MetadataOptions configure a no-download metadata query.
type MetadataOptions struct {
	// FlatEntries lists collection entries without resolving each item
	FlatEntries bool

	// EntryLimit bounds how many collection entries are listed (0 = all)
	EntryLimit int

	// CookieFile is an optional path to a job-scoped credential file
	CookieFile string
}

// DownloadOptions configure a download operation.
type DownloadOptions struct {
	// OutputTemplate is the collaborator's output path template
	OutputTemplate string

	// Mode selects best combined video+audio (merged) or best audio
	// transcoded to mp3
	Mode model.Mode

	// AudioQuality is the transcode bitrate for audio-only mode (e.g. "192K")
	AudioQuality string

	// CookieFile is an optional path to a job-scoped credential file
	CookieFile string

	// EntryLimit bounds how many items are fetched from a collection URL
	// (0 = all)
	EntryLimit int
}

// Result holds what the collaborator reported after a download.
type Result struct {
	// OutputPaths are the file paths the collaborator reported writing. May
	// be empty: not every extractor reports filenames, in which case the
	// orchestrator falls back to directory discovery.
	OutputPaths []string
}

// Extractor is the contract to the external extraction collaborator.
type Extractor interface {
	// ExtractMetadata describes a target without downloading it
	ExtractMetadata(ctx context.Context, sourceURL string, opts MetadataOptions) (*model.MetadataRecord, error)

	// Download fetches a target, writing files per the output template and
	// pushing progress events to onProgress when it is non-nil
	Download(ctx context.Context, sourceURL string, opts DownloadOptions, onProgress ProgressFunc) (*Result, error)
}
