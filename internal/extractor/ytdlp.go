package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/anydl/any-downloader/internal/model"
)

// Format selectors passed to the collaborator
const (
	// VideoFormat selects best video+audio, falling back to best combined
	VideoFormat = "bv*+ba/b"

	// AudioFormat selects best audio-only stream, falling back to best
	AudioFormat = "ba/b"

	// MergeContainer is the container video downloads are merged into
	MergeContainer = "mp4"

	// AudioCodec is the post-processing transcode target for audio-only mode
	AudioCodec = "mp3"
)

// Defaults
const (
	DefaultAudioQuality = "192K"
	DefaultProgressFreq = 500 * time.Millisecond
)

// YTDLP adapts the go-ytdlp collaborator to the Extractor contract.
type YTDLP struct {
	progressFreq time.Duration
}

// NewYTDLP creates a collaborator adapter with default settings
func NewYTDLP() *YTDLP {
	return &YTDLP{
		progressFreq: DefaultProgressFreq,
	}
}

// SetProgressFrequency sets how often progress events are pushed
func (y *YTDLP) SetProgressFrequency(freq time.Duration) {
	if freq > 0 {
		y.progressFreq = freq
	}
}

// ExtractMetadata runs a no-download metadata query and maps the result into
// a MetadataRecord. Failures are wrapped in MetadataFetchError so callers can
// surface the collaborator's message and retry with different input.
func (y *YTDLP) ExtractMetadata(ctx context.Context, sourceURL string, opts MetadataOptions) (*model.MetadataRecord, error) {
	dl := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoWarnings()

	if opts.FlatEntries {
		dl = dl.FlatPlaylist()
	}
	if opts.EntryLimit > 0 {
		dl = dl.PlaylistEnd(opts.EntryLimit)
	}
	if opts.CookieFile != "" {
		dl = dl.Cookies(opts.CookieFile)
	}

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		return nil, &model.MetadataFetchError{SourceURL: sourceURL, Err: err}
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, &model.MetadataFetchError{SourceURL: sourceURL, Err: err}
	}
	if len(info) == 0 {
		return nil, &model.MetadataFetchError{SourceURL: sourceURL, Err: fmt.Errorf("collaborator returned no metadata")}
	}

	return recordFromInfo(sourceURL, info[0]), nil
}

// Download fetches one target. Per-item errors inside collection URLs are
// ignored by the collaborator so one bad item does not abort the rest.
func (y *YTDLP) Download(ctx context.Context, sourceURL string, opts DownloadOptions, onProgress ProgressFunc) (*Result, error) {
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		IgnoreErrors().
		NoWarnings().
		Output(opts.OutputTemplate)

	switch opts.Mode {
	case model.ModeAudioOnly:
		quality := opts.AudioQuality
		if quality == "" {
			quality = DefaultAudioQuality
		}
		dl = dl.Format(AudioFormat).
			ExtractAudio().
			AudioFormat(AudioCodec).
			AudioQuality(quality)
	default:
		dl = dl.Format(VideoFormat).
			MergeOutputFormat(MergeContainer)
	}

	if opts.CookieFile != "" {
		dl = dl.Cookies(opts.CookieFile)
	}
	if opts.EntryLimit > 0 {
		dl = dl.PlaylistEnd(opts.EntryLimit)
	}

	if onProgress != nil {
		dl.ProgressFunc(y.progressFreq, func(update ytdlp.ProgressUpdate) {
			onProgress(translateProgress(&update))
		})
	}

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	return &Result{OutputPaths: outputPathsFromResult(result)}, nil
}

// translateProgress converts a collaborator progress event into our
// monotonic 0..1 fraction plus display telemetry
func translateProgress(update *ytdlp.ProgressUpdate) Progress {
	progress := Progress{
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		ETASec:          -1,
	}

	if update.TotalBytes > 0 {
		progress.Fraction = float64(update.DownloadedBytes) / float64(update.TotalBytes)
		if progress.Fraction > 1.0 {
			progress.Fraction = 1.0
		}
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 {
			bytesPerSecond := float64(update.DownloadedBytes) / elapsed.Seconds()
			progress.Speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		}
	}

	if eta := update.ETA(); eta > 0 {
		progress.ETASec = int(eta.Seconds())
	}

	if update.Info != nil && update.Info.Title != nil {
		progress.Title = *update.Info.Title
	}

	return progress
}

// outputPathsFromResult collects the file paths the collaborator reported
func outputPathsFromResult(result *ytdlp.Result) []string {
	if result == nil {
		return nil
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil
	}

	var paths []string
	for _, item := range info {
		if item != nil && item.Filename != nil && *item.Filename != "" {
			paths = append(paths, *item.Filename)
		}
	}
	return paths
}

// recordFromInfo maps the collaborator's extracted info onto a MetadataRecord
func recordFromInfo(sourceURL string, info *ytdlp.ExtractedInfo) *model.MetadataRecord {
	record := &model.MetadataRecord{
		SourceURL: sourceURL,
		Kind:      model.KindSingleVideo,
		FetchedAt: time.Now(),
	}
	if info == nil {
		return record
	}

	if info.Title != nil {
		record.Title = *info.Title
	}
	if info.Uploader != nil {
		record.Uploader = *info.Uploader
	}
	if info.Duration != nil {
		record.DurationSeconds = *info.Duration
	}
	if info.Thumbnail != nil {
		record.ThumbnailURL = *info.Thumbnail
	}

	if len(info.Entries) > 0 {
		record.Kind = model.KindAccountCollection
		for _, entry := range info.Entries {
			if entry == nil {
				continue
			}
			child := recordFromInfo(entryURL(entry), entry)
			record.Entries = append(record.Entries, child)
		}
	}

	return record
}

// entryURL prefers the entry's resolved page URL, falling back to the raw URL
// flat extraction reports
func entryURL(entry *ytdlp.ExtractedInfo) string {
	if entry.WebpageURL != nil && *entry.WebpageURL != "" {
		return *entry.WebpageURL
	}
	if entry.URL != nil && *entry.URL != "" {
		return *entry.URL
	}
	return ""
}
