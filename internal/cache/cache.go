// Package cache memoizes extraction-collaborator metadata lookups for one
// session. Entries never expire on their own; they are evicted only by an
// explicit Clear or process restart, which is acceptable for short-lived
// sessions.
package cache

import (
	"context"
	"sync"

	"github.com/anydl/any-downloader/internal/extractor"
	"github.com/anydl/any-downloader/internal/model"
)

// Key is the composite cache key. The auth context itself never enters the
// key, only whether one was present.
type Key struct {
	SourceURL    string
	HasAuth      bool
	PreviewLimit int
}

// MetadataFetcher is the slice of the collaborator contract the cache needs.
type MetadataFetcher interface {
	ExtractMetadata(ctx context.Context, sourceURL string, opts extractor.MetadataOptions) (*model.MetadataRecord, error)
}

// Cache memoizes metadata lookups by (url, has-auth, preview-limit).
type Cache struct {
	mu      sync.RWMutex
	records map[Key]*model.MetadataRecord
	fetcher MetadataFetcher
}

// New creates an empty cache backed by the given fetcher
func New(fetcher MetadataFetcher) *Cache {
	return &Cache{
		records: make(map[Key]*model.MetadataRecord),
		fetcher: fetcher,
	}
}

// GetOrFetch returns the cached record for the target or queries the
// collaborator on a miss. Collection entries are truncated to previewLimit
// before storing. Nothing is stored when the collaborator fails; the error is
// surfaced for display and the caller decides whether to retry.
func (c *Cache) GetOrFetch(ctx context.Context, target model.MediaTarget, cookieFile string, previewLimit int) (*model.MetadataRecord, error) {
	key := Key{
		SourceURL:    target.SourceURL,
		HasAuth:      cookieFile != "",
		PreviewLimit: previewLimit,
	}

	c.mu.RLock()
	record, hit := c.records[key]
	c.mu.RUnlock()
	if hit {
		return record, nil
	}

	opts := extractor.MetadataOptions{
		FlatEntries: target.Kind == model.KindAccountCollection,
		EntryLimit:  previewLimit,
		CookieFile:  cookieFile,
	}

	record, err := c.fetcher.ExtractMetadata(ctx, target.SourceURL, opts)
	if err != nil {
		return nil, err
	}

	if record.IsCollection() && previewLimit > 0 && len(record.Entries) > previewLimit {
		record.Entries = record.Entries[:previewLimit]
	}

	c.mu.Lock()
	c.records[key] = record
	c.mu.Unlock()

	return record, nil
}

// Clear evicts every cached record
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[Key]*model.MetadataRecord)
}

// Len returns the number of cached records
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
