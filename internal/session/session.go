// Package session models one user session explicitly: a metadata cache and
// an optional auth context with a scoped lifetime, created at session start
// and discarded at session end, instead of ambient global state.
package session

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anydl/any-downloader/internal/cache"
	"github.com/anydl/any-downloader/internal/download"
	"github.com/anydl/any-downloader/internal/model"
)

// Session carries per-session state passed into orchestrator calls.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.RWMutex
	cache *cache.Cache
	auth  *model.AuthContext
}

// New starts a session with an empty metadata cache backed by fetcher
func New(fetcher cache.MetadataFetcher) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		cache:     cache.New(fetcher),
	}
}

// SetAuth stores the session's auth context. The cookie data is held in
// memory only and never logged.
func (s *Session) SetAuth(cookieData string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = &model.AuthContext{CookieData: cookieData}
}

// Auth returns the session's auth context, possibly nil
func (s *Session) Auth() *model.AuthContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// ClearAuth drops the session's credentials
func (s *Session) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = nil
}

// Preview returns cached-or-fetched metadata for a target using the session's
// stored credentials.
func (s *Session) Preview(ctx context.Context, target model.MediaTarget, previewLimit int) (*model.MetadataRecord, error) {
	return s.PreviewWithAuth(ctx, target, previewLimit, s.Auth())
}

// PreviewWithAuth is Preview with explicit caller-supplied credentials. The
// credentials are materialized into a short-lived file only for the duration
// of a cache miss and never enter the session's own auth context.
func (s *Session) PreviewWithAuth(ctx context.Context, target model.MediaTarget, previewLimit int, auth *model.AuthContext) (*model.MetadataRecord, error) {
	cookieFile := ""
	if !auth.IsEmpty() {
		tmpDir, err := os.MkdirTemp("", "preview-")
		if err != nil {
			return nil, &model.CredentialError{Err: err}
		}
		defer os.RemoveAll(tmpDir)

		cookieFile, err = download.WriteCredentialFile(tmpDir, auth)
		if err != nil {
			return nil, err
		}
	}

	return s.cache.GetOrFetch(ctx, target, cookieFile, previewLimit)
}

// ClearCache evicts all cached metadata for the session
func (s *Session) ClearCache() {
	s.cache.Clear()
}

// Close discards session state: cache and credentials
func (s *Session) Close() {
	s.ClearCache()
	s.ClearAuth()
}
