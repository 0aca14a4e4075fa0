package session

import (
	"context"
	"sync"
	"testing"

	"github.com/anydl/any-downloader/internal/extractor"
	"github.com/anydl/any-downloader/internal/model"
)

type fakeFetcher struct {
	mu          sync.Mutex
	calls       int
	cookieFiles []string
}

func (f *fakeFetcher) ExtractMetadata(_ context.Context, sourceURL string, opts extractor.MetadataOptions) (*model.MetadataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cookieFiles = append(f.cookieFiles, opts.CookieFile)
	return &model.MetadataRecord{SourceURL: sourceURL, Kind: model.KindSingleVideo, Title: "clip"}, nil
}

func TestPreviewUsesCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(fetcher)

	target := model.MediaTarget{SourceURL: "https://example.com/v/1", Kind: model.KindSingleVideo}

	for i := 0; i < 3; i++ {
		record, err := s.Preview(context.Background(), target, 12)
		if err != nil {
			t.Fatalf("Preview failed: %v", err)
		}
		if record.Title != "clip" {
			t.Errorf("Expected title 'clip', got %q", record.Title)
		}
	}

	if fetcher.calls != 1 {
		t.Errorf("Expected 1 collaborator call, got %d", fetcher.calls)
	}
}

func TestPreviewWithAuthWritesCredentialFile(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(fetcher)
	s.SetAuth("# Netscape HTTP Cookie File\nexample.com\tTRUE\t/\tFALSE\t0\tsid\tabc")

	target := model.MediaTarget{SourceURL: "https://example.com/v/2", Kind: model.KindSingleVideo}
	if _, err := s.Preview(context.Background(), target, 12); err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(fetcher.cookieFiles) != 1 || fetcher.cookieFiles[0] == "" {
		t.Fatalf("Expected a credential file path to reach the collaborator, got %v", fetcher.cookieFiles)
	}
}

func TestPreviewWithAuthLeavesSessionCredentialsUntouched(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(fetcher)

	target := model.MediaTarget{SourceURL: "https://example.com/v/3", Kind: model.KindSingleVideo}
	auth := &model.AuthContext{CookieData: "caller-cookie"}
	if _, err := s.PreviewWithAuth(context.Background(), target, 12, auth); err != nil {
		t.Fatalf("PreviewWithAuth failed: %v", err)
	}

	if len(fetcher.cookieFiles) != 1 || fetcher.cookieFiles[0] == "" {
		t.Fatalf("Expected caller credentials to reach the collaborator, got %v", fetcher.cookieFiles)
	}
	if !s.Auth().IsEmpty() {
		t.Error("Expected caller credentials to stay out of the session")
	}
}

func TestAuthLifecycle(t *testing.T) {
	s := New(&fakeFetcher{})

	if !s.Auth().IsEmpty() {
		t.Error("Expected new session to carry no credentials")
	}

	s.SetAuth("cookie-data")
	if s.Auth().IsEmpty() {
		t.Error("Expected credentials after SetAuth")
	}

	s.Close()
	if !s.Auth().IsEmpty() {
		t.Error("Expected credentials to be dropped on Close")
	}
}

func TestDistinctSessionsHaveDistinctIDs(t *testing.T) {
	a := New(&fakeFetcher{})
	b := New(&fakeFetcher{})
	if a.ID == b.ID {
		t.Errorf("Expected distinct session IDs, both were %q", a.ID)
	}
}
