package model

import (
	"net/url"
	"strings"
)

// TargetKind distinguishes a single item from an account/collection page
type TargetKind string

const (
	// KindSingleVideo is one video or audio page URL
	KindSingleVideo TargetKind = "SingleVideo"

	// KindAccountCollection is a profile or playlist URL that lists many items
	KindAccountCollection TargetKind = "AccountCollection"
)

// Mode selects the desired output class for a job
type Mode string

const (
	// ModeVideo downloads best combined video+audio merged into one container
	ModeVideo Mode = "Video"

	// ModeAudioOnly downloads best audio and transcodes it to mp3
	ModeAudioOnly Mode = "AudioOnly"
)

// MediaTarget is a single piece of content to fetch.
type MediaTarget struct {
	SourceURL string     `json:"source_url"`
	Kind      TargetKind `json:"kind"`
}

// AuthContext is an opaque credential blob (a browser cookie dump) required
// for restricted sources. It lives for one session, is written to a job-scoped
// credential file immediately before use, and is never logged or persisted.
type AuthContext struct {
	CookieData string `json:"-"`
}

// IsEmpty reports whether the context carries no credentials
func (a *AuthContext) IsEmpty() bool {
	return a == nil || strings.TrimSpace(a.CookieData) == ""
}

// NewMediaTarget validates the URL and returns a target of the given kind
func NewMediaTarget(sourceURL string, kind TargetKind) (MediaTarget, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return MediaTarget{}, &ValidationError{Reason: "source URL is empty"}
	}

	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return MediaTarget{}, &ValidationError{Reason: "source URL is not well-formed: " + sourceURL}
	}

	return MediaTarget{SourceURL: sourceURL, Kind: kind}, nil
}
