package model

import (
	"fmt"
	"time"
)

// MetadataRecord is the cached description of a MediaTarget as reported by
// the extraction collaborator. Every display field is optional; the
// collaborator may omit any of them.
type MetadataRecord struct {
	SourceURL       string            `json:"source_url"`
	Kind            TargetKind        `json:"kind"`
	Title           string            `json:"title,omitempty"`
	Uploader        string            `json:"uploader,omitempty"`
	DurationSeconds float64           `json:"duration_seconds,omitempty"`
	ThumbnailURL    string            `json:"thumbnail_url,omitempty"`
	Entries         []*MetadataRecord `json:"entries,omitempty"`
	FetchedAt       time.Time         `json:"fetched_at"`
}

// IsCollection reports whether the record describes an account or playlist
// rather than a single item
func (m *MetadataRecord) IsCollection() bool {
	return m.Kind == KindAccountCollection || len(m.Entries) > 0
}

// EntryCount returns the number of child entries
func (m *MetadataRecord) EntryCount() int {
	return len(m.Entries)
}

// FirstN returns up to n child entries in the collaborator's listing order.
// Listing order is preserved so "first N" selection is stable across calls.
func (m *MetadataRecord) FirstN(n int) []*MetadataRecord {
	if n <= 0 || n >= len(m.Entries) {
		return m.Entries
	}
	return m.Entries[:n]
}

// DisplayTitle returns the title or the source URL when no title is known
func (m *MetadataRecord) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.SourceURL
}

// DurationString formats the duration as mm:ss or hh:mm:ss, or "—" if unknown
func (m *MetadataRecord) DurationString() string {
	total := int(m.DurationSeconds)
	if total <= 0 {
		return "—"
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
