// Package extractor defines the boundary to the external media-extraction
// collaborator (yt-dlp, driven via github.com/lrstanley/go-ytdlp). The
// collaborator owns all site-specific scraping, format negotiation, and
// muxing; this package only maps our domain options onto it and translates
// its progress events back.
package extractor
