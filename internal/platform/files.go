package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// In-flight file extensions the collaborator leaves behind and discovery
// must never claim
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp", ".aria2"}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// FindNewFiles scans dir for completed files modified at or after since —
// never earlier, so only files written after the download call began can be
// attributed to it — and not yet present in claimed. It is the fallback when
// the collaborator does not report the path it wrote; the scan is only sound
// because every job owns its own directory. Results come back oldest first so
// multi-file downloads keep their production order.
func FindNewFiles(dir string, since time.Time, claimed map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []string
	modTimes := make(map[string]time.Time)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isInFlightFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if claimed[path] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(since) {
			continue
		}

		found = append(found, path)
		modTimes[path] = info.ModTime()
	}

	sort.Slice(found, func(i, j int) bool {
		return modTimes[found[i]].Before(modTimes[found[j]])
	})

	return found, nil
}

// FindNewestFile returns the most recently modified unclaimed file in dir, or
// an error when nothing matches
func FindNewestFile(dir string, since time.Time, claimed map[string]bool) (string, error) {
	found, err := FindNewFiles(dir, since, claimed)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no new files found in %s", dir)
	}
	return found[len(found)-1], nil
}

// isInFlightFile reports whether the name belongs to a partial or metadata
// file the collaborator is still writing
func isInFlightFile(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
