package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	err := CreateDirectoryIfNotExists(testDir)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	err = CreateDirectoryIfNotExists(testDir)
	if err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if downloadsDir == "" {
		t.Fatal("Downloads directory is empty")
	}

	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	// Pin the mtime explicitly: the filesystem timestamp clock can lag
	// time.Now(), which would place the file before a just-captured since
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("Failed to set mtime on %s: %v", name, err)
	}
	return path
}

func TestFindNewFiles(t *testing.T) {
	tempDir := t.TempDir()
	since := time.Now()

	video := writeFile(t, tempDir, "Some_Clip.mp4")
	partial := writeFile(t, tempDir, "Other_Clip.mp4.part")
	marker := writeFile(t, tempDir, "Other_Clip.mp4.ytdl")

	found, err := FindNewFiles(tempDir, since, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("Expected 1 file, got %d: %v", len(found), found)
	}
	if found[0] != video {
		t.Errorf("Expected %s, got %s", video, found[0])
	}

	_ = partial
	_ = marker
}

func TestFindNewFiles_SkipsClaimed(t *testing.T) {
	tempDir := t.TempDir()
	since := time.Now()

	first := writeFile(t, tempDir, "First.mp4")
	second := writeFile(t, tempDir, "Second.mp4")

	claimed := map[string]bool{first: true}

	found, err := FindNewFiles(tempDir, since, claimed)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("Expected 1 unclaimed file, got %d", len(found))
	}
	if found[0] != second {
		t.Errorf("Expected %s, got %s", second, found[0])
	}
}

func TestFindNewFiles_IgnoresOldFiles(t *testing.T) {
	tempDir := t.TempDir()

	old := writeFile(t, tempDir, "Old.mp4")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	found, err := FindNewFiles(tempDir, time.Now(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no files outside the discovery window, got %v", found)
	}
}

func TestFindNewFiles_IgnoresFilesPredatingSince(t *testing.T) {
	tempDir := t.TempDir()

	earlier := writeFile(t, tempDir, "Earlier.txt")
	past := time.Now().Add(-5 * time.Second)
	if err := os.Chtimes(earlier, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	// A file written before the download call began must never be attributed
	// to it, no matter how recent it is
	found, err := FindNewFiles(tempDir, time.Now(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no files modified before since, got %v", found)
	}
}

func TestFindNewestFile(t *testing.T) {
	tempDir := t.TempDir()
	since := time.Now()

	older := writeFile(t, tempDir, "Older.mp3")
	newer := writeFile(t, tempDir, "Newer.mp3")

	// Force distinct modification times
	if err := os.Chtimes(older, since, since); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
	later := since.Add(10 * time.Second)
	if err := os.Chtimes(newer, later, later); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}

	result, err := FindNewestFile(tempDir, since, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != newer {
		t.Errorf("Expected %s, got %s", newer, result)
	}
}

func TestFindNewestFile_Empty(t *testing.T) {
	tempDir := t.TempDir()

	_, err := FindNewestFile(tempDir, time.Now(), nil)
	if err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}
