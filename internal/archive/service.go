// Package archive bundles a job's output files into a single compressed
// artifact. Originals are copied, never moved, so every file stays
// individually downloadable after packaging.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anydl/any-downloader/internal/model"
)

// Naming constants
const (
	ArchiveExtension = ".zip"
	StagingPrefix    = "staging-"
)

// Service packages job outputs into zip archives under the output root.
type Service struct {
	outputRoot string
}

// NewService creates a new packaging service writing into outputRoot
func NewService(outputRoot string) Packager {
	return &Service{outputRoot: outputRoot}
}

// Package copies the job's output files into an isolated staging directory,
// compresses the staging directory into one archive named from the job ID and
// a timestamp, then removes the staging directory. Fails with PackagingError
// when there is nothing to archive or the filesystem misbehaves.
func (s *Service) Package(job *model.Job) (string, error) {
	if len(job.OutputPaths) == 0 {
		return "", &model.PackagingError{JobID: job.ID, Err: fmt.Errorf("job has no output files")}
	}

	// Immutable snapshot: later job mutations must not change what gets
	// archived
	paths := append([]string(nil), job.OutputPaths...)

	staging, err := os.MkdirTemp(s.outputRoot, StagingPrefix)
	if err != nil {
		return "", &model.PackagingError{JobID: job.ID, Err: fmt.Errorf("failed to create staging directory: %w", err)}
	}
	defer os.RemoveAll(staging)

	used := make(map[string]bool)
	for _, path := range paths {
		name := uniqueName(used, filepath.Base(path))
		if err := copyFile(path, filepath.Join(staging, name)); err != nil {
			return "", &model.PackagingError{JobID: job.ID, Err: err}
		}
	}

	archivePath := filepath.Join(s.outputRoot, archiveName(job.ID))
	if err := zipDirectory(staging, archivePath); err != nil {
		os.Remove(archivePath)
		return "", &model.PackagingError{JobID: job.ID, Err: err}
	}

	return archivePath, nil
}

// archiveName builds the deterministic `<label>_<unix_timestamp>.zip` name
func archiveName(label string) string {
	return fmt.Sprintf("%s_%d%s", label, time.Now().Unix(), ArchiveExtension)
}

// uniqueName deduplicates basenames colliding inside one archive
func uniqueName(used map[string]bool, name string) string {
	if !used[name] {
		used[name] = true
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// copyFile copies src to dst without touching src
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// zipDirectory compresses every regular file directly under dir into one
// archive at archivePath
func zipDirectory(dir, archivePath string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer archiveFile.Close()

	writer := zip.NewWriter(archiveFile)

	entries, err := os.ReadDir(dir)
	if err != nil {
		writer.Close()
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		in, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			writer.Close()
			return fmt.Errorf("failed to open staged file: %w", err)
		}

		dst, err := writer.Create(entry.Name())
		if err != nil {
			in.Close()
			writer.Close()
			return fmt.Errorf("failed to add archive entry: %w", err)
		}

		if _, err := io.Copy(dst, in); err != nil {
			in.Close()
			writer.Close()
			return fmt.Errorf("failed to write archive entry: %w", err)
		}
		in.Close()
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return archiveFile.Close()
}
