package archive

import (
	"github.com/anydl/any-downloader/internal/model"
)

// Packager defines the interface for the archive packaging service.
type Packager interface {
	Package(job *model.Job) (string, error)
}
