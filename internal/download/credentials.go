package download

import (
	"os"
	"path/filepath"

	"github.com/anydl/any-downloader/internal/model"
)

// CredentialFileName is the job-scoped credential file written inside the
// job's own directory. One file per job; never shared across jobs.
const CredentialFileName = "cookies.txt"

// WriteCredentialFile materializes the auth context as a 0600 file under dir
// immediately before use. The content is never logged.
func WriteCredentialFile(dir string, auth *model.AuthContext) (string, error) {
	if auth.IsEmpty() {
		return "", nil
	}

	path := filepath.Join(dir, CredentialFileName)
	if err := os.WriteFile(path, []byte(auth.CookieData), 0600); err != nil {
		return "", &model.CredentialError{Err: err}
	}
	return path, nil
}

// RemoveCredentialFile deletes the credential file once the job finishes,
// success or failure
func RemoveCredentialFile(path string) {
	if path != "" {
		os.Remove(path)
	}
}
