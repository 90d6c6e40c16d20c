package extract

import (
	"path/filepath"
	"strings"

	"github.com/Zereker/cvstore/pkg/result"
)

// DefaultMaxFileSize is the upload size cap per file.
const DefaultMaxFileSize int64 = 10 << 20

// FileInfo describes an uploaded file before its bytes are read.
type FileInfo struct {
	Name string
	Size int64
}

// ValidateFiles rejects a batch that is empty, holds an oversized file, or holds a file
// whose extension no strategy handles. All problems are reported together.
func (r *Registry) ValidateFiles(files []FileInfo, maxSize int64) error {
	if len(files) == 0 {
		return result.Failuref(result.ErrValidation, "files cannot be empty")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var failures []*result.Failure
	for _, f := range files {
		if f.Size > maxSize {
			failures = append(failures, result.Failuref(result.ErrValidation,
				"file '%s' exceeds maximum size of %d bytes", f.Name, maxSize))
		}
		if !r.IsSupported(f.Name) {
			failures = append(failures, result.Failuref(result.ErrValidation,
				"file '%s' has unsupported extension %q, supported: '%s'",
				f.Name, filepath.Ext(f.Name), strings.Join(r.Supported(), "', '")))
		}
	}

	if len(failures) > 0 {
		return result.Join(failures)
	}
	return nil
}
