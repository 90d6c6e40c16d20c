// Package blob stores the original bytes of uploaded files, grouped in containers.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Zereker/cvstore/pkg/result"
)

// Not-found kinds. Both match result.ErrNotFound.
var (
	ErrContainerNotFound = fmt.Errorf("container %w", result.ErrNotFound)
	ErrBlobNotFound      = fmt.Errorf("file %w", result.ErrNotFound)
)

// Store is a container/key addressed binary store.
type Store interface {
	// Save writes r under key, creating the container when needed and overwriting an
	// existing blob.
	Save(ctx context.Context, container, key string, r io.Reader) error

	// Get opens the blob. A missing container and a missing key are distinct failures.
	Get(ctx context.Context, container, key string) (io.ReadCloser, error)

	// Delete removes the blob. A missing key is a not-found failure.
	Delete(ctx context.Context, container, key string) error

	Close() error
}

func containerNotFound(container string) error {
	return result.NewFailure(fmt.Sprintf("container %s not found", container), ErrContainerNotFound)
}

func blobNotFound(key string) error {
	return result.NewFailure(fmt.Sprintf("file %s not found", key), ErrBlobNotFound)
}
