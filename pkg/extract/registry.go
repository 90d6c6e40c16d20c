package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Zereker/cvstore/pkg/result"
)

// Registry maps file extensions to strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates a registry holding the given strategies.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range strategies {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a strategy. Registering a second strategy for an extension fails.
func (r *Registry) Register(s Strategy) error {
	ext := strings.ToLower(s.Extension())
	if ext == "" || !strings.HasPrefix(ext, ".") {
		return fmt.Errorf("invalid extension %q", s.Extension())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.strategies[ext]; ok {
		return fmt.Errorf("strategy for %s already registered", ext)
	}
	r.strategies[ext] = s
	return nil
}

// Supported returns the registered extensions, sorted.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.strategies))
	for ext := range r.strategies {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether a strategy handles the file's extension.
func (r *Registry) IsSupported(filename string) bool {
	_, ok := r.lookup(filename)
	return ok
}

func (r *Registry) lookup(filename string) (Strategy, bool) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[ext]
	return s, ok
}

// Extract dispatches the buffered document to the strategy for its extension.
// The strategy reads from its own reader, so data stays intact for the caller.
func (r *Registry) Extract(ctx context.Context, filename string, data []byte, lang Language) (ext Extraction, err error) {
	s, ok := r.lookup(filename)
	if !ok {
		return Extraction{}, result.Failuref(result.ErrValidation,
			"unsupported file extension %q, supported: %s", filepath.Ext(filename), strings.Join(r.Supported(), ", "))
	}

	defer func() {
		if p := recover(); p != nil {
			ext = Extraction{}
			err = result.NewFailure(
				fmt.Sprintf("unable to extract text from '%s'", filename),
				fmt.Errorf("%w: parser panic: %v", result.ErrExtraction, p),
			)
		}
	}()

	ext, err = s.Extract(ctx, bytes.NewReader(data), lang)
	if err != nil {
		return Extraction{}, result.NewFailure(
			fmt.Sprintf("unable to extract text from '%s'", filename),
			fmt.Errorf("%w: %w", result.ErrExtraction, err),
		)
	}

	if strings.TrimSpace(ext.Content) == "" {
		return Extraction{}, result.NewFailure(
			fmt.Sprintf("unable to extract text from '%s': extracted text is empty", filename),
			result.ErrExtraction,
		)
	}

	return ext, nil
}
