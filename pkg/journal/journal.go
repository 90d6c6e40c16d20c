// Package journal records upload batches in flight so that a batch abandoned by a
// crash or cancellation can be compensated later.
package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Batch is an unfinished upload batch and the file ids it committed so far.
type Batch struct {
	ID        string
	StartedAt time.Time
	FileIDs   []string
}

// Journal tracks batches from Begin until Complete.
type Journal interface {
	Begin(ctx context.Context, batchID string) error
	Record(ctx context.Context, batchID, fileID string) error
	Complete(ctx context.Context, batchID string) error
	// Pending lists batches begun but never completed, oldest first.
	Pending(ctx context.Context) ([]Batch, error)
}

// Memory is an in-process Journal.
type Memory struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

// NewMemory creates an empty in-process journal.
func NewMemory() *Memory {
	return &Memory{batches: make(map[string]*Batch)}
}

func (m *Memory) Begin(_ context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batchID] = &Batch{ID: batchID, StartedAt: time.Now()}
	return nil
}

func (m *Memory) Record(_ context.Context, batchID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID]
	if !ok {
		b = &Batch{ID: batchID, StartedAt: time.Now()}
		m.batches[batchID] = b
	}
	b.FileIDs = append(b.FileIDs, fileID)
	return nil
}

func (m *Memory) Complete(_ context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, batchID)
	return nil
}

func (m *Memory) Pending(_ context.Context) ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batches := make([]Batch, 0, len(m.batches))
	for _, b := range m.batches {
		batches = append(batches, Batch{
			ID:        b.ID,
			StartedAt: b.StartedAt,
			FileIDs:   append([]string(nil), b.FileIDs...),
		})
	}
	sortBatches(batches)
	return batches, nil
}

func sortBatches(batches []Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].StartedAt.Equal(batches[j].StartedAt) {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].StartedAt.Before(batches[j].StartedAt)
	})
}
