package submission

import (
	"context"
	"sort"
	"sync"
)

// Store persists submissions.
type Store interface {
	Save(ctx context.Context, sub Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	ListByFarmer(ctx context.Context, farmerID string) ([]Submission, error)
}

// MemoryStore keeps submissions in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Submission
	index map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Save inserts or replaces sub.
func (m *MemoryStore) Save(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[sub.ID]; ok {
		m.items[i] = sub
		return nil
	}
	m.index[sub.ID] = len(m.items)
	m.items = append(m.items, sub)
	return nil
}

// Get returns the submission with id.
func (m *MemoryStore) Get(ctx context.Context, id string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return m.items[i], nil
}

// ListByFarmer returns the farmer's submissions newest first. Submissions
// with equal timestamps are ordered by most recent save.
func (m *MemoryStore) ListByFarmer(ctx context.Context, farmerID string) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Submission
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].FarmerID == farmerID {
			out = append(out, m.items[i])
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}
