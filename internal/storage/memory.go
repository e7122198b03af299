package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/wardlight/intake/internal/schema"
)

// MemoryRepository keeps records in a map guarded by a mutex. Used when no
// durable store is configured and throughout the tests. Construct one
// explicitly and inject it; there is no hidden process-wide instance.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]schema.CaseRecord
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]schema.CaseRecord)}
}

// Save upserts a deep copy of the record, enforcing the revision guard.
func (r *MemoryRepository) Save(ctx context.Context, record schema.CaseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.records[record.CaseID]; ok {
		if record.StorageMeta.Revision < stored.StorageMeta.Revision {
			return fmt.Errorf("%w: case %s has revision %d, save carried %d",
				ErrVersionConflict, record.CaseID, stored.StorageMeta.Revision, record.StorageMeta.Revision)
		}
	}
	r.records[record.CaseID] = record.Clone()
	return nil
}

// FetchByID returns a deep copy of the stored record, or (nil, nil).
func (r *MemoryRepository) FetchByID(ctx context.Context, caseID string) (*schema.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[caseID]
	if !ok {
		return nil, nil
	}
	out := stored.Clone()
	return &out, nil
}

// Len reports how many cases are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
