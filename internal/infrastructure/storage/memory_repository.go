package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/ports"
)

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []domain.FeedbackRecord
}

var _ ports.FeedbackRepository = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// InsertBatch appends copies of records.
func (r *MemoryRepository) InsertBatch(ctx context.Context, records []domain.FeedbackRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		rec.Themes = slices.Clone(rec.Themes)
		r.records = append(r.records, rec)
	}
	return len(records), nil
}

// FindAll returns copies of every record sorted by upload date, then ID.
func (r *MemoryRepository) FindAll(ctx context.Context, order domain.SortOrder) ([]domain.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]domain.FeedbackRecord, len(r.records))
	for i, rec := range r.records {
		rec.Themes = slices.Clone(rec.Themes)
		out[i] = rec
	}
	r.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.FeedbackRecord) int {
		c := a.UploadDate.Compare(b.UploadDate)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == domain.NewestFirst {
			return -c
		}
		return c
	})

	return out, nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
