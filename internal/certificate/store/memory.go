package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"civreg/internal/certificate/models"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

type memoryRow struct {
	record    models.Record
	document  []byte
	createdAt time.Time
}

// InMemory stores certificates in process memory for development and tests.
type InMemory struct {
	mu     sync.RWMutex
	lastID int64
	rows   map[int64]memoryRow
}

// NewInMemory creates an in-memory certificate store.
func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[int64]memoryRow)}
}

// Insert stores copies of the record and document under the next identity.
func (s *InMemory) Insert(ctx context.Context, record models.Record, document []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("insert certificate", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.rows[s.lastID] = memoryRow{
		record:    record.Clone(),
		document:  slices.Clone(document),
		createdAt: requestcontext.Now(ctx).UTC(),
	}
	return s.lastID, nil
}

// FindRecord returns a copy of the stored record.
func (s *InMemory) FindRecord(_ context.Context, id int64) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return row.record.Clone(), nil
}

// FindDocument returns a copy of the stored document.
func (s *InMemory) FindDocument(_ context.Context, id int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok || len(row.document) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(row.document), nil
}

// List returns summaries newest first. Identities are monotonic so they order creation.
func (s *InMemory) List(_ context.Context, limit, offset int) ([]models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Summary
	for id := s.lastID - int64(offset); id > 0 && len(out) < limit; id-- {
		row, ok := s.rows[id]
		if !ok {
			continue
		}
		out = append(out, models.Summary{
			ID:          id,
			CreatedAt:   row.createdAt,
			HasDocument: len(row.document) > 0,
			Record:      row.record.Clone(),
		})
	}
	return out, nil
}
