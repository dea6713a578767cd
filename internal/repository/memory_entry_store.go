package repository

import (
	"context"
	"sync"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
)

// MemoryEntryStore keeps entries in a map. Used by tests and the CLI file mode.
type MemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[string]models.DailyEntry
}

func NewMemoryEntryStore(seed ...models.DailyEntry) *MemoryEntryStore {
	s := &MemoryEntryStore{entries: make(map[string]models.DailyEntry, len(seed))}
	for _, e := range seed {
		s.entries[e.Date] = e.Clone()
	}
	return s
}

var _ repository.EntryStore = (*MemoryEntryStore)(nil)

func (s *MemoryEntryStore) Init(context.Context) error { return nil }

func (s *MemoryEntryStore) Upsert(_ context.Context, e models.DailyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Date] = e.Clone()
	return nil
}

func (s *MemoryEntryStore) UpsertBatch(_ context.Context, entries []models.DailyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Date] = e.Clone()
	}
	return nil
}

func (s *MemoryEntryStore) Get(_ context.Context, date string) (models.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[date]
	if !ok {
		return models.DailyEntry{}, repository.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryEntryStore) List(ctx context.Context) ([]models.DailyEntry, error) {
	return s.Range(ctx, "", "")
}

func (s *MemoryEntryStore) Range(_ context.Context, from, to string) ([]models.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DailyEntry, 0, len(s.entries))
	for date, e := range s.entries {
		if (from != "" && date < from) || (to != "" && date > to) {
			continue
		}
		out = append(out, e.Clone())
	}
	return models.SortEntries(out), nil
}

func (s *MemoryEntryStore) Delete(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[date]; !ok {
		return repository.ErrNotFound
	}
	delete(s.entries, date)
	return nil
}

func (s *MemoryEntryStore) Health(context.Context) error { return nil }

func (s *MemoryEntryStore) Close() error { return nil }
