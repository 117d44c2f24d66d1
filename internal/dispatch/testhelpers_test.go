package dispatch_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-faktur/internal/dispatch"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]dispatch.DeadLetter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[uuid.UUID]dispatch.DeadLetter)}
}

func (m *memoryStore) InsertDeadLetter(_ context.Context, entry dispatch.DeadLetter) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries[entry.ID] = entry
	return entry.ID, nil
}

func (m *memoryStore) DeleteDeadLetter(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memoryStore) GetDeadLetter(_ context.Context, id uuid.UUID) (dispatch.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return dispatch.DeadLetter{}, sql.ErrNoRows
	}
	return entry, nil
}

func (m *memoryStore) ListDeadLetters(_ context.Context, kind string, limit, offset int) ([]dispatch.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = len(m.entries)
	}
	entries := make([]dispatch.DeadLetter, 0, len(m.entries))
	for _, entry := range m.entries {
		if kind != "" && entry.Kind != kind {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if offset >= len(entries) {
		return []dispatch.DeadLetter{}, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]dispatch.DeadLetter, end-offset)
	copy(out, entries[offset:end])
	return out, nil
}

func (m *memoryStore) CountDeadLetters(_ context.Context, kind string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, entry := range m.entries {
		if kind != "" && entry.Kind != kind {
			continue
		}
		total++
	}
	return total, nil
}

func (m *memoryStore) DeadLetterSizeByKind(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]int64)
	for _, entry := range m.entries {
		result[entry.Kind]++
	}
	return result, nil
}

func (m *memoryStore) snapshot() map[uuid.UUID]dispatch.DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]dispatch.DeadLetter, len(m.entries))
	for id, entry := range m.entries {
		out[id] = entry
	}
	return out
}
