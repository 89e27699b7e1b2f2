package recordstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"rollcall/pkg/sentinel"
)

// Memory keeps collections as in-memory row slices. It favors clarity over
// performance and is the default backend for tests and development.
//
// The mutex makes individual operations safe, not sequences of them: a
// Find followed by a Delete can still interleave with another caller, the
// same way it can against any real backend.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Row
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Row)}
}

func (m *Memory) Find(_ context.Context, collection, column, value string) (Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.collections[collection] {
		if row.Values[column] == value {
			return Row{ID: row.ID, Values: cloneValues(row.Values)}, nil
		}
	}
	return Row{}, fmt.Errorf("%s: no row with %s=%s: %w", collection, column, value, sentinel.ErrNotFound)
}

func (m *Memory) Append(_ context.Context, collection string, values map[string]string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := Row{ID: uuid.NewString(), Values: cloneValues(values)}
	m.collections[collection] = append(m.collections[collection], row)
	return Row{ID: row.ID, Values: cloneValues(row.Values)}, nil
}

func (m *Memory) Delete(_ context.Context, collection, rowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.collections[collection]
	for i, row := range rows {
		if row.ID == rowID {
			m.collections[collection] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: row %s already removed: %w", collection, rowID, sentinel.ErrNotFound)
}

func (m *Memory) Scan(_ context.Context, collection string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collections[collection]
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, Row{ID: row.ID, Values: cloneValues(row.Values)})
	}
	return out, nil
}

func (m *Memory) Health(_ context.Context) error {
	return nil
}
