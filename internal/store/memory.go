package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and dry-run CLI
// invocations. It mirrors the spreadsheet's semantics: positional rows,
// index shifting on delete, no transactions.
type MemoryStore struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}

	// FailNext, when non-nil, is returned by the next store call and then
	// cleared. Tests use it to exercise the retry and classification
	// paths.
	FailNext error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store with the given worksheets.
func NewMemoryStore(schemas []Schema) *MemoryStore {
	sheets := make(map[string][][]interface{}, len(schemas))
	for _, schema := range schemas {
		sheets[schema.Sheet] = nil
	}
	return &MemoryStore{sheets: sheets}
}

func (m *MemoryStore) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *MemoryStore) rows(sheet string) ([][]interface{}, error) {
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("worksheet %s not found", sheet)
	}
	return rows, nil
}

// ReadAll returns a copy of every data row.
func (m *MemoryStore) ReadAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	rows, err := m.rows(sheet)
	if err != nil {
		return nil, err
	}

	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out, nil
}

// Append adds one row after the last data row.
func (m *MemoryStore) Append(ctx context.Context, sheet string, row []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	rows, err := m.rows(sheet)
	if err != nil {
		return err
	}

	m.sheets[sheet] = append(rows, append([]interface{}(nil), row...))
	return nil
}

// Update rewrites the data row at index.
func (m *MemoryStore) Update(ctx context.Context, sheet string, index int, row []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	rows, err := m.rows(sheet)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range for worksheet %s", index, sheet)
	}

	rows[index] = append([]interface{}(nil), row...)
	return nil
}

// Delete removes the data row at index, shifting later rows up.
func (m *MemoryStore) Delete(ctx context.Context, sheet string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	rows, err := m.rows(sheet)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range for worksheet %s", index, sheet)
	}

	m.sheets[sheet] = append(rows[:index], rows[index+1:]...)
	return nil
}
