// Package storage holds the ProxyRecord type and the non-SQL record
// backends: in-memory, append-only file journal and redis.
package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps records in a map guarded by a mutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]ProxyRecord
}

func CreateMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		records: make(map[string]ProxyRecord),
	}, nil
}

// GetOrCreate stores r unless a record with r.ID exists. The lookup and
// insert happen under one write lock.
func (m *MemoryStorage) GetOrCreate(_ context.Context, r ProxyRecord) (ProxyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[r.ID]; ok {
		return existing, false, nil
	}

	m.records[r.ID] = r
	return r, true, nil
}

func (m *MemoryStorage) FindByID(_ context.Context, id string) (ProxyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return ProxyRecord{}, ErrNotFound
	}

	return r, nil
}

func (m *MemoryStorage) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStorage) Close() error {
	return nil
}
