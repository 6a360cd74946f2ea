package storage

import (
	"context"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore holds session state for the lifetime of a single process, the
// way a browser tab's session storage does.
type MemStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (ms *MemStore) Get(_ context.Context, key string) (string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	value, ok := ms.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (ms *MemStore) Set(_ context.Context, key, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values[key] = value
	return nil
}

func (ms *MemStore) Remove(_ context.Context, key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}

func (ms *MemStore) Clear(_ context.Context) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values = make(map[string]string)
	return nil
}
