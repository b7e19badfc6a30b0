package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

// MemoryStore keeps objects in process. Used for dry runs and tests.
type MemoryStore struct {
	bucket  string
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore(bucket string) *MemoryStore {
	if bucket == "" {
		bucket = "local"
	}
	return &MemoryStore{bucket: bucket, objects: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, data []byte, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s/%s", m.bucket, EscapeKey(key)), nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &loaderrors.ErrNotFound{Type: "object", Value: key}
	}
	return data, nil
}

func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
