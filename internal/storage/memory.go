package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var _ ObjectStorage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in a map. It backs local development without a
// bucket and the tests.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string]Object
	publicURL string
}

type Object struct {
	Data        []byte
	ContentType string
}

func NewMemoryStorage(publicURL string) *MemoryStorage {
	if publicURL == "" {
		publicURL = "http://localhost:8080/media"
	}
	return &MemoryStorage{objects: make(map[string]Object), publicURL: strings.TrimRight(publicURL, "/")}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) PublicURL(key string) string {
	return m.publicURL + "/" + strings.TrimLeft(key, "/")
}

func (m *MemoryStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	return m.PublicURL(key) + "?upload=1", time.Now().Add(expiresIn), nil
}

func (m *MemoryStorage) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
