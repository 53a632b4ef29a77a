package mocks

import (
	"context"
	"sync"
	"time"
)

// MockMarkerStore is a mock implementation of MarkerStore backed by a map.
type MockMarkerStore struct {
	SetNXFunc  func(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	DeleteFunc func(ctx context.Context, key string) error
	PingFunc   func() error
	CloseFunc  func() error

	mu   sync.Mutex
	data map[string]string
}

func NewMockMarkerStore() *MockMarkerStore {
	return &MockMarkerStore{data: make(map[string]string)}
}

func (m *MockMarkerStore) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *MockMarkerStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MockMarkerStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *MockMarkerStore) Ping() error {
	if m.PingFunc != nil {
		return m.PingFunc()
	}
	return nil
}

func (m *MockMarkerStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
