package cache

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxSize = 256
	// DefaultTTL applies when Set is called without a ttl.
	DefaultTTL = 5 * time.Minute
)

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

// Memory is an in-process Cache. When full, the entry closest to expiry is
// evicted.
type Memory struct {
	mu      sync.Mutex
	data    map[string]memoryItem
	maxSize int
	now     func() time.Time
}

type MemoryOption func(*Memory)

func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data:    make(map[string]memoryItem),
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(item.expireAt) {
		delete(m.data, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok && len(m.data) >= m.maxSize {
		m.evict()
	}
	m.data[key] = memoryItem{
		value:    stored,
		expireAt: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// evict drops every expired entry, or the entry closest to expiry when none
// have expired. Callers hold the lock.
func (m *Memory) evict() {
	now := m.now()
	var (
		oldestKey string
		oldestAt  time.Time
		removed   bool
	)
	for key, item := range m.data {
		if !now.Before(item.expireAt) {
			delete(m.data, key)
			removed = true
			continue
		}
		if oldestKey == "" || item.expireAt.Before(oldestAt) {
			oldestKey, oldestAt = key, item.expireAt
		}
	}
	if !removed && oldestKey != "" {
		delete(m.data, oldestKey)
	}
}
