package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLMap is a concurrency safe map whose entries expire ttl after their last
// Set. A zero ttl never expires entries. Expired entries are dropped lazily on
// Get and in bulk by Sweep.
type TTLMap[V any] struct {
	mu           sync.RWMutex
	data         map[string]ttlEntry[V]
	ttl          time.Duration
	timeProvider func() time.Time
}

func NewTTLMap[V any](ttl time.Duration, timeProvider func() time.Time) *TTLMap[V] {
	if timeProvider == nil {
		timeProvider = time.Now
	}
	return &TTLMap[V]{
		data:         make(map[string]ttlEntry[V]),
		ttl:          ttl,
		timeProvider: timeProvider,
	}
}

func (m *TTLMap[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	entry, exists := m.data[key]
	m.mu.RUnlock()
	if !exists {
		var zero V
		return zero, false
	}

	if m.expired(entry, m.timeProvider()) {
		m.mu.Lock()
		if current, ok := m.data[key]; ok && m.expired(current, m.timeProvider()) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (m *TTLMap[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = ttlEntry[V]{
		value:     value,
		expiresAt: m.timeProvider().Add(m.ttl),
	}
}

func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Sweep removes every expired entry and reports how many were dropped.
func (m *TTLMap[V]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.timeProvider()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, entry := range m.data {
		if m.expired(entry, now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

func (m *TTLMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *TTLMap[V]) expired(entry ttlEntry[V], now time.Time) bool {
	return m.ttl > 0 && !now.Before(entry.expiresAt)
}
