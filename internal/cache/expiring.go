package cache

import (
	"sync"
	"time"
)

type expiringEntry[V any] struct {
	value    V
	deadline time.Time
}

// expiring is a process-local map whose entries lapse a fixed ttl after they
// were written. A ttl of zero or less keeps entries until dropped. Lapsed
// entries are removed when read and swept on every write, so the map never
// outgrows the set of live keys by much.
type expiring[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[K]expiringEntry[V]
	now     func() time.Time
}

func newExpiring[K comparable, V any](ttl time.Duration) *expiring[K, V] {
	return &expiring[K, V]{ttl: ttl, entries: make(map[K]expiringEntry[V]), now: time.Now}
}

func (m *expiring[K, V]) lapsed(e expiringEntry[V], at time.Time) bool {
	return !e.deadline.IsZero() && !at.Before(e.deadline)
}

func (m *expiring[K, V]) get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.lapsed(e, m.now()) {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *expiring[K, V]) put(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.now()
	for k, e := range m.entries {
		if m.lapsed(e, at) {
			delete(m.entries, k)
		}
	}
	var deadline time.Time
	if m.ttl > 0 {
		deadline = at.Add(m.ttl)
	}
	m.entries[key] = expiringEntry[V]{value: value, deadline: deadline}
}

func (m *expiring[K, V]) drop(key K) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *expiring[K, V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
