package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero = no expiry
}

// Memory is the process-local Store. It holds at most maxSize entries and
// evicts in insertion order (FIFO) once full, regardless of how recently an
// entry was read. Expiry is checked lazily on Get.
//
// All methods are safe for concurrent use and never block on I/O.
type Memory[V any] struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = oldest insertion
	items   map[string]*list.Element
	now     func() time.Time
}

var _ Store[int] = (*Memory[int])(nil)

// NewMemory creates an in-memory cache. now may be nil, in which case the
// wall clock is used.
func NewMemory[V any](maxSize int, now func() time.Time) *Memory[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Memory[V]{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element, maxSize),
		now:     now,
	}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	el, ok := m.items[key]
	if !ok {
		return zero, false, nil
	}
	e := el.Value.(*memoryEntry[V])
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.remove(el)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. Overwriting a key counts as a fresh insertion:
// the entry moves to the back of the eviction queue.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry[V]{key: key, value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	if el, ok := m.items[key]; ok {
		el.Value = e
		m.order.MoveToBack(el)
		return nil
	}

	for m.order.Len() >= m.maxSize {
		m.remove(m.order.Front())
	}
	m.items[key] = m.order.PushBack(e)
	return nil
}

func (m *Memory[V]) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, el := range m.items {
		if strings.HasPrefix(key, prefix) {
			m.remove(el)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// remove must be called with mu held.
func (m *Memory[V]) remove(el *list.Element) {
	e := m.order.Remove(el).(*memoryEntry[V])
	delete(m.items, e.key)
}
