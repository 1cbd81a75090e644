package history

import (
	"fmt"
	"sync"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store] with a per-URL row
// limit.
//
// When a URL holds more rows than the limit, the oldest rows are evicted
// until it is at the limit again. Subscribers receive rows via buffered
// channels; if a subscriber's buffer is full the row is dropped for that
// subscriber instead of blocking the append path.
type MemoryStore struct {
	limit int

	mu     sync.RWMutex
	order  []string
	series map[string][]Row

	subMu       sync.RWMutex
	subscribers map[chan Row]struct{}
}

// NewMemoryStore creates a [MemoryStore] retaining at most limit rows per URL.
//
// Returns an error if limit is not positive.
func NewMemoryStore(limit int) (*MemoryStore, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("row limit must be positive, got %d", limit)
	}
	return &MemoryStore{
		limit:       limit,
		series:      make(map[string][]Row),
		subscribers: make(map[chan Row]struct{}),
	}, nil
}

// Limit returns the per-URL row limit.
func (m *MemoryStore) Limit() int {
	return m.limit
}

// Append records row under row.URL, evicts the oldest rows over the limit
// and notifies all subscribers. It returns the number of rows evicted.
func (m *MemoryStore) Append(row Row) int {
	m.mu.Lock()
	rows, seen := m.series[row.URL]
	if !seen {
		m.order = append(m.order, row.URL)
	}
	rows = append(rows, row)

	evicted := 0
	if over := len(rows) - m.limit; over > 0 {
		// shift in place so the backing array does not grow without bound
		n := copy(rows, rows[over:])
		clear(rows[n:])
		rows = rows[:n]
		evicted = over
	}
	m.series[row.URL] = rows
	m.mu.Unlock()

	m.notifySubscribers(row)
	return evicted
}

// Rows returns a copy of the retained rows of url, oldest first. Unknown URLs
// yield nil.
func (m *MemoryStore) Rows(url string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.series[url]
	if !ok {
		return nil
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// All returns a snapshot of every series in first-seen URL order.
func (m *MemoryStore) All() []Series {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Series, 0, len(m.order))
	for _, url := range m.order {
		rows := make([]Row, len(m.series[url]))
		copy(rows, m.series[url])
		out = append(out, Series{URL: url, Rows: rows})
	}
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving rows.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Row {
	ch := make(chan Row, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Row) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends row to every subscriber without blocking.
func (m *MemoryStore) notifySubscribers(row Row) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- row:
		default:
			// subscriber is slow, drop the row
		}
	}
}
