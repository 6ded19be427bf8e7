package audit

import (
	"context"
	"sync"
)

// MemoryLogger keeps the most recent events in a fixed-size ring
type MemoryLogger struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	full   bool
	lastID int64
}

// NewMemoryLogger creates a logger retaining up to capacity events
func NewMemoryLogger(capacity int) *MemoryLogger {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryLogger{events: make([]*Event, capacity)}
}

// Log stores a copy of event and assigns its ID
func (l *MemoryLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	stored := *event
	stored.ID = l.lastID
	event.ID = stored.ID

	l.events[l.next] = &stored
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Search returns matching events, newest first
func (l *MemoryLogger) Search(ctx context.Context, filter Filter) ([]*Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	count := l.next
	if l.full {
		count = len(l.events)
	}

	results := make([]*Event, 0)
	for i := 1; i <= count && len(results) < limit; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		event := l.events[idx]
		if filter.Matches(event) {
			copied := *event
			results = append(results, &copied)
		}
	}
	return results, nil
}

// Len returns the number of retained events
func (l *MemoryLogger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.events)
	}
	return l.next
}

// Close is a no-op
func (l *MemoryLogger) Close() error {
	return nil
}
