// Package changes carries "entities changed" notices from writers to readers.
// A notice names the affected entity classes and keys; it never carries the
// new state, so readers must re-fetch from the ledger.
package changes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/pkg/logger"
)

// Source tells where a change was observed.
type Source string

const (
	SourceLocal        Source = "local"
	SourceSubscription Source = "subscription"
)

// Change describes entities that may differ from any cached copy.
type Change struct {
	ID        string        `json:"id"`
	Action    string        `json:"action,omitempty"`
	Digest    string        `json:"digest,omitempty"`
	Kinds     []suiven.Kind `json:"kinds"`
	Owners    []string      `json:"owners,omitempty"`
	ObjectIDs []string      `json:"objectIds,omitempty"`
	Source    Source        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`

	RequestID string `json:"requestId,omitempty"`
}

// Affects reports whether the change touches kind.
func (c Change) Affects(kind suiven.Kind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Handler processes a change.
type Handler func(Change)

// Filter decides whether a change should be delivered to a handler.
type Filter func(Change) bool

// Publisher is the write side of a Bus.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// Bus delivers changes synchronously to subscribers and keeps the most
// recent ones for inspection. Publish returns after every handler ran.
type Bus struct {
	mu       sync.RWMutex
	recent   []Change
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextID   int64
	log      *logger.Logger
}

type handlerEntry struct {
	id      int64
	filter  Filter
	handler Handler
}

// NewBus creates a Bus that remembers the last size changes.
func NewBus(size int, log *logger.Logger) *Bus {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = logger.NewDefault("changes")
	}
	return &Bus{
		recent: make([]Change, size),
		size:   size,
		log:    log,
	}
}

// Publish records the change and notifies handlers.
func (b *Bus) Publish(ctx context.Context, change Change) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	if change.Source == "" {
		change.Source = SourceLocal
	}
	if change.RequestID == "" {
		change.RequestID = logger.RequestIDFromContext(ctx)
	}

	b.mu.Lock()
	b.recent[b.head] = change
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	handlers := make([]handlerEntry, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	b.log.WithContext(ctx).WithFields(map[string]interface{}{
		"change_id": change.ID,
		"action":    change.Action,
		"kinds":     change.Kinds,
		"objects":   change.ObjectIDs,
		"source":    change.Source,
	}).Debug("entities changed")

	for _, h := range handlers {
		if h.filter == nil || h.filter(change) {
			h.handler(change)
		}
	}
}

// Subscribe registers a handler for all changes. The returned func unsubscribes.
func (b *Bus) Subscribe(handler Handler) func() {
	return b.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler with a filter.
func (b *Bus) SubscribeFiltered(filter Filter, handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, handlerEntry{id: id, filter: filter, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns up to n changes, newest first.
func (b *Bus) Recent(n int) []Change {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]Change, n)
	for i := 0; i < n; i++ {
		out[i] = b.recent[(b.head-1-i+b.size)%b.size]
	}
	return out
}

// Count returns the number of remembered changes.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// OfKind builds a filter matching changes that affect kind.
func OfKind(kind suiven.Kind) Filter {
	return func(c Change) bool { return c.Affects(kind) }
}
