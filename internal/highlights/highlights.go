// Package highlights keeps the most recently fetched list of history
// highlights and tells one subscriber whenever that list is refreshed.
package highlights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheuskafuri/highlights/internal/events"
)

// Item is a ranked summary of a previously visited page. The cache never
// looks inside it.
type Item struct {
	Score           float64
	PlaceID         int64
	URL             string
	Title           string
	PreviewImageURL string

	Category   string
	VisitCount int
	LastVisit  time.Time
}

// HistoryProvider produces highlight items asynchronously. Implementations
// call completion exactly once per GetHighlights call, on any goroutine.
type HistoryProvider interface {
	GetHighlights(completion func([]Item))
}

// EventSource delivers named events to registered listeners.
type EventSource interface {
	Subscribe(name string, listener events.Listener) (events.Subscription, error)
}

// Subscriber is notified after every completed fetch.
type Subscriber interface {
	DidLoadNewData()
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func()

func (f SubscriberFunc) DidLoadNewData() { f() }

// Cache holds the result of the latest completed fetch. Overlapping fetches
// are not sequenced: whichever completion arrives last wins.
type Cache struct {
	provider HistoryProvider

	mu         sync.RWMutex
	items      []Item
	subscriber Subscriber
	sub        events.Subscription
	fetches    int
	closed     bool
}

// New subscribes to history updates on source and issues the first fetch.
func New(provider HistoryProvider, source EventSource) (*Cache, error) {
	c := &Cache{
		provider: provider,
		items:    []Item{},
	}

	sub, err := source.Subscribe(events.HistoryUpdated, c.onHistoryUpdated)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", events.HistoryUpdated, err)
	}
	c.sub = sub

	c.Fetch()
	return c, nil
}

// SetSubscriber replaces the subscriber. nil clears it.
func (c *Cache) SetSubscriber(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriber = s
}

// Fetch asks the provider for fresh items. It returns immediately; the
// items are swapped in when the provider calls back.
func (c *Cache) Fetch() {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()

	c.provider.GetHighlights(c.complete)
}

// CurrentHighlights returns the items from the latest completed fetch.
func (c *Cache) CurrentHighlights() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// FetchCount reports how many fetches have been issued.
func (c *Cache) FetchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetches
}

// Close stops listening for history updates and drops the subscriber.
// Completions still in flight update the items but notify nobody.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.subscriber = nil
	sub := c.sub
	c.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (c *Cache) complete(items []Item) {
	next := make([]Item, len(items))
	copy(next, items)

	c.mu.Lock()
	c.items = next
	s := c.subscriber
	c.mu.Unlock()

	// Outside the lock so the subscriber can read CurrentHighlights.
	if s != nil {
		s.DidLoadNewData()
	}
}

func (c *Cache) onHistoryUpdated(ctx context.Context, ev events.Event) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	c.Fetch()
}
