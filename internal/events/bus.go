package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HistoryUpdated is published after any write to the history store.
const HistoryUpdated = "history-updated"

var (
	// ErrBusClosed indicates the bus no longer accepts publishes or subscriptions.
	ErrBusClosed = errors.New("events: bus closed")
	// ErrInvalidSubscription indicates a subscription with no name or listener.
	ErrInvalidSubscription = errors.New("events: invalid subscription")
)

// Event is a named notification. It carries no payload; listeners re-read
// whatever state they care about.
type Event struct {
	Name string
	At   time.Time
}

// Listener receives events for the name it subscribed to.
type Listener func(ctx context.Context, ev Event)

// Subscription is an active listener registration.
type Subscription interface {
	// Close removes the listener. Calling it more than once is a no-op.
	Close() error
}

// Option configures a Bus.
type Option func(*Bus)

// WithErrorHandler sets the sink for listener panics.
func WithErrorHandler(fn func(ctx context.Context, name string, err error)) Option {
	return func(b *Bus) {
		b.onError = fn
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

// Bus is an in-process named-event feed. Listeners run synchronously on the
// publishing goroutine in subscription order.
type Bus struct {
	mu      sync.RWMutex
	nextID  int64
	closed  bool
	subs    map[string]map[int64]Listener
	onError func(ctx context.Context, name string, err error)
	now     func() time.Time
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[string]map[int64]Listener),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers listener for events published under name.
func (b *Bus) Subscribe(name string, listener Listener) (Subscription, error) {
	if name == "" || listener == nil {
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrInvalidSubscription)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrBusClosed)
	}

	b.nextID++
	id := b.nextID
	if b.subs[name] == nil {
		b.subs[name] = make(map[int64]Listener)
	}
	b.subs[name][id] = listener

	return &subscription{bus: b, name: name, id: id}, nil
}

// Publish delivers an event to every listener registered for name. A
// panicking listener is reported to the error handler and does not stop
// delivery to the rest.
func (b *Bus) Publish(ctx context.Context, name string) error {
	listeners, err := b.snapshot(name)
	if err != nil {
		return fmt.Errorf("publish %q: %w", name, err)
	}

	ev := Event{Name: name, At: b.now()}
	for _, l := range listeners {
		if err := deliverSafely(ctx, l, ev); err != nil && b.onError != nil {
			b.onError(ctx, name, err)
		}
	}
	return nil
}

// Listeners reports how many listeners are registered for name.
func (b *Bus) Listeners(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Close drops every subscription and rejects further use.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int64]Listener)
	return nil
}

// snapshot copies listeners in subscription order so delivery runs unlocked.
func (b *Bus) snapshot(name string) ([]Listener, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	byID := b.subs[name]
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

func (b *Bus) unsubscribe(name string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[name], id)
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// deliverSafely turns a listener panic into an error.
func deliverSafely(ctx context.Context, l Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener for %q: panic recovered: %v", ev.Name, r)
		}
	}()
	l(ctx, ev)
	return nil
}

type subscription struct {
	bus  *Bus
	name string
	id   int64
	once sync.Once
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s.name, s.id)
	})
	return nil
}
