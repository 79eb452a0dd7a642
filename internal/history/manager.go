package history

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matheuskafuri/highlights/internal/classify"
	"github.com/matheuskafuri/highlights/internal/events"
	"github.com/matheuskafuri/highlights/internal/highlights"
	"github.com/matheuskafuri/highlights/internal/score"
)

// Publisher announces named events.
type Publisher interface {
	Publish(ctx context.Context, name string) error
}

// ManagerOpts tunes which places become highlights.
type ManagerOpts struct {
	// Limit caps the number of highlights returned. Defaults to 8.
	Limit int
	// MinVisits drops places visited fewer times. Defaults to 1.
	MinVisits int
	// Window only considers visits newer than now-Window. Zero means all.
	Window time.Duration
	// ExcludeHosts removes places on these hosts and their subdomains.
	ExcludeHosts []string
	// Search keeps places whose title or URL contains it.
	Search  string
	Weights score.Weights
	Logger  *slog.Logger
}

// Manager serves highlights from a Store and publishes events.HistoryUpdated
// after every write.
type Manager struct {
	store *Store
	pub   Publisher
	opts  ManagerOpts
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewManager(store *Store, pub Publisher, opts ManagerOpts) *Manager {
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.MinVisits <= 0 {
		opts.MinVisits = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store: store,
		pub:   pub,
		opts:  opts,
		log:   log.With("component", "history"),
		now:   time.Now,
	}
}

// GetHighlights computes highlights on a new goroutine and hands them to
// completion exactly once. Query failures are logged and delivered as an
// empty list. After Close the request is dropped and completion never runs.
func (m *Manager) GetHighlights(completion func([]highlights.Item)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.log.Debug("highlights requested after close")
		return
	}
	m.inflight.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.inflight.Done()

		items, err := m.Highlights(context.Background())
		if err != nil {
			m.log.Error("loading highlights", "err", err)
			items = []highlights.Item{}
		}
		completion(items)
	}()
}

// Wait blocks until every GetHighlights goroutine has called back.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close rejects further GetHighlights calls and waits for the running ones,
// so the store can be closed safely afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.inflight.Wait()
}

// Highlights returns the ranked highlights synchronously.
func (m *Manager) Highlights(ctx context.Context) ([]highlights.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.now()
	var since time.Time
	if m.opts.Window > 0 {
		since = now.Add(-m.opts.Window)
	}

	stats, err := m.store.PlaceStats(QueryOpts{Since: since, Search: m.opts.Search})
	if err != nil {
		return nil, fmt.Errorf("reading place stats: %w", err)
	}

	items := make([]highlights.Item, 0, len(stats))
	for _, ps := range stats {
		if ps.VisitCount < m.opts.MinVisits || m.excluded(ps.URL) {
			continue
		}
		b := score.ScoreAt(score.Input{
			VisitCount:    ps.VisitCount,
			LastVisit:     ps.LastVisit,
			TotalViewTime: ps.TotalViewTime,
			Title:         ps.Title,
			PreviewImage:  ps.PreviewImageURL,
		}, m.opts.Weights, now)

		items = append(items, highlights.Item{
			Score:           b.Final,
			PlaceID:         ps.ID,
			URL:             ps.URL,
			Title:           ps.Title,
			PreviewImageURL: ps.PreviewImageURL,
			Category:        string(classify.Classify(ps.URL, ps.Title)),
			VisitCount:      ps.VisitCount,
			LastVisit:       ps.LastVisit,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].LastVisit.Equal(items[j].LastVisit) {
			return items[i].LastVisit.After(items[j].LastVisit)
		}
		return items[i].PlaceID > items[j].PlaceID
	})

	if len(items) > m.opts.Limit {
		items = items[:m.opts.Limit]
	}
	return items, nil
}

func (m *Manager) excluded(rawURL string) bool {
	if len(m.opts.ExcludeHosts) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, ex := range m.opts.ExcludeHosts {
		ex = strings.TrimPrefix(strings.ToLower(ex), "www.")
		if host == ex || strings.HasSuffix(host, "."+ex) {
			return true
		}
	}
	return false
}

// Place looks up one place by ID.
func (m *Manager) Place(ctx context.Context, id int64) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	return m.store.GetPlace(id)
}

func (m *Manager) RecordVisit(ctx context.Context, v VisitInput) (Place, error) {
	p, err := m.store.RecordVisit(v)
	if err != nil {
		return Place{}, err
	}
	m.log.Debug("recorded visit", "place_id", p.ID, "url", p.URL)
	m.notify(ctx)
	return p, nil
}

func (m *Manager) RemovePlace(ctx context.Context, id int64) error {
	if err := m.store.RemovePlace(id); err != nil {
		return err
	}
	m.log.Info("removed place", "place_id", id)
	m.notify(ctx)
	return nil
}

// Prune deletes old visits and only notifies when something was removed.
func (m *Manager) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	deleted, err := m.store.Prune(olderThan)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		m.log.Info("pruned visits", "deleted", deleted, "older_than", olderThan)
		m.notify(ctx)
	}
	return deleted, nil
}

func (m *Manager) Import(ctx context.Context, visits []VisitInput) (int, error) {
	if len(visits) == 0 {
		return 0, nil
	}
	n, err := m.store.RecordVisits(visits)
	if err != nil {
		return 0, err
	}
	if err := m.store.SetLastImport(m.now()); err != nil {
		m.log.Warn("saving last import time", "err", err)
	}
	m.log.Info("imported visits", "count", n)
	m.notify(ctx)
	return n, nil
}

// notify publishes HistoryUpdated. The write already succeeded, so a
// publish failure is only logged.
func (m *Manager) notify(ctx context.Context) {
	if m.pub == nil {
		return
	}
	if err := m.pub.Publish(ctx, events.HistoryUpdated); err != nil {
		m.log.Warn("publishing history update", "err", err)
	}
}
