package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matheuskafuri/highlights/internal/events"
	"github.com/matheuskafuri/highlights/internal/highlights"
)

type staticProvider struct {
	items []highlights.Item
	calls int
}

func (p *staticProvider) GetHighlights(completion func([]highlights.Item)) {
	p.calls++
	completion(p.items)
}

type fakeRemover struct {
	ids []int64
	err error
}

func (r *fakeRemover) RemovePlace(ctx context.Context, id int64) error {
	r.ids = append(r.ids, id)
	return r.err
}

type recordingSender struct {
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.msgs = append(s.msgs, msg)
}

func sampleItems() []highlights.Item {
	now := time.Now()
	return []highlights.Item{
		{PlaceID: 1, Score: 9.1, URL: "https://go.dev/blog", Title: "Go Blog", Category: "Dev", VisitCount: 4, LastVisit: now},
		{PlaceID: 2, Score: 7.4, URL: "https://news.ycombinator.com", Title: "Hacker News", Category: "News", VisitCount: 2, LastVisit: now},
		{PlaceID: 3, Score: 3.0, URL: "https://pkg.go.dev", Title: "", Category: "Dev", VisitCount: 1, LastVisit: now},
	}
}

func testApp(t *testing.T, items []highlights.Item) (*App, *staticProvider, *fakeRemover) {
	t.Helper()
	p := &staticProvider{items: items}
	bus := events.New()
	c, err := highlights.New(p, bus)
	if err != nil {
		t.Fatalf("highlights.New: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		bus.Close()
	})

	r := &fakeRemover{}
	a := NewApp(RunOpts{Cache: c, Remover: r})
	a.width, a.height = 120, 40
	return a, p, r
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a *App, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = a.Update(key(k))
	}
	return cmd
}

func TestLoadingUntilFirstNotification(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())

	if !a.loading {
		t.Fatal("expected loading before the first notification")
	}
	if !strings.Contains(a.View(), "Loading highlights") {
		t.Error("expected loading view")
	}

	a.Update(highlightsLoadedMsg{})
	if a.loading {
		t.Error("expected loading cleared")
	}
	if len(a.items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(a.items))
	}
	if !strings.Contains(a.View(), "Go Blog") {
		t.Error("expected first highlight in view")
	}
}

func TestEmptyState(t *testing.T) {
	a, _, _ := testApp(t, nil)
	a.Update(highlightsLoadedMsg{})

	if !strings.Contains(a.View(), emptyText) {
		t.Errorf("expected %q in view", emptyText)
	}
}

func TestCursorMovement(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	press(a, "j", "j", "j")
	if a.cursor != 2 {
		t.Errorf("expected cursor clamped at 2, got %d", a.cursor)
	}
	press(a, "k", "k", "k")
	if a.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", a.cursor)
	}

	press(a, "tab", "j")
	if a.cursor != 0 || a.previewScroll != 1 {
		t.Errorf("expected preview scroll with preview focus, got cursor=%d scroll=%d", a.cursor, a.previewScroll)
	}
}

func TestOpenSelected(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	var opened []string
	a.open = func(u string) error {
		opened = append(opened, u)
		return nil
	}

	press(a, "j")
	cmd := press(a, "enter")
	if cmd == nil {
		t.Fatal("expected open command")
	}
	if msg := cmd(); msg != nil {
		t.Errorf("expected nil msg on success, got %v", msg)
	}
	if len(opened) != 1 || opened[0] != "https://news.ycombinator.com" {
		t.Errorf("expected selected url opened, got %v", opened)
	}
}

func TestOpenErrorShown(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})
	a.open = func(string) error { return errors.New("no browser") }

	msg := press(a, "o")()
	a.Update(msg)
	if a.err == nil || !strings.Contains(a.View(), "no browser") {
		t.Errorf("expected error in status, got %v", a.err)
	}

	press(a, "j")
	if a.err != nil {
		t.Error("expected keypress to clear error")
	}
}

func TestOpenWithNothingSelected(t *testing.T) {
	a, _, _ := testApp(t, nil)
	a.Update(highlightsLoadedMsg{})
	if cmd := press(a, "o"); cmd != nil {
		t.Error("expected no command with empty list")
	}
}

func TestRemoveSelected(t *testing.T) {
	a, _, r := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	cmd := press(a, "j", "x")
	if cmd == nil {
		t.Fatal("expected remove command")
	}
	msg := cmd()
	removed, ok := msg.(placeRemovedMsg)
	if !ok {
		t.Fatalf("expected placeRemovedMsg, got %T", msg)
	}
	if removed.id != 2 || len(r.ids) != 1 || r.ids[0] != 2 {
		t.Errorf("expected place 2 removed, got msg=%+v calls=%v", removed, r.ids)
	}

	a.Update(msg)
	if !strings.Contains(a.View(), "Removed Hacker News") {
		t.Error("expected removal status")
	}
}

func TestRemoveError(t *testing.T) {
	a, _, r := testApp(t, sampleItems())
	r.err = errors.New("locked")
	a.Update(highlightsLoadedMsg{})

	msg := press(a, "x")()
	if _, ok := msg.(errMsg); !ok {
		t.Fatalf("expected errMsg, got %T", msg)
	}
}

func TestRefreshFetches(t *testing.T) {
	a, p, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})
	before := p.calls

	if cmd := press(a, "r"); cmd == nil {
		t.Error("expected spinner tick while refreshing")
	}
	if !a.refreshing {
		t.Error("expected refreshing state")
	}
	press(a, "r")
	if p.calls != before+1 {
		t.Errorf("expected exactly one extra fetch, got %d", p.calls-before)
	}

	a.Update(highlightsLoadedMsg{})
	if a.refreshing {
		t.Error("expected refreshing cleared after load")
	}
}

func TestFilterByCategory(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	// Categories are in classify order: News first, then Dev.
	press(a, "f", "2", "esc")
	if a.mode != modeNormal {
		t.Fatal("expected filter mode exited")
	}
	if len(a.items) != 2 {
		t.Fatalf("expected 2 Dev items, got %d", len(a.items))
	}
	for _, it := range a.items {
		if it.Category != "Dev" {
			t.Errorf("unexpected category %q", it.Category)
		}
	}
	if got := a.filterBar.activeLabel(); got != "Dev" {
		t.Errorf("expected Dev label, got %q", got)
	}

	press(a, "f", "2", "esc")
	if len(a.items) != 3 {
		t.Errorf("expected all items after toggling off, got %d", len(a.items))
	}
}

func TestReloadKeepsSelection(t *testing.T) {
	items := sampleItems()
	a, p, _ := testApp(t, items)
	a.Update(highlightsLoadedMsg{})
	press(a, "j")

	// Place 2 moves to the top on the next fetch.
	p.items = []highlights.Item{items[1], items[0], items[2]}
	a.cache.Fetch()
	a.Update(highlightsLoadedMsg{})

	if it, _ := a.selected(); it.PlaceID != 2 {
		t.Errorf("expected selection to follow place 2, got %d", it.PlaceID)
	}
}

func TestReloadClampsCursor(t *testing.T) {
	items := sampleItems()
	a, p, _ := testApp(t, items)
	a.Update(highlightsLoadedMsg{})
	press(a, "j", "j")

	p.items = items[:1]
	a.cache.Fetch()
	a.Update(highlightsLoadedMsg{})

	if a.cursor != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", a.cursor)
	}
}

func TestHelpToggle(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	press(a, "?")
	if a.mode != modeHelp || !strings.Contains(a.View(), "Keyboard Shortcuts") {
		t.Error("expected help view")
	}
	if cmd := press(a, "q"); cmd != nil {
		t.Error("expected q to close help, not quit")
	}
	if a.mode != modeNormal {
		t.Error("expected normal mode after closing help")
	}
}

func TestQuit(t *testing.T) {
	a, _, _ := testApp(t, nil)
	cmd := press(a, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNotifierSendsLoadedMsg(t *testing.T) {
	p := &staticProvider{items: sampleItems()}
	bus := events.New()
	defer bus.Close()
	c, err := highlights.New(p, bus)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	s := &recordingSender{}
	c.SetSubscriber(notifier(s))
	if err := bus.Publish(context.Background(), events.HistoryUpdated); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(s.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(s.msgs))
	}
	if _, ok := s.msgs[0].(highlightsLoadedMsg); !ok {
		t.Errorf("expected highlightsLoadedMsg, got %T", s.msgs[0])
	}
}

func TestSearchFiltersByTitleAndURL(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	if cmd := press(a, "/"); cmd == nil {
		t.Error("expected blink command when entering search")
	}
	if a.mode != modeSearch {
		t.Fatal("expected search mode")
	}
	if !strings.Contains(a.View(), "/ ") {
		t.Error("expected search prompt in view")
	}

	press(a, "H", "a", "c", "k")
	if len(a.items) != 1 || a.items[0].PlaceID != 2 {
		t.Fatalf("expected title match on Hacker News, got %+v", a.items)
	}

	// Keys typed in search mode never trigger actions.
	if a.mode != modeSearch {
		t.Error("expected to stay in search mode while typing")
	}

	press(a, "enter")
	if a.mode != modeNormal || len(a.items) != 1 {
		t.Errorf("expected search kept after enter, mode=%v items=%d", a.mode, len(a.items))
	}
	if !strings.Contains(a.View(), `"Hack"`) {
		t.Error("expected active search shown in status bar")
	}

	press(a, "/", "esc")
	if a.mode != modeNormal || len(a.items) != 3 {
		t.Errorf("expected esc to clear search, mode=%v items=%d", a.mode, len(a.items))
	}
}

func TestSearchMatchesURL(t *testing.T) {
	a, _, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})

	press(a, "/", "p", "k", "g")
	if len(a.items) != 1 || a.items[0].PlaceID != 3 {
		t.Fatalf("expected URL match on pkg.go.dev, got %+v", a.items)
	}
}

func TestSearchSurvivesReload(t *testing.T) {
	a, p, _ := testApp(t, sampleItems())
	a.Update(highlightsLoadedMsg{})
	press(a, "/", "g", "o", "enter")

	p.items = append(p.items, highlights.Item{PlaceID: 4, URL: "https://golang.org", Title: "Golang", Category: "Dev"})
	a.cache.Fetch()
	a.Update(highlightsLoadedMsg{})

	for _, it := range a.items {
		if it.PlaceID == 2 {
			t.Errorf("expected non-matching item filtered after reload")
		}
	}
	if len(a.items) != 3 {
		t.Errorf("expected 3 matches for go, got %d", len(a.items))
	}
}

func TestMatchSearch(t *testing.T) {
	items := sampleItems()
	if got := matchSearch(items, "  "); len(got) != len(items) {
		t.Errorf("expected blank query to keep everything, got %d", len(got))
	}
	if got := matchSearch(items, "BLOG"); len(got) != 1 || got[0].PlaceID != 1 {
		t.Errorf("expected case-insensitive match, got %+v", got)
	}
	if got := matchSearch(items, "nothing"); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}
