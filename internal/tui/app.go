package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/highlights/internal/browser"
	"github.com/matheuskafuri/highlights/internal/classify"
	"github.com/matheuskafuri/highlights/internal/highlights"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeSearch
	modeHelp
)

// Remover deletes a place and all of its visits.
type Remover interface {
	RemovePlace(ctx context.Context, id int64) error
}

type App struct {
	cache   *highlights.Cache
	remover Remover
	open    func(string) error
	log     *slog.Logger

	// all is the latest cache snapshot; items is all after filtering and
	// search.
	all    []highlights.Item
	items  []highlights.Item
	cursor int
	focus  focusPane
	mode   mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar

	loading       bool
	refreshing    bool
	previewScroll int
	currentDate   string
	status        string
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cache   *highlights.Cache
	Remover Remover
	Logger  *slog.Logger
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search titles and URLs..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	categories := make([]string, 0, len(classify.AllCategories()))
	for _, c := range classify.AllCategories() {
		categories = append(categories, string(c))
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &App{
		cache:       opts.Cache,
		remover:     opts.Remover,
		open:        browser.Open,
		log:         log.With("component", "tui"),
		searchInput: ti,
		spinner:     sp,
		filterBar:   newFilterBar(categories),
		loading:     true,
		currentDate: time.Now().Format("Jan 2"),
	}
}

func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

func openBrowserCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		if err := open(url); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (a *App) removeCmd(it highlights.Item) tea.Cmd {
	if a.remover == nil {
		return nil
	}
	r := a.remover
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.RemovePlace(ctx, it.PlaceID); err != nil {
			return errMsg{err: fmt.Errorf("removing %s: %w", displayTitle(it), err)}
		}
		return placeRemovedMsg{id: it.PlaceID, title: displayTitle(it)}
	}
}

// reload takes a fresh snapshot from the cache, keeping the cursor on the
// same place when it survived.
func (a *App) reload() {
	var selected int64
	if a.cursor < len(a.items) {
		selected = a.items[a.cursor].PlaceID
	}

	a.all = a.cache.CurrentHighlights()
	a.applyFilter()

	for i, it := range a.items {
		if it.PlaceID == selected {
			if i != a.cursor {
				a.previewScroll = 0
			}
			a.cursor = i
			return
		}
	}
}

func (a *App) applyFilter() {
	a.items = matchSearch(a.filterBar.apply(a.all), a.searchInput.Value())
	if a.cursor >= len(a.items) {
		a.cursor = max(0, len(a.items)-1)
		a.previewScroll = 0
	}
}

// matchSearch keeps items whose title or URL contains query, ignoring case.
func matchSearch(items []highlights.Item, query string) []highlights.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := make([]highlights.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), query) || strings.Contains(strings.ToLower(it.URL), query) {
			out = append(out, it)
		}
	}
	return out
}

func (a *App) selected() (highlights.Item, bool) {
	if len(a.items) == 0 || a.cursor >= len(a.items) {
		return highlights.Item{}, false
	}
	return a.items[a.cursor], true
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error and status on any keypress
		a.err = nil
		a.status = ""
		return a.handleKey(msg)

	case highlightsLoadedMsg:
		a.loading = false
		a.refreshing = false
		a.reload()
		return a, nil

	case placeRemovedMsg:
		a.status = "Removed " + msg.title
		a.log.Info("removed place from tui", "place_id", msg.id)
		return a, nil

	case errMsg:
		a.err = msg.err
		a.log.Warn("tui action failed", "err", msg.err)
		return a, nil

	case spinner.TickMsg:
		if a.loading || a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.items)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if it, ok := a.selected(); ok {
			return a, openBrowserCmd(a.open, it.URL)
		}
		return a, nil
	case "x":
		if it, ok := a.selected(); ok {
			return a, a.removeCmd(it)
		}
		return a, nil
	case "r":
		if !a.refreshing {
			a.refreshing = true
			a.cache.Fetch()
			return a, a.spinner.Tick
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.filterBar.filterMode = true
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.applyFilter()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	prev := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// Only re-filter on actual value changes, not cursor moves etc.
	if a.searchInput.Value() != prev {
		a.cursor = 0
		a.previewScroll = 0
		a.applyFilter()
	}
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.categories)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		a.filterBar.toggleCurrent()
		a.cursor = 0
		a.applyFilter()
		return a, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(a.filterBar.categories) {
			a.filterBar.toggle(a.filterBar.categories[idx])
			a.cursor = 0
			a.applyFilter()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	if len(lines) >= a.height {
		lines = lines[:max(0, a.height-1)]
	}
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  highlights")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  q quit")
	}

	headerHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders

	if contentHeight < 3 {
		contentHeight = 3
	}

	headerLeft := headerStyle.Render("highlights")
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	filter := a.filterBar.render(a.width)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	var content string
	if a.loading || len(a.all) == 0 {
		content = renderEmptyState(a.width, contentHeight+2, a.loading, a.spinner.View())
	} else {
		content = a.renderPanes(contentHeight)
	}

	status := renderStatusBar(len(a.items), a.filterBar.activeLabel(), a.searchInput.Value(), a.width, a.mode, a.refreshing)
	if a.refreshing {
		status = a.spinner.View() + " " + status
	}
	if a.status != "" {
		status = statusBarStyle.Width(a.width).Render(" " + a.status)
	}
	if a.err != nil {
		status = errorStyle.Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, filter, content, status)
}

func (a *App) renderPanes(contentHeight int) string {
	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1 // gap

	innerListW := listWidth - 4 // border + padding
	listContent := renderList(a.items, a.cursor, contentHeight, innerListW)

	listStyle := listPaneStyle
	previewStyle := previewPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	} else {
		previewStyle = previewPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	var selected *highlights.Item
	if it, ok := a.selected(); ok {
		selected = &it
	}
	previewContent := renderPreview(selected, previewWidth-4, contentHeight, a.previewScroll)
	previewPane := previewStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("highlights")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Move through highlights\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open page in browser\n" +
		"  x             Remove page from history\n" +
		"  r             Refresh highlights\n" +
		"  /             Search titles and URLs\n" +
		"  f             Toggle category filter mode\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  ←/→, h/l     Move between categories\n" +
		"  space/enter   Toggle category\n" +
		"  1-9           Toggle category by number\n" +
		"  esc, f        Exit filter mode\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

type sender interface {
	Send(msg tea.Msg)
}

// notifier turns cache notifications into messages for the running program.
func notifier(s sender) highlights.Subscriber {
	return highlights.SubscriberFunc(func() {
		s.Send(highlightsLoadedMsg{})
	})
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())

	opts.Cache.SetSubscriber(notifier(p))
	defer opts.Cache.SetSubscriber(nil)
	// The initial fetch may have completed before the subscriber was set.
	opts.Cache.Fetch()

	_, err := p.Run()
	return err
}
