package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/highlights/internal/highlights"
)

// filterBar narrows the highlight list to the toggled categories.
type filterBar struct {
	categories   []string
	active       map[string]bool
	filterMode   bool
	filterCursor int
}

func newFilterBar(categories []string) filterBar {
	return filterBar{
		categories: categories,
		active:     make(map[string]bool),
	}
}

func (f *filterBar) toggle(category string) {
	if f.active[category] {
		delete(f.active, category)
	} else {
		f.active[category] = true
	}
}

func (f *filterBar) toggleCurrent() {
	if f.filterCursor < len(f.categories) {
		f.toggle(f.categories[f.filterCursor])
	}
}

func (f *filterBar) activeCategories() []string {
	if len(f.active) == 0 {
		return nil // nil = all categories
	}
	var out []string
	for _, c := range f.categories {
		if f.active[c] {
			out = append(out, c)
		}
	}
	return out
}

func (f *filterBar) activeLabel() string {
	active := f.activeCategories()
	if active == nil {
		return "All"
	}
	return strings.Join(active, ", ")
}

// apply keeps the cache order and never mutates items.
func (f *filterBar) apply(items []highlights.Item) []highlights.Item {
	if len(f.active) == 0 {
		return items
	}
	out := make([]highlights.Item, 0, len(items))
	for _, it := range items {
		if f.active[it.Category] {
			out = append(out, it)
		}
	}
	return out
}

func (f *filterBar) render(width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	if len(f.active) == 0 {
		parts = append(parts, tabActiveStyle.Render("All"))
	} else {
		parts = append(parts, tabInactiveStyle.Render("All"))
	}

	for i, c := range f.categories {
		style := tabInactiveStyle
		if f.active[c] {
			style = tabActiveStyle
		}
		label := c
		if f.filterMode && i == f.filterCursor {
			label = "[" + c + "]"
		}
		parts = append(parts, style.Render(label))
	}

	// Stop adding tabs once the row would overflow
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
