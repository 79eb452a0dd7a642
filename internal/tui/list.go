package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matheuskafuri/highlights/internal/highlights"
)

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// displayTitle falls back to the host for untitled pages.
func displayTitle(it highlights.Item) string {
	if it.Title != "" {
		return it.Title
	}
	if u, err := url.Parse(it.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return it.URL
}

func renderListItem(it highlights.Item, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(displayTitle(it), width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(displayTitle(it), width-4))
	}

	meta := "  " + categoryStyle(it.Category).Render(it.Category) +
		" " + itemScoreStyle.Render(fmt.Sprintf("%.1f", it.Score)) +
		" " + itemTimeStyle.Render("· "+relativeTime(it.LastVisit))

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderList(items []highlights.Item, cursor int, height int, width int) string {
	if len(items) == 0 {
		return lipglossCenter("No matching highlights", width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(items[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
