package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const emptyText = "No highlights yet"

// renderEmptyState fills the content area before the first load and when the
// cache holds nothing.
func renderEmptyState(width, height int, loading bool, spinnerView string) string {
	titleStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorText)

	var lines []string
	if loading {
		lines = append(lines, spinnerView+" "+labelStyle.Render("Loading highlights..."))
	} else {
		lines = append(lines, titleStyle.Render(emptyText))
		lines = append(lines, "")
		lines = append(lines, helpDimStyle.Render("Pages you visit often show up here."))
		lines = append(lines, helpDimStyle.Render("Record one with: highlights visit <url>"))
		lines = append(lines, "")
		lines = append(lines, keyStyle.Render("[r]")+"  "+labelStyle.Render("Refresh"))
		lines = append(lines, keyStyle.Render("[q]")+"  "+labelStyle.Render("Quit"))
	}

	content := strings.Join(lines, "\n")
	contentHeight := strings.Count(content, "\n") + 1

	topPad := (height - contentHeight) / 3
	if topPad < 0 {
		topPad = 0
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
