package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(count int, filterLabel, search string, width int, m mode, refreshing bool) string {
	left := fmt.Sprintf(" %d highlights", count)
	if count == 1 {
		left = " 1 highlight"
	}
	if filterLabel != "All" {
		left += " · " + filterLabel
	}
	if search != "" {
		left += fmt.Sprintf(" · %q", search)
	}
	if refreshing {
		left += " (refreshing...)"
	}

	right := " o open  x remove  r refresh  / search  f filter  ? help  q quit "
	switch m {
	case modeFilter:
		right = " ←/→ move  space toggle  esc done "
	case modeSearch:
		right = " esc clear  enter keep "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "

	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
