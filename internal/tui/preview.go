package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/highlights/internal/highlights"
)

func renderPreview(it *highlights.Item, width, height, scroll int) string {
	if it == nil {
		return lipglossCenter("Select a highlight", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(displayTitle(*it))

	visits := "1 visit"
	if it.VisitCount != 1 {
		visits = fmt.Sprintf("%d visits", it.VisitCount)
	}
	meta := previewMetaStyle.Render(fmt.Sprintf("%s · %s · last %s",
		categoryStyle(it.Category).Render(it.Category), visits, it.LastVisit.Format("Jan 2, 2006 15:04")))

	body := previewBodyStyle.Width(contentWidth).Render(fmt.Sprintf("Score %.1f", it.Score))

	sections := []string{title, meta, body}
	if it.PreviewImageURL != "" {
		sections = append(sections, previewLinkStyle.Width(contentWidth).Render(wrapText("Preview: "+it.PreviewImageURL, contentWidth)))
	}
	sections = append(sections, previewLinkStyle.Width(contentWidth).Render(wrapText(it.URL, contentWidth)))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	// Pad to fill height
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
