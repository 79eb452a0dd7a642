// Package importer turns RSS or Atom exports of visited pages into history
// visits.
package importer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matheuskafuri/highlights/internal/history"
	"github.com/mmcdole/gofeed"
)

const maxTitleLen = 200

type Result struct {
	Visits  []history.VisitInput
	Skipped int
}

type Parser struct {
	parser *gofeed.Parser
	now    func() time.Time
}

func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser(), now: time.Now}
}

// Parse reads one feed. Items without an http(s) link are skipped; items
// without a date are stamped with the current time.
func (p *Parser) Parse(r io.Reader) (Result, error) {
	feed, err := p.parser.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing feed: %w", err)
	}

	now := p.now()
	res := Result{Visits: make([]history.VisitInput, 0, len(feed.Items))}
	for _, item := range feed.Items {
		if !importable(item.Link) {
			res.Skipped++
			continue
		}

		visited := now
		if item.PublishedParsed != nil {
			visited = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			visited = *item.UpdatedParsed
		}

		res.Visits = append(res.Visits, history.VisitInput{
			URL:             item.Link,
			Title:           truncate(stripHTML(item.Title), maxTitleLen),
			PreviewImageURL: previewImage(item),
			VisitedAt:       visited,
		})
	}
	return res, nil
}

func (p *Parser) ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := p.Parse(f)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func importable(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func previewImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type BatchResult struct {
	Visits  []history.VisitInput
	Skipped int
	Errors  []error
}

// ParseFiles parses every path concurrently. A bad file is reported in
// Errors and does not stop the others.
func ParseFiles(ctx context.Context, paths []string) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
				return
			}
			res, err := NewParser().ParseFile(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err)
				return
			}
			result.Visits = append(result.Visits, res.Visits...)
			result.Skipped += res.Skipped
		}(path)
	}

	wg.Wait()
	return result
}
