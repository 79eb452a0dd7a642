package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Reading list</title>
    <link>https://example.com/</link>
    <description>Exported pages</description>
    <item>
      <title>Go &lt;b&gt;Concurrency&lt;/b&gt; Patterns</title>
      <link>https://go.dev/talks/concurrency</link>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
      <enclosure url="https://go.dev/images/gopher.png" type="image/png" length="100"/>
    </item>
    <item>
      <title>No date here</title>
      <link>https://example.com/undated</link>
    </item>
    <item>
      <title>Local file</title>
      <link>file:///home/user/notes.html</link>
    </item>
    <item>
      <title>Missing link</title>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Visited</title>
  <id>urn:uuid:visited</id>
  <updated>2025-06-03T12:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <id>urn:uuid:1</id>
    <link href="https://example.org/atom-entry"/>
    <updated>2025-06-03T12:00:00Z</updated>
  </entry>
</feed>`

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testParser() *Parser {
	p := NewParser()
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestParseRSS(t *testing.T) {
	res, err := testParser().Parse(strings.NewReader(rssFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Visits) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(res.Visits))
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 skipped items, got %d", res.Skipped)
	}

	first := res.Visits[0]
	if first.URL != "https://go.dev/talks/concurrency" {
		t.Errorf("unexpected url %q", first.URL)
	}
	if first.Title != "Go Concurrency Patterns" {
		t.Errorf("expected HTML stripped from title, got %q", first.Title)
	}
	if first.PreviewImageURL != "https://go.dev/images/gopher.png" {
		t.Errorf("expected enclosure as preview, got %q", first.PreviewImageURL)
	}
	want := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !first.VisitedAt.Equal(want) {
		t.Errorf("expected visit time %v, got %v", want, first.VisitedAt)
	}

	if !res.Visits[1].VisitedAt.Equal(fixedNow) {
		t.Errorf("expected undated item stamped now, got %v", res.Visits[1].VisitedAt)
	}
}

func TestParseAtom(t *testing.T) {
	res, err := testParser().Parse(strings.NewReader(atomFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Visits) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(res.Visits))
	}
	v := res.Visits[0]
	if v.URL != "https://example.org/atom-entry" {
		t.Errorf("unexpected url %q", v.URL)
	}
	if !v.VisitedAt.Equal(time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("expected updated time used, got %v", v.VisitedAt)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := testParser().Parse(strings.NewReader("not a feed")); err == nil {
		t.Error("expected error for invalid feed")
	}
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	rss := filepath.Join(dir, "list.rss")
	atom := filepath.Join(dir, "list.atom")
	if err := os.WriteFile(rss, []byte(rssFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(atom, []byte(atomFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	res := ParseFiles(context.Background(), []string{rss, atom, filepath.Join(dir, "missing.xml")})
	if len(res.Visits) != 3 {
		t.Errorf("expected 3 visits across files, got %d", len(res.Visits))
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", res.Skipped)
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected 1 error for missing file, got %d", len(res.Errors))
	}
}

func TestParseFilesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ParseFiles(ctx, []string{"a.xml", "b.xml"})
	if len(res.Errors) != 2 {
		t.Errorf("expected an error per file, got %d", len(res.Errors))
	}
}

func TestImportable(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/x", true},
		{"", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := importable(tt.link); got != tt.want {
			t.Errorf("importable(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
	}
	for _, tt := range tests {
		got := stripHTML(tt.input)
		if got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
