package classify

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// Category is a coarse label for a visited page.
type Category string

const (
	News      Category = "News"
	Dev       Category = "Dev"
	Video     Category = "Video"
	Shopping  Category = "Shopping"
	Social    Category = "Social"
	Reference Category = "Reference"
	Other     Category = "Other"
)

// AllCategories returns all categories in canonical order.
func AllCategories() []Category {
	return []Category{News, Dev, Video, Shopping, Social, Reference, Other}
}

// hostCategories matches a host or any of its parent domains.
var hostCategories = map[string]Category{
	"nytimes.com":           News,
	"bbc.co.uk":             News,
	"bbc.com":               News,
	"theguardian.com":       News,
	"reuters.com":           News,
	"apnews.com":            News,
	"news.ycombinator.com":  News,
	"github.com":            Dev,
	"gitlab.com":            Dev,
	"stackoverflow.com":     Dev,
	"pkg.go.dev":            Dev,
	"go.dev":                Dev,
	"developer.mozilla.org": Dev,
	"youtube.com":           Video,
	"youtu.be":              Video,
	"vimeo.com":             Video,
	"twitch.tv":             Video,
	"amazon.com":            Shopping,
	"ebay.com":              Shopping,
	"etsy.com":              Shopping,
	"reddit.com":            Social,
	"twitter.com":           Social,
	"x.com":                 Social,
	"mastodon.social":       Social,
	"bsky.app":              Social,
	"wikipedia.org":         Reference,
	"wiktionary.org":        Reference,
	"britannica.com":        Reference,
}

var categoryKeywords = map[Category][]string{
	News: {
		"breaking", "news", "election", "report", "reports", "live updates",
		"opinion", "editorial", "headline",
	},
	Dev: {
		"golang", "rust", "python", "javascript", "typescript", "api", "sdk",
		"release notes", "pull request", "issue", "compiler", "documentation",
		"tutorial", "kubernetes", "docker", "database",
	},
	Video: {
		"video", "watch", "trailer", "episode", "livestream", "stream", "podcast",
	},
	Shopping: {
		"buy", "price", "deal", "deals", "cart", "checkout", "review", "sale",
		"shipping", "discount",
	},
	Social: {
		"thread", "post", "profile", "followers", "comments", "community",
	},
	Reference: {
		"wiki", "definition", "encyclopedia", "dictionary", "glossary",
		"history of", "how to",
	},
}

// FocusAliases maps short CLI flags to category names.
var FocusAliases = map[string]Category{
	"news":     News,
	"dev":      Dev,
	"code":     Dev,
	"video":    Video,
	"shop":     Shopping,
	"shopping": Shopping,
	"social":   Social,
	"ref":      Reference,
	"wiki":     Reference,
	"other":    Other,
}

// ResolveAlias maps a CLI alias or full category name to a Category.
func ResolveAlias(alias string) (Category, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if cat, ok := FocusAliases[alias]; ok {
		return cat, nil
	}
	for _, cat := range AllCategories() {
		if strings.EqualFold(string(cat), alias) {
			return cat, nil
		}
	}
	valid := make([]string, 0, len(FocusAliases))
	for k := range FocusAliases {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown focus %q (valid: %s)", alias, strings.Join(valid, ", "))
}

// Classify labels a page. The host decides when it is known; otherwise the
// title keywords do, and Other is the fallback.
func Classify(rawURL, title string) Category {
	if cat, ok := classifyHost(rawURL); ok {
		return cat
	}

	tokens := tokenize(title)
	titleLower := strings.ToLower(title)

	var bestCat Category
	bestScore := 0
	for i, cat := range AllCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(kw, " ") {
				if strings.Contains(titleLower, kw) {
					score++
				}
				continue
			}
			for _, t := range tokens {
				if t == kw {
					score++
				}
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && i < categoryIndex(bestCat)) {
			bestScore = score
			bestCat = cat
		}
	}

	if bestScore == 0 {
		return Other
	}
	return bestCat
}

func classifyHost(rawURL string) (Category, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for {
		if cat, ok := hostCategories[host]; ok {
			return cat, true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return "", false
		}
		host = host[dot+1:]
	}
}

func categoryIndex(cat Category) int {
	for i, c := range AllCategories() {
		if c == cat {
			return i
		}
	}
	return len(AllCategories())
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
