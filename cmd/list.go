package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheuskafuri/highlights/internal/classify"
	"github.com/matheuskafuri/highlights/internal/highlights"
	"github.com/matheuskafuri/highlights/internal/history"
	"github.com/matheuskafuri/highlights/internal/logging"
	"github.com/spf13/cobra"
)

const listTimeout = 10 * time.Second

// focusFetchLimit widens the query when --focus filters afterwards.
const focusFetchLimit = 500

var (
	flagListLimit  int
	flagListJSON   bool
	flagListSince  string
	flagListFocus  string
	flagListSearch string
)

var errLoadTimeout = errors.New("timed out waiting for highlights")

type listEntry struct {
	PlaceID         int64     `json:"place_id"`
	Score           float64   `json:"score"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	Category        string    `json:"category"`
	VisitCount      int       `json:"visit_count"`
	LastVisit       time.Time `json:"last_visit"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the current highlights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var window time.Duration
		if flagListSince != "" {
			d, err := parseSince(flagListSince)
			if err != nil {
				return fmt.Errorf("invalid --since value: %w", err)
			}
			window = d
		}

		var focus classify.Category
		if flagListFocus != "" {
			cat, err := classify.ResolveAlias(flagListFocus)
			if err != nil {
				return err
			}
			focus = cat
		}

		rt, err := setup(cmd, func(o *history.ManagerOpts) {
			if window > 0 {
				o.Window = window
			}
			if flagListLimit > 0 {
				o.Limit = flagListLimit
			}
			if focus != "" {
				o.Limit = focusFetchLimit
			}
			o.Search = flagListSearch
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		items, err := loadHighlights(rt, listTimeout)
		if err != nil {
			return err
		}
		logging.From(cmd.Context()).Debug("listed highlights", "count", len(items), "focus", focus)

		if focus != "" {
			limit := flagListLimit
			if limit <= 0 {
				limit = rt.cfg.Limit()
			}
			items = filterCategory(items, string(focus), limit)
		}

		if flagListJSON {
			return writeJSON(cmd.OutOrStdout(), items)
		}
		writeText(cmd.OutOrStdout(), items)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&flagListLimit, "limit", "n", 0, "maximum number of highlights (default from config)")
	listCmd.Flags().BoolVar(&flagListJSON, "json", false, "print highlights as JSON")
	listCmd.Flags().StringVar(&flagListSince, "since", "", "only count visits from the last duration (e.g., 7d, 24h)")
	listCmd.Flags().StringVarP(&flagListSearch, "search", "s", "", "only show places whose title or URL contains this text")
	listCmd.Flags().StringVar(&flagListFocus, "focus", "", "only show one category (e.g., dev, news, video)")
}

// loadHighlights builds a cache over the manager and waits for its first
// notification.
func loadHighlights(rt *env, timeout time.Duration) ([]highlights.Item, error) {
	c, err := highlights.New(rt.manager, rt.bus)
	if err != nil {
		return nil, fmt.Errorf("starting highlights: %w", err)
	}
	defer c.Close()

	return waitLoaded(c, timeout)
}

func waitLoaded(c *highlights.Cache, timeout time.Duration) ([]highlights.Item, error) {
	loaded := make(chan struct{}, 1)
	c.SetSubscriber(highlights.SubscriberFunc(func() {
		select {
		case loaded <- struct{}{}:
		default:
		}
	}))
	defer c.SetSubscriber(nil)
	// The initial fetch may have completed before the subscriber was set.
	c.Fetch()

	select {
	case <-loaded:
		return c.CurrentHighlights(), nil
	case <-time.After(timeout):
		return nil, errLoadTimeout
	}
}

func filterCategory(items []highlights.Item, category string, limit int) []highlights.Item {
	out := make([]highlights.Item, 0, len(items))
	for _, it := range items {
		if it.Category != category {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func writeJSON(w io.Writer, items []highlights.Item) error {
	entries := make([]listEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, listEntry{
			PlaceID:         it.PlaceID,
			Score:           it.Score,
			URL:             it.URL,
			Title:           it.Title,
			PreviewImageURL: it.PreviewImageURL,
			Category:        it.Category,
			VisitCount:      it.VisitCount,
			LastVisit:       it.LastVisit,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeText(w io.Writer, items []highlights.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No highlights yet.")
		return
	}
	for i, it := range items {
		title := it.Title
		if title == "" {
			title = it.URL
		}
		fmt.Fprintf(w, "%2d. [%4.1f] %s  (%s, %d visit(s), id %d)\n", i+1, it.Score, title, it.Category, it.VisitCount, it.PlaceID)
		fmt.Fprintf(w, "    %s\n", it.URL)
	}
}
