package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/matheuskafuri/highlights/internal/config"
	"github.com/matheuskafuri/highlights/internal/history"
	"github.com/spf13/cobra"
)

var (
	flagVisitTitle    string
	flagVisitPreview  string
	flagVisitViewTime time.Duration
)

var visitCmd = &cobra.Command{
	Use:   "visit URL",
	Short: "Record a visit to a page",
	Long: `Record that URL was visited just now. Repeat visits to the same URL count
towards the same place; a non-empty --title or --preview replaces the stored one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		p, err := rt.manager.RecordVisit(cmd.Context(), history.VisitInput{
			URL:             args[0],
			Title:           flagVisitTitle,
			PreviewImageURL: flagVisitPreview,
			VisitedAt:       time.Now(),
			ViewTime:        flagVisitViewTime,
		})
		if err != nil {
			return fmt.Errorf("recording visit: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Recorded visit to %s (place %d).\n", p.URL, p.ID)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Forget a place and all of its visits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid place id %q", args[0])
		}

		rt, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		return removePlace(cmd.Context(), rt.manager, id, cmd.OutOrStdout())
	},
}

// removePlace looks the place up first so a bad ID fails before any write.
func removePlace(ctx context.Context, m *history.Manager, id int64, w io.Writer) error {
	p, err := m.Place(ctx, id)
	if err != nil {
		if errors.Is(err, history.ErrPlaceNotFound) {
			return fmt.Errorf("no place with id %d", id)
		}
		return fmt.Errorf("reading place: %w", err)
	}

	if err := m.RemovePlace(ctx, id); err != nil {
		return fmt.Errorf("removing place: %w", err)
	}

	name := p.Title
	if name == "" {
		name = p.URL
	}
	fmt.Fprintf(w, "Removed %s (place %d).\n", name, id)
	return nil
}

func init() {
	visitCmd.Flags().StringVar(&flagVisitTitle, "title", "", "page title")
	visitCmd.Flags().StringVar(&flagVisitPreview, "preview", "", "preview image URL")
	visitCmd.Flags().DurationVar(&flagVisitViewTime, "view-time", 0, "time spent on the page (e.g., 90s, 5m)")
}

// parseSince accepts config durations ("7d", "24h") and rejects
// non-positive ones.
func parseSince(s string) (time.Duration, error) {
	d, err := config.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
