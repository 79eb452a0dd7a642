package history

import "time"

// Place is a unique URL that has been visited at least once.
type Place struct {
	ID              int64
	URL             string
	Title           string
	PreviewImageURL string
	CreatedAt       time.Time
}

// VisitInput describes one page view to record.
type VisitInput struct {
	URL             string
	Title           string
	PreviewImageURL string
	VisitedAt       time.Time
	ViewTime        time.Duration
}

// PlaceStats aggregates the visits of a single place.
type PlaceStats struct {
	Place
	VisitCount    int
	LastVisit     time.Time
	TotalViewTime time.Duration
}

type QueryOpts struct {
	Since  time.Time
	Search string
	Limit  int
}
