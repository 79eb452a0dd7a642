package history

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrPlaceNotFound = errors.New("place not found")
	ErrInvalidURL    = errors.New("invalid url")
)

type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
	now     func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB, now: time.Now}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Times are stored as unix milliseconds so aggregates scan cleanly.
func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS places (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			url               TEXT NOT NULL UNIQUE,
			title             TEXT NOT NULL DEFAULT '',
			preview_image_url TEXT NOT NULL DEFAULT '',
			created_at        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS visits (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			place_id     INTEGER NOT NULL REFERENCES places(id),
			visited_at   INTEGER NOT NULL,
			view_time_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_visits_place ON visits(place_id);
		CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at DESC);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}

// RecordVisit upserts the place by URL and appends one visit. Empty title or
// preview values never overwrite stored ones.
func (s *Store) RecordVisit(v VisitInput) (Place, error) {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return Place{}, err
	}
	defer tx.Rollback()

	p, err := s.recordVisitTx(tx, v)
	if err != nil {
		return Place{}, err
	}
	if err := tx.Commit(); err != nil {
		return Place{}, err
	}
	return p, nil
}

// RecordVisits records a batch in one transaction and returns how many were
// stored. Any invalid entry aborts the whole batch.
func (s *Store) RecordVisits(visits []VisitInput) (int, error) {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, v := range visits {
		if _, err := s.recordVisitTx(tx, v); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(visits), nil
}

func (s *Store) recordVisitTx(tx *sql.Tx, v VisitInput) (Place, error) {
	if err := validateURL(v.URL); err != nil {
		return Place{}, err
	}

	now := s.now()
	visitedAt := v.VisitedAt
	if visitedAt.IsZero() {
		visitedAt = now
	}

	var (
		p         Place
		createdAt int64
	)
	err := tx.QueryRow(`
		INSERT INTO places (url, title, preview_image_url, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE places.title END,
			preview_image_url = CASE WHEN excluded.preview_image_url != '' THEN excluded.preview_image_url ELSE places.preview_image_url END
		RETURNING id, url, title, preview_image_url, created_at
	`, v.URL, v.Title, v.PreviewImageURL, now.UnixMilli()).Scan(&p.ID, &p.URL, &p.Title, &p.PreviewImageURL, &createdAt)
	if err != nil {
		return Place{}, fmt.Errorf("upserting place %s: %w", v.URL, err)
	}
	p.CreatedAt = time.UnixMilli(createdAt)

	viewTime := v.ViewTime
	if viewTime < 0 {
		viewTime = 0
	}
	if _, err := tx.Exec(
		`INSERT INTO visits (place_id, visited_at, view_time_ms) VALUES (?, ?, ?)`,
		p.ID, visitedAt.UnixMilli(), viewTime.Milliseconds(),
	); err != nil {
		return Place{}, fmt.Errorf("inserting visit for %s: %w", v.URL, err)
	}
	return p, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q (only http/https recorded)", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// PlaceStats aggregates visits per place, most recently visited first.
func (s *Store) PlaceStats(opts QueryOpts) ([]PlaceStats, error) {
	var (
		where []string
		args  []interface{}
	)

	if !opts.Since.IsZero() {
		where = append(where, "v.visited_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}

	if opts.Search != "" {
		where = append(where, "(p.title LIKE ? OR p.url LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	query := `
		SELECT p.id, p.url, p.title, p.preview_image_url, p.created_at,
		       COUNT(v.id), MAX(v.visited_at), COALESCE(SUM(v.view_time_ms), 0)
		FROM places p
		JOIN visits v ON v.place_id = p.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY p.id ORDER BY MAX(v.visited_at) DESC, p.id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	defer rows.Close()

	var out []PlaceStats
	for rows.Next() {
		var (
			ps                      PlaceStats
			createdAt, last, viewMS int64
		)
		if err := rows.Scan(&ps.ID, &ps.URL, &ps.Title, &ps.PreviewImageURL, &createdAt,
			&ps.VisitCount, &last, &viewMS); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}
		ps.CreatedAt = time.UnixMilli(createdAt)
		ps.LastVisit = time.UnixMilli(last)
		ps.TotalViewTime = time.Duration(viewMS) * time.Millisecond
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *Store) GetPlace(id int64) (Place, error) {
	var (
		p         Place
		createdAt int64
	)
	err := s.readDB.QueryRow(
		`SELECT id, url, title, preview_image_url, created_at FROM places WHERE id = ?`, id,
	).Scan(&p.ID, &p.URL, &p.Title, &p.PreviewImageURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Place{}, fmt.Errorf("place %d: %w", id, ErrPlaceNotFound)
	}
	if err != nil {
		return Place{}, fmt.Errorf("reading place %d: %w", id, err)
	}
	p.CreatedAt = time.UnixMilli(createdAt)
	return p, nil
}

// RemovePlace deletes a place and all of its visits.
func (s *Store) RemovePlace(id int64) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM visits WHERE place_id = ?`, id); err != nil {
		return fmt.Errorf("deleting visits of place %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting place %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("place %d: %w", id, ErrPlaceNotFound)
	}
	return tx.Commit()
}

// Prune deletes visits older than olderThan, then any place left without
// visits, and vacuums the file when anything went. It returns the number of
// visits deleted.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixMilli()

	tx, err := s.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM visits WHERE visited_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning visits: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`DELETE FROM places WHERE id NOT IN (SELECT DISTINCT place_id FROM visits)`); err != nil {
		return 0, fmt.Errorf("pruning orphan places: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if deleted > 0 {
		if _, err := s.writeDB.Exec(`VACUUM`); err != nil {
			return deleted, fmt.Errorf("vacuuming after prune: %w", err)
		}
	}
	return deleted, nil
}

// Stats reports row counts and the on-disk size of dbPath.
func (s *Store) Stats(dbPath string) (places, visits int, size int64, err error) {
	if err = s.readDB.QueryRow(`SELECT COUNT(*) FROM places`).Scan(&places); err != nil {
		return 0, 0, 0, fmt.Errorf("counting places: %w", err)
	}
	if err = s.readDB.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&visits); err != nil {
		return 0, 0, 0, fmt.Errorf("counting visits: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	return places, visits, info.Size(), nil
}

func (s *Store) SetLastImport(t time.Time) error {
	return s.setMeta("last_import", t.Format(time.RFC3339))
}

func (s *Store) LastImport() (time.Time, error) {
	v, err := s.getMeta("last_import")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *Store) getMeta(key string) (string, error) {
	var value string
	err := s.readDB.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("reading meta %s: %w", key, err)
	}
	return value, nil
}
