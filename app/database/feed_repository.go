package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// maxSlugAttempts bounds the numeric-suffix retry loop on slug
// collisions.
const maxSlugAttempts = 50

type feedRepository struct {
	db *DB
}

// NewFeedRepository returns the Postgres-backed feed repository.
func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

const feedColumns = `id, url, link, title, subtitle, slug, author, etag, last_modified,
	favicon_url, ttl, last_checked_at, next_fetch_at, created_at, updated_at`

func scanFeed(row interface{ Scan(...any) error }) (*Feed, error) {
	var f Feed
	err := row.Scan(&f.ID, &f.URL, &f.Link, &f.Title, &f.Subtitle, &f.Slug, &f.Author,
		&f.ETag, &f.LastModified, &f.FaviconURL, &f.TTL,
		&f.LastCheckedAt, &f.NextFetchAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFeed inserts a new feed. A URL collision surfaces as
// ErrDuplicateFeed; a slug collision is retried with a numeric suffix.
func (r *feedRepository) CreateFeed(feed *Feed) (*Feed, error) {
	slugBase := feed.Slug
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug := slugBase
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%d", slugBase, attempt)
		}

		err := r.db.QueryRow(`
			INSERT INTO feeds (url, link, title, subtitle, slug, author, etag, last_modified, favicon_url, ttl)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`, feed.URL, feed.Link, feed.Title, feed.Subtitle, slug, feed.Author,
			feed.ETag, feed.LastModified, feed.FaviconURL, feed.TTL).
			Scan(&feed.ID, &feed.CreatedAt, &feed.UpdatedAt)

		if err == nil {
			feed.Slug = slug
			return feed, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "feeds_url_key" {
				return nil, ErrDuplicateFeed
			}
			continue
		}
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}
	return nil, fmt.Errorf("failed to create feed: no free slug for %q", slugBase)
}

func (r *feedRepository) GetFeed(id string) (*Feed, error) {
	feed, err := scanFeed(r.db.QueryRow(
		`SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

func (r *feedRepository) GetFeedByURL(url string) (*Feed, error) {
	feed, err := scanFeed(r.db.QueryRow(
		`SELECT `+feedColumns+` FROM feeds WHERE url = $1`, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return feed, nil
}

func (r *feedRepository) GetAllFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`SELECT ` + feedColumns + ` FROM feeds ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

// GetFeedsDueForRefresh returns feeds whose next fetch time has passed
// (or was never set), oldest first.
func (r *feedRepository) GetFeedsDueForRefresh(limit int) ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE next_fetch_at IS NULL OR next_fetch_at <= NOW()
		ORDER BY next_fetch_at ASC NULLS FIRST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

func (r *feedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

// UpdateFeedMetadata persists the mutable fields refreshed by a
// successful fetch.
func (r *feedRepository) UpdateFeedMetadata(id string, fields FeedMetadata) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET url = $2, link = $3, title = $4, subtitle = $5, author = $6, etag = $7,
			last_modified = $8, favicon_url = $9, ttl = $10, updated_at = NOW()
		WHERE id = $1
	`, id, fields.URL, fields.Link, fields.Title, fields.Subtitle, fields.Author,
		fields.ETag, fields.LastModified, fields.FaviconURL, fields.TTL)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}
	return nil
}

// TouchLastChecked records a refresh attempt, successful or not, and
// schedules the next one.
func (r *feedRepository) TouchLastChecked(id string, nextFetchAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_checked_at = NOW(), next_fetch_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, nextFetchAt)
	if err != nil {
		return fmt.Errorf("failed to update last checked time: %w", err)
	}
	return nil
}
