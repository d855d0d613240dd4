package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type entryRepository struct {
	db *DB
}

// NewEntryRepository returns the Postgres-backed entry repository.
func NewEntryRepository(db *DB) EntryRepository {
	return &entryRepository{db: db}
}

const entryColumns = `id, feed_id, title, slug, link, guid, author, content, summary,
	thumbnail_url, published_at, updated_at, needs_extraction, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.FeedID, &e.Title, &e.Slug, &e.Link, &e.GUID, &e.Author,
		&e.Content, &e.Summary, &e.ThumbnailURL, &e.PublishedAt, &e.UpdatedAt,
		&e.NeedsExtraction, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertEntries persists new entries for one feed. Entries whose
// identity (link, guid) is already stored are skipped; slug collisions
// within the feed are retried with a numeric suffix. Returns the number
// of rows actually inserted.
func (r *entryRepository) InsertEntries(feedID string, entries []Entry) (int, error) {
	existing, err := r.ExistingIdentities(feedID)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, entry := range entries {
		if existing.Contains(entry.Link, entry.GUID) {
			continue
		}
		if err := r.insertEntry(feedID, entry); err != nil {
			return inserted, err
		}
		existing.Add(entry.Link, entry.GUID)
		inserted++
	}
	return inserted, nil
}

func (r *entryRepository) insertEntry(feedID string, entry Entry) error {
	slugBase := entry.Slug
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug := slugBase
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%d", slugBase, attempt)
		}

		_, err := r.db.Exec(`
			INSERT INTO entries (feed_id, title, slug, link, guid, author, content, summary,
				thumbnail_url, published_at, updated_at, needs_extraction)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, feedID, entry.Title, slug, entry.Link, entry.GUID, entry.Author,
			entry.Content, entry.Summary, entry.ThumbnailURL,
			entry.PublishedAt, entry.UpdatedAt, entry.NeedsExtraction)

		if err == nil {
			return nil
		}
		if isSlugCollision(err) {
			continue
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return fmt.Errorf("failed to insert entry: no free slug for %q", slugBase)
}

func isSlugCollision(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ExistingIdentities returns the identity set of a feed's stored
// entries, used to suppress duplicates before insert.
func (r *entryRepository) ExistingIdentities(feedID string) (*IdentitySet, error) {
	rows, err := r.db.Query(`SELECT link, guid FROM entries WHERE feed_id = $1`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry identities: %w", err)
	}
	defer rows.Close()

	identities := NewIdentitySet()
	for rows.Next() {
		var link, guid string
		if err := rows.Scan(&link, &guid); err != nil {
			return nil, fmt.Errorf("failed to scan entry identity: %w", err)
		}
		identities.Add(link, guid)
	}
	return identities, rows.Err()
}

// GetEntries returns a feed's entries, newest first.
func (r *entryRepository) GetEntries(feedID string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT `+entryColumns+`
		FROM entries
		WHERE feed_id = $1
		ORDER BY published_at DESC NULLS LAST, created_at DESC
		LIMIT $2
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *entryRepository) GetEntryCount(feedID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE feed_id = $1`, feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// GetEntriesForExtraction returns entries still waiting for full
// content extraction, oldest first.
func (r *entryRepository) GetEntriesForExtraction(limit int) ([]EntryForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, link
		FROM entries
		WHERE needs_extraction AND link <> ''
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for extraction: %w", err)
	}
	defer rows.Close()

	var entries []EntryForExtraction
	for rows.Next() {
		var e EntryForExtraction
		if err := rows.Scan(&e.ID, &e.FeedID, &e.Link); err != nil {
			return nil, fmt.Errorf("failed to scan entry for extraction: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateEntryContent replaces an entry's content with the extracted
// page body and clears the extraction flag.
func (r *entryRepository) UpdateEntryContent(id, content, thumbnailURL string) error {
	_, err := r.db.Exec(`
		UPDATE entries
		SET content = $2, thumbnail_url = COALESCE(NULLIF($3, ''), thumbnail_url),
			needs_extraction = FALSE
		WHERE id = $1
	`, id, content, thumbnailURL)
	if err != nil {
		return fmt.Errorf("failed to update entry content: %w", err)
	}
	return nil
}

// ClearExtractionFlag gives up on extracting an entry, keeping its
// promoted summary as content.
func (r *entryRepository) ClearExtractionFlag(id string) error {
	_, err := r.db.Exec(`UPDATE entries SET needs_extraction = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear extraction flag: %w", err)
	}
	return nil
}
