package feed

import (
	"time"
)

// Entry is a normalized feed entry, ready for persistence. PublishedAt
// doubles as the sort key: entries that only declare an updated time get
// it copied into PublishedAt.
type Entry struct {
	Title        string
	Slug         string
	Link         string
	GUID         string
	Author       string
	Content      string
	Summary      string
	ThumbnailURL string
	PublishedAt  *time.Time
	UpdatedAt    *time.Time

	// NeedsExtraction marks entries whose content was promoted from a
	// bare summary; the extract task later replaces it with the
	// readable body of the linked page.
	NeedsExtraction bool
}
