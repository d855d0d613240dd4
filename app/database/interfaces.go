package database

import (
	"errors"
	"time"
)

// ErrDuplicateFeed is returned by CreateFeed when a feed with the same
// URL already exists. Callers treat it as "already subscribed".
var ErrDuplicateFeed = errors.New("feed already exists")

// IdentitySet holds the dedup keys of a feed's stored entries. An
// entry's identity is its guid when one is present; the link serves as
// identity only for entries without a guid. An entry carrying a new
// guid is therefore never suppressed by a link match.
type IdentitySet struct {
	links map[string]bool
	guids map[string]bool
}

func NewIdentitySet() *IdentitySet {
	return &IdentitySet{links: make(map[string]bool), guids: make(map[string]bool)}
}

func (s *IdentitySet) Add(link, guid string) {
	if link != "" {
		s.links[link] = true
	}
	if guid != "" {
		s.guids[guid] = true
	}
}

func (s *IdentitySet) Contains(link, guid string) bool {
	if guid != "" {
		return s.guids[guid]
	}
	return link != "" && s.links[link]
}

// EntryForExtraction is the minimal projection handed to the content
// extraction task.
type EntryForExtraction struct {
	ID     string
	FeedID string
	Link   string
}

type FeedRepository interface {
	CreateFeed(feed *Feed) (*Feed, error)
	GetFeed(id string) (*Feed, error)
	GetFeedByURL(url string) (*Feed, error)
	GetAllFeeds() ([]Feed, error)
	GetFeedsDueForRefresh(limit int) ([]Feed, error)
	GetFeedCount() (int, error)

	UpdateFeedMetadata(id string, fields FeedMetadata) error
	TouchLastChecked(id string, nextFetchAt time.Time) error
}

// FeedMetadata is the set of mutable feed fields refreshed from each
// successful fetch. URL covers permanent redirects moving the feed's
// canonical address.
type FeedMetadata struct {
	URL          string
	Link         string
	Title        string
	Subtitle     string
	Author       string
	ETag         string
	LastModified string
	FaviconURL   string
	TTL          int
}

type EntryRepository interface {
	// InsertEntries persists new entries for a feed, skipping any whose
	// identity already exists, and returns the number inserted. Slug
	// collisions within the feed are resolved by numeric suffixing.
	InsertEntries(feedID string, entries []Entry) (int, error)

	ExistingIdentities(feedID string) (*IdentitySet, error)

	GetEntries(feedID string, limit int) ([]Entry, error)
	GetEntryCount(feedID string) (int, error)

	GetEntriesForExtraction(limit int) ([]EntryForExtraction, error)
	UpdateEntryContent(id, content, thumbnailURL string) error
	ClearExtractionFlag(id string) error
}
