package database

import (
	"time"
)

type Feed struct {
	ID            string // Database UUID
	URL           string // Canonical feed URL (post-redirect)
	Link          string // Site homepage URL, never equal to URL
	Title         string
	Subtitle      string
	Slug          string
	Author        string
	ETag          string // Stored verbatim from the ETag response header
	LastModified  string // Stored verbatim from the Last-Modified response header
	FaviconURL    string
	TTL           int // Feed-declared refresh hint, minutes
	LastCheckedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Entry struct {
	ID              string
	FeedID          string
	Title           string
	Slug            string
	Link            string
	GUID            string
	Author          string
	Content         string
	Summary         string
	ThumbnailURL    string
	PublishedAt     *time.Time
	UpdatedAt       *time.Time
	NeedsExtraction bool
	CreatedAt       time.Time
}
