package api

import (
	"time"

	"feedreader/app/database"
	"feedreader/app/feed"
	"feedreader/app/tasks"
)

type Handler struct {
	feedRepo  database.FeedRepository
	entryRepo database.EntryRepository
	processor *feed.Processor
	scheduler tasks.TaskSchedulerInterface
}

type discoverRequest struct {
	URL string `json:"url" binding:"required"`
}

type feedResponse struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Link          string     `json:"link"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Slug          string     `json:"slug"`
	Author        string     `json:"author,omitempty"`
	FaviconURL    string     `json:"favicon_url,omitempty"`
	TTL           int        `json:"ttl,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	NextFetchAt   *time.Time `json:"next_fetch_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type entryResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Link         string     `json:"link"`
	Author       string     `json:"author,omitempty"`
	Content      string     `json:"content"`
	Summary      string     `json:"summary,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func newFeedResponse(f *database.Feed) feedResponse {
	return feedResponse{
		ID:            f.ID,
		URL:           f.URL,
		Link:          f.Link,
		Title:         f.Title,
		Subtitle:      f.Subtitle,
		Slug:          f.Slug,
		Author:        f.Author,
		FaviconURL:    f.FaviconURL,
		TTL:           f.TTL,
		LastCheckedAt: f.LastCheckedAt,
		NextFetchAt:   f.NextFetchAt,
		CreatedAt:     f.CreatedAt,
	}
}

func newEntryResponse(e *database.Entry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		Title:        e.Title,
		Slug:         e.Slug,
		Link:         e.Link,
		Author:       e.Author,
		Content:      e.Content,
		Summary:      e.Summary,
		ThumbnailURL: e.ThumbnailURL,
		PublishedAt:  e.PublishedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
