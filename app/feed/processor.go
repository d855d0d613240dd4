package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"feedreader/app/crawler"
	"feedreader/app/database"
	"feedreader/app/fetch"
	"feedreader/app/parser"
)

// Processor drives feed discovery, single-feed refresh and bulk refresh,
// sitting between the crawler/fetcher and the repositories.
type Processor struct {
	client          *fetch.Client
	crawler         *crawler.Crawler
	normalizer      *Normalizer
	feedRepo        database.FeedRepository
	entryRepo       database.EntryRepository
	refreshInterval time.Duration
}

func NewProcessor(client *fetch.Client, cr *crawler.Crawler,
	feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	refreshInterval time.Duration) *Processor {
	return &Processor{
		client:          client,
		crawler:         cr,
		normalizer:      NewNormalizer(),
		feedRepo:        feedRepo,
		entryRepo:       entryRepo,
		refreshInterval: refreshInterval,
	}
}

// RefreshResult is one feed's outcome within a bulk refresh.
type RefreshResult struct {
	FeedID     string
	NewEntries int
	Err        error
}

// DiscoverFeed crawls outward from seedURL, persists the discovered
// feed and its entries, and returns the stored feed plus the number of
// entries inserted. An already-subscribed feed comes back with
// database.ErrDuplicateFeed and the existing record.
func (p *Processor) DiscoverFeed(ctx context.Context, seedURL string) (*database.Feed, int, error) {
	result, err := p.crawler.Discover(ctx, seedURL)
	if err != nil {
		return nil, 0, err
	}
	desc := result.Feed

	slug := Slugify(desc.Title)
	if slug == "" {
		slug = Slugify(hostOf(desc.Link))
	}

	created, err := p.feedRepo.CreateFeed(&database.Feed{
		URL:          desc.URL,
		Link:         desc.Link,
		Title:        desc.Title,
		Subtitle:     desc.Subtitle,
		Slug:         slug,
		Author:       desc.Author,
		ETag:         desc.ETag,
		LastModified: desc.LastModified,
		FaviconURL:   result.FaviconURL,
		TTL:          desc.TTL,
	})
	if errors.Is(err, database.ErrDuplicateFeed) {
		existing, getErr := p.feedRepo.GetFeedByURL(desc.URL)
		if getErr != nil {
			return nil, 0, getErr
		}
		if existing == nil {
			return nil, 0, fmt.Errorf("feed %s reported as duplicate but not found", desc.URL)
		}
		return existing, 0, database.ErrDuplicateFeed
	}
	if err != nil {
		return nil, 0, err
	}

	inserted, err := p.storeEntries(created.ID, desc.Link, result.Entries)
	if err != nil {
		return created, inserted, err
	}

	if err := p.feedRepo.TouchLastChecked(created.ID, p.nextFetchAt(created.TTL)); err != nil {
		return created, inserted, err
	}

	slog.Info("Feed discovered", "url", created.URL, "title", created.Title, "entries", inserted)
	return created, inserted, nil
}

// RefreshFeed conditionally refetches one stored feed and appends any
// new entries. A 304 answer only advances the check timestamps.
func (p *Processor) RefreshFeed(ctx context.Context, feed *database.Feed) (int, error) {
	resp, err := p.client.GetConditional(ctx, feed.URL, feed.ETag, feed.LastModified)
	if err != nil {
		if touchErr := p.feedRepo.TouchLastChecked(feed.ID, p.nextFetchAt(feed.TTL)); touchErr != nil {
			slog.Warn("Failed to record refresh attempt", "feed_id", feed.ID, "error", touchErr)
		}
		return 0, err
	}
	return p.applyRefresh(feed, resp)
}

// BulkRefresh refetches many feeds through a bounded worker pool.
// Fetches run concurrently; normalization and persistence are applied
// by this single consumer, so no two writers touch the same feed.
// Results stream out per feed as they complete.
func (p *Processor) BulkRefresh(ctx context.Context, feeds []database.Feed, concurrency int) <-chan RefreshResult {
	out := make(chan RefreshResult)

	byID := make(map[string]database.Feed, len(feeds))
	requests := make([]fetch.Request, 0, len(feeds))
	for _, feed := range feeds {
		byID[feed.ID] = feed
		requests = append(requests, fetch.Request{
			ID:           feed.ID,
			URL:          feed.URL,
			ETag:         feed.ETag,
			LastModified: feed.LastModified,
		})
	}

	pool := fetch.NewPool(p.client, concurrency)

	go func() {
		defer close(out)
		for result := range pool.FetchAll(ctx, requests) {
			feed := byID[result.Request.ID]
			refresh := RefreshResult{FeedID: feed.ID}
			if result.Err != nil {
				if err := p.feedRepo.TouchLastChecked(feed.ID, p.nextFetchAt(feed.TTL)); err != nil {
					slog.Warn("Failed to record refresh attempt", "feed_id", feed.ID, "error", err)
				}
				refresh.Err = result.Err
			} else {
				refresh.NewEntries, refresh.Err = p.applyRefresh(&feed, result.Response)
			}
			select {
			case out <- refresh:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// applyRefresh parses a refresh response and persists what changed.
func (p *Processor) applyRefresh(feed *database.Feed, resp *fetch.Response) (int, error) {
	if resp.NotModified() {
		slog.Debug("Feed unchanged", "feed_id", feed.ID, "url", feed.URL)
		return 0, p.feedRepo.TouchLastChecked(feed.ID, p.nextFetchAt(feed.TTL))
	}

	desc, raw, err := parser.Parse(resp.Body)
	if err != nil {
		if touchErr := p.feedRepo.TouchLastChecked(feed.ID, p.nextFetchAt(feed.TTL)); touchErr != nil {
			slog.Warn("Failed to record refresh attempt", "feed_id", feed.ID, "error", touchErr)
		}
		return 0, fmt.Errorf("refresh %s: %w", feed.URL, err)
	}
	desc.Finalize(resp.URL, resp.ETag(), resp.LastModified())

	err = p.feedRepo.UpdateFeedMetadata(feed.ID, database.FeedMetadata{
		URL:          desc.URL,
		Link:         desc.Link,
		Title:        desc.Title,
		Subtitle:     desc.Subtitle,
		Author:       desc.Author,
		ETag:         desc.ETag,
		LastModified: desc.LastModified,
		FaviconURL:   feed.FaviconURL,
		TTL:          desc.TTL,
	})
	if err != nil {
		return 0, err
	}

	inserted, err := p.storeEntries(feed.ID, desc.Link, raw)
	if err != nil {
		return inserted, err
	}

	if err := p.feedRepo.TouchLastChecked(feed.ID, p.nextFetchAt(desc.TTL)); err != nil {
		return inserted, err
	}

	if inserted > 0 {
		slog.Info("Feed refreshed", "feed_id", feed.ID, "url", feed.URL, "new_entries", inserted)
	}
	return inserted, nil
}

// storeEntries normalizes raw entries and inserts the survivors.
func (p *Processor) storeEntries(feedID, feedLink string, raw []parser.RawEntry) (int, error) {
	entries := make([]database.Entry, 0, len(raw))
	for _, r := range raw {
		entry := p.normalizer.Run(r, feedLink)
		if entry == nil {
			continue
		}
		entries = append(entries, database.Entry{
			Title:           entry.Title,
			Slug:            entry.Slug,
			Link:            entry.Link,
			GUID:            entry.GUID,
			Author:          entry.Author,
			Content:         entry.Content,
			Summary:         entry.Summary,
			ThumbnailURL:    entry.ThumbnailURL,
			PublishedAt:     entry.PublishedAt,
			UpdatedAt:       entry.UpdatedAt,
			NeedsExtraction: entry.NeedsExtraction,
		})
	}
	return p.entryRepo.InsertEntries(feedID, entries)
}

// nextFetchAt schedules the next refresh: the feed's declared ttl when
// present, the configured interval otherwise.
func (p *Processor) nextFetchAt(ttl int) time.Time {
	interval := p.refreshInterval
	if ttl > 0 {
		interval = time.Duration(ttl) * time.Minute
	}
	return time.Now().UTC().Add(interval)
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
