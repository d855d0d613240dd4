package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"feedreader/app/crawler"
	"feedreader/app/database"
	"feedreader/app/fetch"
)

type fakeFeedRepo struct {
	mu        sync.Mutex
	nextID    int
	feeds     map[string]*database.Feed
	byURL     map[string]*database.Feed
	touched   map[string]int
	metadata  map[string]database.FeedMetadata
	createErr error
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{
		feeds:    make(map[string]*database.Feed),
		byURL:    make(map[string]*database.Feed),
		touched:  make(map[string]int),
		metadata: make(map[string]database.FeedMetadata),
	}
}

func (r *fakeFeedRepo) CreateFeed(feed *database.Feed) (*database.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	stored := *feed
	stored.ID = fmt.Sprintf("feed-%d", r.nextID)
	r.feeds[stored.ID] = &stored
	r.byURL[stored.URL] = &stored
	return &stored, nil
}

func (r *fakeFeedRepo) GetFeed(id string) (*database.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeds[id], nil
}

func (r *fakeFeedRepo) GetFeedByURL(url string) (*database.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byURL[url], nil
}

func (r *fakeFeedRepo) GetAllFeeds() ([]database.Feed, error) { return nil, nil }

func (r *fakeFeedRepo) GetFeedsDueForRefresh(limit int) ([]database.Feed, error) { return nil, nil }

func (r *fakeFeedRepo) GetFeedCount() (int, error) { return len(r.feeds), nil }

func (r *fakeFeedRepo) UpdateFeedMetadata(id string, fields database.FeedMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[id] = fields
	return nil
}

func (r *fakeFeedRepo) TouchLastChecked(id string, nextFetchAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[id]++
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries map[string][]database.Entry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[string][]database.Entry)}
}

func (r *fakeEntryRepo) InsertEntries(feedID string, entries []database.Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := database.NewIdentitySet()
	for _, e := range r.entries[feedID] {
		existing.Add(e.Link, e.GUID)
	}
	inserted := 0
	for _, e := range entries {
		if existing.Contains(e.Link, e.GUID) {
			continue
		}
		existing.Add(e.Link, e.GUID)
		r.entries[feedID] = append(r.entries[feedID], e)
		inserted++
	}
	return inserted, nil
}

func (r *fakeEntryRepo) ExistingIdentities(feedID string) (*database.IdentitySet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := database.NewIdentitySet()
	for _, e := range r.entries[feedID] {
		set.Add(e.Link, e.GUID)
	}
	return set, nil
}

func (r *fakeEntryRepo) GetEntries(feedID string, limit int) ([]database.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[feedID], nil
}

func (r *fakeEntryRepo) GetEntryCount(feedID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[feedID]), nil
}

func (r *fakeEntryRepo) GetEntriesForExtraction(limit int) ([]database.EntryForExtraction, error) {
	return nil, nil
}

func (r *fakeEntryRepo) UpdateEntryContent(id, content, thumbnailURL string) error { return nil }

func (r *fakeEntryRepo) ClearExtractionFlag(id string) error { return nil }

func rssBody(title, siteLink string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>%s</title>
<link>%s</link>
<item>
<title>First post</title>
<link>%s/first</link>
<guid isPermaLink="false">guid-first</guid>
<description>The first post body.</description>
</item>
<item>
<title>Second post</title>
<link>%s/second</link>
<guid isPermaLink="false">guid-second</guid>
<description>The second post body.</description>
</item>
</channel>
</rss>`, title, siteLink, siteLink, siteLink)
}

func newTestProcessor(feedRepo *fakeFeedRepo, entryRepo *fakeEntryRepo) *Processor {
	client := fetch.NewClient("feedreader-test/1.0", 5*time.Second)
	return NewProcessor(client, crawler.New(client), feedRepo, entryRepo, time.Hour)
}

func TestBulkRefresh(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/ok.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Ok Feed", srv.URL))
	})
	mux.HandleFunc("/cached.xml", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"tag-1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Cached Feed", srv.URL))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	feedRepo := newFakeFeedRepo()
	entryRepo := newFakeEntryRepo()
	p := newTestProcessor(feedRepo, entryRepo)

	feeds := []database.Feed{
		{ID: "feed-ok", URL: srv.URL + "/ok.xml"},
		{ID: "feed-cached", URL: srv.URL + "/cached.xml", ETag: `"tag-1"`},
		{ID: "feed-broken", URL: srv.URL + "/broken.xml"},
	}

	results := make(map[string]RefreshResult)
	for result := range p.BulkRefresh(context.Background(), feeds, 2) {
		if _, seen := results[result.FeedID]; seen {
			t.Errorf("Expected one result per feed, got a second for %s", result.FeedID)
		}
		results[result.FeedID] = result
	}

	if len(results) != len(feeds) {
		t.Fatalf("Expected %d results, got %d", len(feeds), len(results))
	}

	ok := results["feed-ok"]
	if ok.Err != nil {
		t.Errorf("Expected no error for healthy feed, got %v", ok.Err)
	}
	if ok.NewEntries != 2 {
		t.Errorf("Expected 2 new entries for healthy feed, got %d", ok.NewEntries)
	}
	if count, _ := entryRepo.GetEntryCount("feed-ok"); count != 2 {
		t.Errorf("Expected 2 stored entries, got %d", count)
	}
	if feedRepo.metadata["feed-ok"].Title != "Ok Feed" {
		t.Errorf("Expected metadata title 'Ok Feed', got %q", feedRepo.metadata["feed-ok"].Title)
	}

	cached := results["feed-cached"]
	if cached.Err != nil {
		t.Errorf("Expected no error for 304 feed, got %v", cached.Err)
	}
	if cached.NewEntries != 0 {
		t.Errorf("Expected no new entries for 304 feed, got %d", cached.NewEntries)
	}
	if _, updated := feedRepo.metadata["feed-cached"]; updated {
		t.Error("Expected no metadata update for 304 feed")
	}
	if feedRepo.touched["feed-cached"] != 1 {
		t.Errorf("Expected 304 feed touched once, got %d", feedRepo.touched["feed-cached"])
	}

	broken := results["feed-broken"]
	if broken.Err == nil {
		t.Fatal("Expected an error for failing feed")
	}
	var fetchErr *fetch.Error
	if !errors.As(broken.Err, &fetchErr) || fetchErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected a 500 fetch error, got %v", broken.Err)
	}
	if feedRepo.touched["feed-broken"] == 0 {
		t.Error("Expected failing feed to have its check recorded")
	}
	if count, _ := entryRepo.GetEntryCount("feed-broken"); count != 0 {
		t.Errorf("Expected no entries for failing feed, got %d", count)
	}
}

func TestBulkRefreshSecondPassInsertsNothing(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Steady Feed", srv.URL))
	})

	feedRepo := newFakeFeedRepo()
	entryRepo := newFakeEntryRepo()
	p := newTestProcessor(feedRepo, entryRepo)

	feeds := []database.Feed{{ID: "feed-1", URL: srv.URL + "/feed.xml"}}

	for range p.BulkRefresh(context.Background(), feeds, 1) {
	}
	for result := range p.BulkRefresh(context.Background(), feeds, 1) {
		if result.NewEntries != 0 {
			t.Errorf("Expected unchanged feed to insert nothing, got %d", result.NewEntries)
		}
	}
	if count, _ := entryRepo.GetEntryCount("feed-1"); count != 2 {
		t.Errorf("Expected 2 stored entries after two passes, got %d", count)
	}
}

func TestDiscoverFeed(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Discovered Feed", srv.URL))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Site</title></head><body>hi</body></html>`)
	})

	feedRepo := newFakeFeedRepo()
	entryRepo := newFakeEntryRepo()
	p := newTestProcessor(feedRepo, entryRepo)

	created, inserted, err := p.DiscoverFeed(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Expected discovery to succeed, got %v", err)
	}
	if created == nil || created.Title != "Discovered Feed" {
		t.Fatalf("Expected stored feed 'Discovered Feed', got %+v", created)
	}
	if created.Slug != "discovered-feed" {
		t.Errorf("Expected slug 'discovered-feed', got %q", created.Slug)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 entries inserted, got %d", inserted)
	}
	if feedRepo.touched[created.ID] != 1 {
		t.Errorf("Expected new feed touched once, got %d", feedRepo.touched[created.ID])
	}
}

func TestDiscoverFeedDuplicate(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Known Feed", srv.URL))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>hi</body></html>`)
	})

	feedRepo := newFakeFeedRepo()
	existing := &database.Feed{ID: "feed-existing", URL: srv.URL + "/feed.xml", Title: "Known Feed"}
	feedRepo.byURL[existing.URL] = existing
	feedRepo.createErr = database.ErrDuplicateFeed

	p := newTestProcessor(feedRepo, newFakeEntryRepo())

	got, inserted, err := p.DiscoverFeed(context.Background(), srv.URL+"/feed.xml")
	if !errors.Is(err, database.ErrDuplicateFeed) {
		t.Fatalf("Expected ErrDuplicateFeed, got %v", err)
	}
	if got == nil || got.ID != "feed-existing" {
		t.Errorf("Expected the existing feed record, got %+v", got)
	}
	if inserted != 0 {
		t.Errorf("Expected no entries inserted for duplicate, got %d", inserted)
	}
}

func TestDiscoverFeedDuplicateRecordMissing(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody("Gone Feed", srv.URL))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>hi</body></html>`)
	})

	feedRepo := newFakeFeedRepo()
	feedRepo.createErr = database.ErrDuplicateFeed

	p := newTestProcessor(feedRepo, newFakeEntryRepo())

	got, _, err := p.DiscoverFeed(context.Background(), srv.URL+"/feed.xml")
	if err == nil {
		t.Fatal("Expected an error when the duplicate record cannot be loaded")
	}
	if errors.Is(err, database.ErrDuplicateFeed) {
		t.Errorf("Expected a distinct error, got ErrDuplicateFeed")
	}
	if got != nil {
		t.Errorf("Expected no feed record, got %+v", got)
	}
}
