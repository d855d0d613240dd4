// Package crawler implements feed discovery: starting from a seed URL
// it walks a small frontier of candidate URLs, classifying each fetched
// document as a feed or an HTML page, until a feed is found or the
// candidate space is exhausted.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"feedreader/app/fetch"
	"feedreader/app/parser"
	"feedreader/app/scrape"
	"feedreader/app/urlutil"
)

// NoFeedFoundError reports a crawl that exhausted every candidate
// without finding a feed. It is an expected discovery outcome, not a
// system fault.
type NoFeedFoundError struct {
	Seed string
}

func (e *NoFeedFoundError) Error() string {
	return fmt.Sprintf("no feed found for %s", e.Seed)
}

// Result is a successful discovery: the parsed feed, its raw entries,
// the HTTP response the feed came from, and the site favicon when one
// could be verified.
type Result struct {
	Feed       *parser.Descriptor
	Entries    []parser.RawEntry
	Response   *fetch.Response
	FaviconURL string
}

// Crawler holds no per-crawl state, so one instance may serve many
// concurrent Discover calls.
type Crawler struct {
	client *fetch.Client
}

func New(client *fetch.Client) *Crawler {
	return &Crawler{client: client}
}

// frontier is the per-crawl candidate stack. A URL is enqueued at most
// once: candidates are marked visited on push, keyed by their
// normalized form, so equivalent URLs never re-enter.
type frontier struct {
	visited map[string]bool
	pending []string
}

func newFrontier() *frontier {
	return &frontier{visited: make(map[string]bool)}
}

func (f *frontier) push(rawURL string) bool {
	key := urlutil.Normalize(rawURL)
	if key == "" || f.visited[key] {
		return false
	}
	f.visited[key] = true
	f.pending = append(f.pending, rawURL)
	return true
}

func (f *frontier) pop() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	last := f.pending[len(f.pending)-1]
	f.pending = f.pending[:len(f.pending)-1]
	return last, true
}

// Discover crawls outward from seedURL until it finds a feed. Known
// blogging platforms are translated to their conventional feed path
// before the crawl starts. Individual candidate failures are logged and
// abandoned; the crawl only fails as a whole, with *NoFeedFoundError.
func (c *Crawler) Discover(ctx context.Context, seedURL string) (*Result, error) {
	var (
		feed     *parser.Descriptor
		entries  []parser.RawEntry
		feedResp *fetch.Response
		page     *scrape.Page
	)

	f := newFrontier()
	f.push(urlutil.Translate(seedURL))

	lastTried := seedURL
	triedCommonPaths := false
	triedParent := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, ok := f.pop()
		if !ok {
			// An exhausted frontier escalates before the crawl gives
			// up: common feed paths if no feed has turned up, the
			// parent path if no HTML page has. Each fires at most once.
			added := false
			if feed == nil && !triedCommonPaths {
				triedCommonPaths = true
				for _, guess := range scrape.CommonFeedPaths(lastTried) {
					if f.push(guess) {
						added = true
					}
				}
			}
			if page == nil && !triedParent {
				triedParent = true
				if f.push(urlutil.ParentPath(lastTried)) {
					added = true
				}
			}
			if !added {
				break
			}
			continue
		}
		lastTried = candidate

		resp, err := c.client.Get(ctx, candidate)
		if err != nil {
			slog.Debug("Discovery candidate failed", "url", candidate, "error", err)
			continue
		}

		switch {
		case resp.IsHTML() && page == nil:
			p, err := scrape.ParsePage(resp.Body, resp.URL)
			if err != nil {
				slog.Debug("Discovery page unreadable", "url", resp.URL, "error", err)
				continue
			}
			page = p
			if feed != nil {
				continue
			}
			if link := p.FindFeedLink(); link != "" && sameHost(link, resp.URL) {
				f.push(link)
			} else {
				slog.Debug("No feed link in page", "url", resp.URL)
			}
		case feed == nil:
			desc, raw, err := parser.Parse(resp.Body)
			if err != nil {
				slog.Debug("Discovery candidate is not a feed", "url", resp.URL, "error", err)
				continue
			}
			desc.Finalize(resp.URL, resp.ETag(), resp.LastModified())
			feed, entries, feedResp = desc, raw, resp
			// The feed's site link is our best shot at an HTML page to
			// harvest a favicon from.
			if page == nil && desc.Link != "" {
				f.push(desc.Link)
			}
		}
	}

	if feed == nil {
		return nil, &NoFeedFoundError{Seed: seedURL}
	}

	if page != nil {
		feed.FaviconURL = c.probeFavicons(ctx, page)
	}

	return &Result{Feed: feed, Entries: entries, Response: feedResp, FaviconURL: feed.FaviconURL}, nil
}

// probeFavicons fetches the page's favicon candidates in order and
// returns the first that answers 200 with a non-HTML payload.
func (c *Crawler) probeFavicons(ctx context.Context, page *scrape.Page) string {
	for _, candidate := range page.FindFavicons() {
		resp, err := c.client.Get(ctx, candidate)
		if err != nil {
			continue
		}
		if resp.StatusCode == 200 && !resp.IsHTML() {
			return candidate
		}
	}
	return ""
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}
