// Package scrape extracts feed and favicon candidates from HTML pages
// during discovery. It also owns the table of conventional feed paths
// probed when a page yields nothing.
package scrape

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"feedreader/app/urlutil"
)

// commonFeedNames are conventional feed locations probed when a page
// advertises no feed of its own.
var commonFeedNames = []string{
	"feed.xml", "index.xml", "rss.xml", "feed", "rss", "atom.xml", "atom", "feed.atom",
}

var feedHrefPattern = regexp.MustCompile(`(?i)(index|feed|rss|atom)[^/]*\.xml$`)

// Page is a parsed HTML document with its base URL, ready for feed-link
// and favicon extraction.
type Page struct {
	doc  *goquery.Document
	base *url.URL
}

func ParsePage(body []byte, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc, base: base}, nil
}

// FindFeedLink returns the page's most likely feed URL, resolved against
// the page's base, or "" when the page advertises none. Candidates are
// considered in order of reliability: a typed <link> element first, then
// anchors that look like feed links by text or by href shape.
func (p *Page) FindFeedLink() string {
	sel := p.doc.Find(`link[type="application/atom+xml"], link[type="application/rss+xml"]`)
	if href, ok := sel.First().Attr("href"); ok && href != "" {
		return p.resolve(href)
	}

	var found string
	p.doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(a.Text()), "rss") {
			found, _ = a.Attr("href")
			return false
		}
		return true
	})
	if found != "" {
		return p.resolve(found)
	}

	p.doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if feedHrefPattern.MatchString(href) {
			found = href
			return false
		}
		return true
	})
	if found != "" {
		return p.resolve(found)
	}

	p.doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		trimmed := strings.ToLower(strings.TrimSuffix(href, "/"))
		if strings.HasSuffix(trimmed, "rss") || strings.HasSuffix(trimmed, "atom") {
			found = href
			return false
		}
		return true
	})
	if found != "" {
		return p.resolve(found)
	}
	return ""
}

// FindFavicons collects the page's declared icons in document order,
// resolved against the base URL, then appends the site-root
// /favicon.ico and /favicon.png conventions as last-resort candidates.
func (p *Page) FindFavicons() []string {
	var out []string
	seen := make(map[string]bool)

	p.doc.Find("link[rel]").Each(func(_ int, link *goquery.Selection) {
		rel, _ := link.Attr("rel")
		if !relIsIcon(rel) {
			return
		}
		href, ok := link.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "data:") {
			return
		}
		resolved := p.resolve(href)
		if resolved != "" && !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	})

	root := *p.base
	root.Path = ""
	root.RawQuery = ""
	root.Fragment = ""
	for _, name := range []string{"/favicon.ico", "/favicon.png"} {
		candidate := root.String() + name
		if !seen[candidate] {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

func (p *Page) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(ref).String()
}

func relIsIcon(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, "icon") {
			return true
		}
	}
	return false
}

// CommonFeedPaths guesses conventional feed locations for a URL: every
// name from the table under the URL's own path, then under the site
// root. The URL itself is excluded so a failed probe is not retried.
func CommonFeedPaths(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}

	tried := urlutil.Normalize(rawURL)
	seen := make(map[string]bool)
	var out []string

	addUnder := func(dir string) {
		for _, name := range commonFeedNames {
			candidate := *u
			candidate.RawQuery = ""
			candidate.Fragment = ""
			candidate.Path = path.Join("/", dir, name)
			s := candidate.String()
			key := urlutil.Normalize(s)
			if key == tried || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}

	if dir := strings.TrimSuffix(u.Path, "/"); dir != "" && dir != "/" {
		addUnder(dir)
	}
	addUnder("")

	return out
}
