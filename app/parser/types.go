package parser

import (
	"fmt"
	"net/url"
	"strings"

	"feedreader/app/urlutil"
)

// Descriptor is the in-flight representation of a parsed feed. URL is the
// canonical fetch address (set by Finalize after redirects); Link is the
// human-facing site URL and is never left equal to URL.
type Descriptor struct {
	URL          string
	Link         string
	Title        string
	Subtitle     string
	Author       string
	TTL          int // minutes, 0 when the feed does not declare one
	ETag         string
	LastModified string
	FaviconURL   string
}

// RawEntry is the format-specific key/value bag produced by a dialect.
// Every field is optional; the normalizer decides what survives.
type RawEntry struct {
	Title      string
	Link       string
	GUID       string
	GUIDIsLink bool // guid is merely an alias for the link
	Published  string
	Updated    string
	Content    string
	Summary    string
	Author     string
}

// ParseError means the document is not a recognizable feed. It is not
// retryable.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed: %s", e.Reason)
}

// Finalize fills in the response-derived fields of a freshly parsed
// descriptor: the canonical fetch URL, cache validators, the site link
// fallback chain and the title fallback. A feed whose site link points
// back at the feed itself gets the feed's parent path instead.
func (d *Descriptor) Finalize(finalURL, etag, lastModified string) {
	d.URL = finalURL
	d.ETag = etag
	d.LastModified = lastModified

	if d.Link == "" {
		d.Link = finalURL
	} else if base, err := url.Parse(finalURL); err == nil {
		if ref, err := url.Parse(d.Link); err == nil {
			d.Link = base.ResolveReference(ref).String()
		}
	}

	if urlutil.Normalize(d.Link) == urlutil.Normalize(d.URL) {
		d.Link = urlutil.ParentPath(d.URL)
	}

	if d.Title == "" {
		if u, err := url.Parse(d.Link); err == nil && u.Host != "" {
			d.Title = strings.TrimPrefix(u.Hostname(), "www.")
		} else {
			d.Title = d.Link
		}
	}
}
