package feed

import (
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"feedreader/app/parser"
)

// titleFallbackLength bounds the text prefix used as a title for
// entries that do not declare one.
const titleFallbackLength = 300

// fallbackDateLayout catches feeds that publish dates like
// "03 Jul 2023 PDT", which the general parser gives up on.
const fallbackDateLayout = "02 Jan 2006 MST"

// Normalizer turns raw parsed entries into persistable ones. It is a
// pure transformation of (raw entry, feed site link); entries it cannot
// salvage come back as nil.
type Normalizer struct {
	sanitizer *Sanitizer
}

func NewNormalizer() *Normalizer {
	return &Normalizer{sanitizer: NewSanitizer()}
}

// Run normalizes one raw entry against the feed's site link. A nil
// result means the entry was rejected: no usable body, or a declared
// date that cannot be parsed.
func (n *Normalizer) Run(raw parser.RawEntry, feedLink string) *Entry {
	content := strings.TrimSpace(raw.Content)
	summary := strings.TrimSpace(raw.Summary)

	needsExtraction := false
	if content == "" {
		content = summary
		summary = ""
		needsExtraction = content != ""
	} else if content == summary {
		summary = ""
	}
	if content == "" {
		return nil
	}

	link := resolveEntryLink(raw.Link, feedLink)

	if summary != "" {
		summary = n.sanitizer.Summary(summary)
	}
	content, thumbnailURL := n.sanitizer.Content(content, feedLink)

	publishedAt, ok := parseEntryTime(raw.Published)
	if !ok {
		slog.Debug("Rejecting entry with unparseable published date",
			"link", link, "published", raw.Published)
		return nil
	}
	updatedAt, ok := parseEntryTime(raw.Updated)
	if !ok {
		slog.Debug("Rejecting entry with unparseable updated date",
			"link", link, "updated", raw.Updated)
		return nil
	}
	if publishedAt == nil && updatedAt != nil {
		publishedAt = updatedAt
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = firstRunes(stripTags(content), titleFallbackLength)
	}

	slug := Slugify(title)
	if slug == "" {
		slug = Slugify(lastPathSegment(link))
	}

	var guid string
	if raw.GUID != "" && !raw.GUIDIsLink {
		guid = raw.GUID
	}

	return &Entry{
		Title:           title,
		Slug:            slug,
		Link:            link,
		GUID:            guid,
		Author:          strings.TrimSpace(raw.Author),
		Content:         content,
		Summary:         summary,
		ThumbnailURL:    thumbnailURL,
		PublishedAt:     publishedAt,
		UpdatedAt:       updatedAt,
		NeedsExtraction: needsExtraction,
	}
}

// parseEntryTime parses a feed-provided timestamp. An empty value is
// fine (nil, true); a present but unparseable one is a rejection
// signal (nil, false).
func parseEntryTime(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse(fallbackDateLayout, s); err == nil {
		t = t.UTC()
		return &t, true
	}
	return nil, false
}

func resolveEntryLink(rawLink, feedLink string) string {
	rawLink = strings.TrimSpace(rawLink)
	if rawLink == "" {
		return ""
	}
	base, err := url.Parse(feedLink)
	if err != nil {
		return rawLink
	}
	ref, err := url.Parse(rawLink)
	if err != nil {
		return rawLink
	}
	return base.ResolveReference(ref).String()
}

func lastPathSegment(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	if segment == "/" || segment == "." {
		return ""
	}
	return segment
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
