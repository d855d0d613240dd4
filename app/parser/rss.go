package parser

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// rssDialect reads RSS 2.0 documents. Entry lookup and per-entry author
// lookup are function fields so the RDF dialect can compose this one,
// replacing only what RDF does differently.
type rssDialect struct {
	root     *xmlquery.Node
	channel  *xmlquery.Node
	items    func() []*xmlquery.Node
	authorOf func(item *xmlquery.Node) string
}

func newRSSDialect(root *xmlquery.Node) *rssDialect {
	d := &rssDialect{
		root:    root,
		channel: childElement(root, "channel"),
	}
	d.items = func() []*xmlquery.Node {
		return childElements(d.channel, "item")
	}
	d.authorOf = func(item *xmlquery.Node) string {
		return authorName(childText(item, "author"))
	}
	return d
}

func (d *rssDialect) Title() string {
	return childText(d.channel, "title")
}

func (d *rssDialect) Subtitle() string {
	return childText(d.channel, "description")
}

func (d *rssDialect) Author() string {
	return authorName(childText(d.channel, "managingEditor"))
}

// Link returns the channel's site link. RSS represents it as the text
// content of a plain <link> element; Atom-namespaced <link> elements that
// feeds commonly mix in are skipped.
func (d *rssDialect) Link() string {
	for _, link := range childElements(d.channel, "link") {
		if link.NamespaceURI != "" {
			continue
		}
		if text := strings.TrimSpace(link.InnerText()); text != "" {
			return text
		}
	}
	return ""
}

func (d *rssDialect) TTL() int {
	if ttl, err := strconv.Atoi(childText(d.channel, "ttl")); err == nil && ttl > 0 {
		return ttl
	}
	return 0
}

func (d *rssDialect) Entries() []RawEntry {
	items := d.items()
	entries := make([]RawEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, d.entryFromItem(item))
	}
	return entries
}

func (d *rssDialect) entryFromItem(item *xmlquery.Node) RawEntry {
	entry := RawEntry{
		Title:     childText(item, "title"),
		Published: childText(item, "pubDate"),
		Summary:   childText(item, "description"),
		Author:    d.authorOf(item),
	}

	for _, link := range childElements(item, "link") {
		if link.NamespaceURI != "" {
			continue
		}
		if text := strings.TrimSpace(link.InnerText()); text != "" {
			entry.Link = text
			break
		}
	}

	// RSS 1.0 items carry their date in Dublin Core
	if entry.Published == "" {
		entry.Published = childText(item, "date")
	}

	// content:encoded holds the full body when a feed ships both
	if encoded := childElement(item, "encoded"); encoded != nil {
		entry.Content = strings.TrimSpace(encoded.InnerText())
	}

	if guid := childText(item, "guid"); guid != "" {
		entry.GUID = guid
		entry.GUIDIsLink = guid == entry.Link
	}

	return entry
}
