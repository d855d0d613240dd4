package parser

import (
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
)

type atomDialect struct {
	root *xmlquery.Node
}

func newAtomDialect(root *xmlquery.Node) *atomDialect {
	return &atomDialect{root: root}
}

func (d *atomDialect) Title() string {
	return childText(d.root, "title")
}

func (d *atomDialect) Subtitle() string {
	return childText(d.root, "subtitle")
}

func (d *atomDialect) Author() string {
	return personName(childElement(d.root, "author"))
}

func (d *atomDialect) Link() string {
	return pickAtomLink(childElements(d.root, "link"), childText(d.root, "id"))
}

func (d *atomDialect) TTL() int {
	return 0
}

func (d *atomDialect) Entries() []RawEntry {
	feedAuthor := d.Author()

	items := childElements(d.root, "entry")
	entries := make([]RawEntry, 0, len(items))
	for _, item := range items {
		id := childText(item, "id")
		entry := RawEntry{
			Title:     childText(item, "title"),
			Link:      pickAtomLink(childElements(item, "link"), id),
			GUID:      id,
			Published: childText(item, "published"),
			Updated:   childText(item, "updated"),
			Summary:   innerMarkup(childElement(item, "summary")),
			Content:   innerMarkup(childElement(item, "content")),
			Author:    personName(childElement(item, "author")),
		}
		entry.GUIDIsLink = entry.GUID != "" && entry.GUID == entry.Link
		if entry.Author == "" {
			entry.Author = feedAuthor
		}
		entries = append(entries, entry)
	}
	return entries
}

// pickAtomLink selects the most appropriate href from an entry's or
// feed's <link> elements: rel=alternate with type text/html wins, then
// any rel=alternate, then the first link that is neither self nor hub.
// As a last resort the <id> is used when it is itself a valid URL.
func pickAtomLink(links []*xmlquery.Node, id string) string {
	var alternate, other string
	for _, link := range links {
		href := link.SelectAttr("href")
		if href == "" {
			continue
		}
		rel := link.SelectAttr("rel")
		if rel == "alternate" || rel == "" {
			if strings.HasPrefix(link.SelectAttr("type"), "text/html") {
				return href
			}
			if alternate == "" {
				alternate = href
			}
			continue
		}
		if rel != "self" && rel != "hub" && other == "" {
			other = href
		}
	}

	if alternate != "" {
		return alternate
	}
	if other != "" {
		return other
	}
	if u, err := url.Parse(id); err == nil && u.IsAbs() && u.Host != "" {
		return id
	}
	return ""
}

// personName reads an Atom person construct, preferring the name over
// the email address.
func personName(person *xmlquery.Node) string {
	if person == nil {
		return ""
	}
	if name := childText(person, "name"); name != "" {
		return name
	}
	return childText(person, "email")
}

// innerMarkup returns the textual payload of a text construct. Escaped
// HTML content arrives as text nodes, so InnerText already yields the
// embedded markup.
func innerMarkup(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}
