// Package parser turns raw feed documents into a normalized Descriptor
// and a list of RawEntry values. Three dialects are supported, dispatched
// on the namespace-stripped root element: RSS 2.0 (<rss>), RDF/RSS 1.0
// (<RDF>) and Atom (<feed>). The dialects disagree on element names and
// link representation, so each one implements the same accessor surface
// over a shared XML tree.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// dialect is the common accessor surface over one feed format.
type dialect interface {
	Title() string
	Subtitle() string
	Author() string
	Link() string
	TTL() int
	Entries() []RawEntry
}

// Parse parses a feed document. It fails with *ParseError when the
// document has no root element or the root tag is not a known feed
// dialect. Malformed XML is handled by a recovering decoder (charset
// aware, non-strict), so incomplete documents degrade to partial results
// rather than hard failures.
func Parse(data []byte) (*Descriptor, []RawEntry, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &ParseError{Reason: fmt.Sprintf("unreadable document: %v", err)}
	}

	root := firstElementChild(doc)
	if root == nil {
		return nil, nil, &ParseError{Reason: "document has no root element"}
	}

	var d dialect
	switch root.Data {
	case "rss":
		d = newRSSDialect(root)
	case "RDF":
		d = newRDFDialect(root)
	case "feed":
		d = newAtomDialect(root)
	default:
		return nil, nil, &ParseError{Reason: fmt.Sprintf("unrecognized root element <%s>", root.Data)}
	}

	desc := &Descriptor{
		Title:    d.Title(),
		Subtitle: d.Subtitle(),
		Author:   d.Author(),
		Link:     d.Link(),
		TTL:      d.TTL(),
	}

	return desc, d.Entries(), nil
}

func firstElementChild(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// childElement returns the first direct child element with the given
// local name, regardless of namespace.
func childElement(n *xmlquery.Node, local string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			return c
		}
	}
	return nil
}

// childElements returns all direct child elements with the given local
// name, in document order.
func childElements(n *xmlquery.Node, local string) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			out = append(out, c)
		}
	}
	return out
}

func childText(n *xmlquery.Node, local string) string {
	if c := childElement(n, local); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

// authorName reduces the single-string author form ("email name" or
// "email (name)") to a display name. A string without a space is treated
// as a bare email address.
func authorName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	email, rest, found := strings.Cut(s, " ")
	if !found {
		return email
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "(")
	rest = strings.TrimSuffix(rest, ")")
	if rest == "" {
		return email
	}
	return rest
}
