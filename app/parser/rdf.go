package parser

import (
	"github.com/antchfx/xmlquery"
)

// newRDFDialect builds the RDF/RSS 1.0 dialect by composing the RSS one.
// RDF differs in two ways: items are siblings of <channel> under the root
// rather than children of it, and authorship comes from the Dublin Core
// creator element.
func newRDFDialect(root *xmlquery.Node) *rssDialect {
	d := newRSSDialect(root)

	d.items = func() []*xmlquery.Node {
		return childElements(root, "item")
	}
	d.authorOf = func(item *xmlquery.Node) string {
		if creator := childText(item, "creator"); creator != "" {
			return creator
		}
		return authorName(childText(item, "author"))
	}

	return d
}
