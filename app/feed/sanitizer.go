package feed

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// imgClass is applied to every image surviving sanitization so entry
// bodies render uniformly.
const imgClass = "rounded mx-auto d-block"

// thumbnailMaxSrcLength guards against data URIs and tracking-pixel
// monstrosities being picked as the entry thumbnail.
const thumbnailMaxSrcLength = 500

type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "div", "span", "br", "hr", "blockquote", "pre", "code",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tr", "th", "td",
		"figure", "figcaption",
		"a", "b", "strong", "i", "em", "u", "s", "small", "sub", "sup",
		"abbr", "cite", "q", "mark",
		"img", "picture", "source", "video", "audio",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src").OnElements("img", "source", "video", "audio")
	p.AllowAttrs("title").Globally()

	return &Sanitizer{policy: p}
}

// Summary cleans a retained entry summary: images are dropped entirely,
// as are "continue reading" teaser links, then the allow-list filter
// runs over what remains.
func (s *Sanitizer) Summary(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s.policy.Sanitize(html)
	}

	doc.Find("img").Remove()
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(strings.ToLower(a.Text()), "continue reading") {
			a.Remove()
		}
	})

	cleaned, err := doc.Find("body").Html()
	if err != nil {
		cleaned = html
	}
	return strings.TrimSpace(s.policy.Sanitize(cleaned))
}

// Content runs the entry body through the allow-list filter, then
// rewrites every surviving image: presentation attributes are replaced
// with the fixed class and host-less src values are made absolute using
// the feed's site URL. The first image whose final src fits the length
// bound becomes the thumbnail.
func (s *Sanitizer) Content(html, feedLink string) (sanitized, thumbnailURL string) {
	clean := s.policy.Sanitize(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return strings.TrimSpace(clean), ""
	}

	base, _ := url.Parse(feedLink)

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		img.RemoveAttr("width")
		img.RemoveAttr("height")
		img.SetAttr("class", imgClass)

		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if u, err := url.Parse(src); err == nil && u.Host == "" && base != nil {
			src = base.ResolveReference(u).String()
			img.SetAttr("src", src)
		}
		if thumbnailURL == "" && len(src) < thumbnailMaxSrcLength {
			thumbnailURL = src
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return strings.TrimSpace(clean), thumbnailURL
	}
	return strings.TrimSpace(out), thumbnailURL
}

// stripTags reduces an HTML fragment to its text content.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
