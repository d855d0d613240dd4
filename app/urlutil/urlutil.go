// Package urlutil provides URL canonicalization helpers used by the
// discovery crawler: a comparison-key normalizer and a translator for
// well-known blogging platform feed conventions.
package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// Normalize reduces a URL to a comparison key: the scheme, query and
// fragment are dropped and a single trailing slash is stripped from the
// path. The result is only ever used to decide whether two URLs refer to
// the same crawl candidate, never as a fetchable address.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		s := strings.TrimPrefix(rawURL, "https://")
		s = strings.TrimPrefix(s, "http://")
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSuffix(s, "/")
	}
	return u.Host + strings.TrimSuffix(u.EscapedPath(), "/")
}

// ParentPath strips the last path segment from a URL, keeping scheme and
// host. The parent of a root URL is the root URL itself.
func ParentPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		u.Path = "/"
		return u.String()
	}
	u.Path = path.Dir(p)
	if u.Path == "." {
		u.Path = "/"
	}
	return u.String()
}

// Translate maps a known blogging platform homepage URL to its
// conventional feed path. URLs already in canonical feed form are
// returned unchanged, so the function is idempotent. Unknown hosts pass
// through untouched.
func Translate(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	host := u.Hostname()
	switch {
	case hasHostSuffix(host, "wordpress.com"), hasHostSuffix(host, "bearblog.dev"):
		if !strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/feed") {
			u.Path = strings.TrimSuffix(u.Path, "/") + "/feed/"
			return u.String()
		}
	case hasHostSuffix(host, "substack.com"):
		if !strings.HasSuffix(u.Path, "/feed") {
			u.Path = strings.TrimSuffix(u.Path, "/") + "/feed"
			return u.String()
		}
	case hasHostSuffix(host, "tumblr.com"):
		if u.Path != "/rss" {
			u.Path = "/rss"
			return u.String()
		}
	case hasHostSuffix(host, "medium.com"):
		if !strings.HasPrefix(u.Path, "/feed") {
			u.Path = "/feed" + u.Path
			return u.String()
		}
	case hasHostSuffix(host, "blogspot.com"):
		if u.Path != "/feeds/posts/default" {
			u.Path = "/feeds/posts/default"
			return u.String()
		}
	}

	return rawURL
}

func hasHostSuffix(host, suffix string) bool {
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
