// Package fetch wraps HTTP retrieval of feeds and pages: conditional GET
// with cache validators, redirect tracking, and a bounded worker pool for
// bulk fetches.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxBodySize = 10 << 20 // 10 MiB

// Response is a normalized envelope for a completed request. A 304 is a
// valid response, not an error.
type Response struct {
	StatusCode   int
	URL          string // final URL after following redirects
	RequestedURL string // URL originally passed to Get
	Body         []byte
	Header       http.Header
}

// Redirected reports whether the final URL differs from the requested one.
func (r *Response) Redirected() bool {
	return r.URL != r.RequestedURL
}

func (r *Response) ETag() string {
	return r.Header.Get("ETag")
}

func (r *Response) LastModified() string {
	return r.Header.Get("Last-Modified")
}

func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// NotModified reports a 304 response to a conditional request.
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// IsHTML reports whether the response claims to be an HTML document.
// Headers alone are not trustworthy: a body that opens with an XML
// declaration is treated as XML regardless of content type.
func (r *Response) IsHTML() bool {
	if !strings.Contains(strings.ToLower(r.ContentType()), "html") {
		return false
	}
	trimmed := strings.TrimLeft(string(r.Body[:min(len(r.Body), 256)]), " \t\r\n\uFEFF")
	return !strings.HasPrefix(trimmed, "<?xml")
}

// Error is the failure signal for a single fetch: either a transport
// error or a non-success status. Retryability drives the task executor's
// backoff policy.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: network errors,
// server errors and rate limiting qualify; other 4xx responses do not.
func (e *Error) Retryable() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client issues GET requests with a fixed identifying user agent. It does
// not retry; callers own the retry policy.
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		userAgent: userAgent,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     10 * time.Second,
			},
		},
	}
}

// Get fetches a URL unconditionally.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.GetConditional(ctx, url, "", "")
}

// GetConditional fetches a URL with optional cache validators. A non-empty
// etag is sent as If-None-Match, a non-empty lastModified (an HTTP-date
// string, stored verbatim from a previous response) as If-Modified-Since.
// 200 and 304 produce a Response; anything else produces an *Error.
func (c *Client) GetConditional(ctx context.Context, url, etag, lastModified string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotModified {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		StatusCode:   resp.StatusCode,
		URL:          resp.Request.URL.String(),
		RequestedURL: url,
		Body:         body,
		Header:       resp.Header,
	}, nil
}
