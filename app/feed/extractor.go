package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// ContentExtractor recovers the full readable body of an entry's page
// for feeds that only ship summaries. Extracted markup passes through
// the same sanitizer as feed-provided content.
type ContentExtractor struct {
	sanitizer *Sanitizer
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{sanitizer: NewSanitizer()}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (content, thumbnailURL string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("page body is empty")
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}

	article, err := readability.FromReader(bytes.NewReader(data), u)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content: %w", err)
	}
	if article.Content == "" {
		return "", "", fmt.Errorf("no content extracted from page")
	}

	content, thumbnailURL = e.sanitizer.Content(article.Content, pageURL)

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(content))

	return content, thumbnailURL, nil
}
