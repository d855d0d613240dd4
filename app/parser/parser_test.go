package parser

import (
	"errors"
	"testing"
)

func TestParseRSS2(t *testing.T) {
	data := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>A test blog</description>
    <ttl>60</ttl>
    <item>
      <title>First Post</title>
      <link>https://example.com/posts/first</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <description>Hello world</description>
    </item>
  </channel>
</rss>`

	desc, entries, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if desc.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got %q", desc.Title)
	}
	if desc.Link != "https://example.com" {
		t.Errorf("Expected link 'https://example.com', got %q", desc.Link)
	}
	if desc.Subtitle != "A test blog" {
		t.Errorf("Expected subtitle 'A test blog', got %q", desc.Subtitle)
	}
	if desc.TTL != 60 {
		t.Errorf("Expected ttl 60, got %d", desc.TTL)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Title != "First Post" {
		t.Errorf("Expected entry title 'First Post', got %q", entry.Title)
	}
	if entry.Link != "https://example.com/posts/first" {
		t.Errorf("Expected entry link, got %q", entry.Link)
	}
	if entry.Published != "Mon, 03 Jul 2023 10:00:00 GMT" {
		t.Errorf("Expected pubDate, got %q", entry.Published)
	}
	if entry.Summary != "Hello world" {
		t.Errorf("Expected summary 'Hello world', got %q", entry.Summary)
	}
}

func TestParseRSSContentEncoded(t *testing.T) {
	data := `<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>T</title>
    <link>https://example.com</link>
    <item>
      <title>Post</title>
      <link>https://example.com/p</link>
      <description>short</description>
      <content:encoded><![CDATA[<p>full <b>body</b></p>]]></content:encoded>
    </item>
  </channel>
</rss>`

	_, entries, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entries[0].Content != "<p>full <b>body</b></p>" {
		t.Errorf("Expected content:encoded payload, got %q", entries[0].Content)
	}
	if entries[0].Summary != "short" {
		t.Errorf("Expected description kept as summary, got %q", entries[0].Summary)
	}
}

func TestParseRSSGuid(t *testing.T) {
	data := `<rss version="2.0">
  <channel>
    <title>T</title>
    <link>https://example.com</link>
    <item>
      <title>A</title>
      <link>https://example.com/a</link>
      <guid isPermaLink="false">tag:example.com,2023:a</guid>
      <description>x</description>
    </item>
    <item>
      <title>B</title>
      <link>https://example.com/b</link>
      <guid>https://example.com/b</guid>
      <description>x</description>
    </item>
  </channel>
</rss>`

	_, entries, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entries[0].GUID != "tag:example.com,2023:a" || entries[0].GUIDIsLink {
		t.Errorf("Expected distinct guid to be kept, got %+v", entries[0])
	}
	if !entries[1].GUIDIsLink {
		t.Error("Expected guid equal to link to be flagged as a link alias")
	}
}

func TestParseRSSAuthor(t *testing.T) {
	tests := []struct {
		author   string
		expected string
	}{
		{"jane@example.com (Jane Doe)", "Jane Doe"},
		{"jane@example.com Jane Doe", "Jane Doe"},
		{"jane@example.com", "jane@example.com"},
	}

	for _, tt := range tests {
		data := `<rss version="2.0"><channel><title>T</title>
<item><title>A</title><link>https://e.com/a</link><description>x</description>
<author>` + tt.author + `</author></item></channel></rss>`

		_, entries, err := Parse([]byte(data))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if entries[0].Author != tt.expected {
			t.Errorf("author %q: expected %q, got %q", tt.author, tt.expected, entries[0].Author)
		}
	}
}

func TestParseAtom(t *testing.T) {
	data := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <subtitle>Atom subtitle</subtitle>
  <link rel="self" href="https://example.com/atom.xml"/>
  <link rel="alternate" type="text/html" href="https://example.com/"/>
  <author><name>Jane Doe</name></author>
  <id>https://example.com/</id>
  <entry>
    <title>Entry One</title>
    <link rel="alternate" type="text/html" href="https://example.com/one"/>
    <id>https://example.com/one</id>
    <published>2023-07-03T10:00:00Z</published>
    <updated>2023-07-04T10:00:00Z</updated>
    <content type="html">&lt;p&gt;body&lt;/p&gt;</content>
  </entry>
</feed>`

	desc, entries, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if desc.Title != "Atom Feed" {
		t.Errorf("Expected title 'Atom Feed', got %q", desc.Title)
	}
	if desc.Link != "https://example.com/" {
		t.Errorf("Expected alternate link, got %q", desc.Link)
	}
	if desc.Author != "Jane Doe" {
		t.Errorf("Expected author 'Jane Doe', got %q", desc.Author)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Link != "https://example.com/one" {
		t.Errorf("Expected entry link, got %q", entry.Link)
	}
	if entry.Content != "<p>body</p>" {
		t.Errorf("Expected unescaped html content, got %q", entry.Content)
	}
	if entry.Published != "2023-07-03T10:00:00Z" {
		t.Errorf("Expected published timestamp, got %q", entry.Published)
	}
	if entry.Author != "Jane Doe" {
		t.Errorf("Expected feed author fallback, got %q", entry.Author)
	}
	if !entry.GUIDIsLink {
		t.Error("Expected atom id equal to link to be flagged as alias")
	}
}

func TestAtomLinkSelectionOrderIndependent(t *testing.T) {
	// The alternate text/html link must win regardless of element order.
	orders := []string{
		`<link rel="self" href="https://example.com/atom.xml"/>
     <link rel="alternate" type="text/html" href="https://example.com/page"/>`,
		`<link rel="alternate" type="text/html" href="https://example.com/page"/>
     <link rel="self" href="https://example.com/atom.xml"/>`,
	}

	for _, links := range orders {
		data := `<feed xmlns="http://www.w3.org/2005/Atom"><title>T</title>` +
			links + `<id>urn:uuid:1234</id></feed>`

		desc, _, err := Parse([]byte(data))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if desc.Link != "https://example.com/page" {
			t.Errorf("Expected alternate text/html link to win, got %q", desc.Link)
		}
	}
}

func TestAtomLinkFallbackToID(t *testing.T) {
	data := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>T</title>
  <id>https://example.com/feed-id</id>
</feed>`

	desc, _, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if desc.Link != "https://example.com/feed-id" {
		t.Errorf("Expected id used as link when it is a URL, got %q", desc.Link)
	}

	// A non-URL id must not be used
	data = `<feed xmlns="http://www.w3.org/2005/Atom"><title>T</title><id>urn:uuid:1</id></feed>`
	desc, _, err = Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if desc.Link != "" {
		t.Errorf("Expected empty link for non-URL id, got %q", desc.Link)
	}
}

func TestParseRDF(t *testing.T) {
	data := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns="http://purl.org/rss/1.0/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://example.com/rss">
    <title>RDF Feed</title>
    <link>https://example.com</link>
    <description>RSS 1.0</description>
  </channel>
  <item rdf:about="https://example.com/one">
    <title>Item One</title>
    <link>https://example.com/one</link>
    <description>body one</description>
    <dc:creator>Jane Doe</dc:creator>
    <dc:date>2023-07-03T10:00:00Z</dc:date>
  </item>
</rdf:RDF>`

	desc, entries, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if desc.Title != "RDF Feed" {
		t.Errorf("Expected title 'RDF Feed', got %q", desc.Title)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry (items are root children in RDF), got %d", len(entries))
	}
	if entries[0].Author != "Jane Doe" {
		t.Errorf("Expected Dublin Core creator, got %q", entries[0].Author)
	}
	if entries[0].Published != "2023-07-03T10:00:00Z" {
		t.Errorf("Expected dc:date as published, got %q", entries[0].Published)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty document", ""},
		{"whitespace only", "   \n  "},
		{"html document", "<html><body>not a feed</body></html>"},
		{"unknown root", "<opml version=\"1.0\"></opml>"},
	}

	for _, tt := range tests {
		_, _, err := Parse([]byte(tt.data))
		if err == nil {
			t.Errorf("%s: expected ParseError", tt.name)
			continue
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: expected *ParseError, got %T", tt.name, err)
		}
	}
}

func TestFinalize(t *testing.T) {
	t.Run("self-referencing link corrected to parent path", func(t *testing.T) {
		d := &Descriptor{Title: "T", Link: "https://example.com/blog/feed.xml"}
		d.Finalize("https://example.com/blog/feed.xml", `"etag"`, "Mon, 03 Jul 2023 10:00:00 GMT")

		if d.Link == d.URL {
			t.Fatal("Link must never equal URL after finalization")
		}
		if d.Link != "https://example.com/blog" {
			t.Errorf("Expected parent path, got %q", d.Link)
		}
		if d.ETag != `"etag"` {
			t.Errorf("Expected etag stored verbatim, got %q", d.ETag)
		}
	})

	t.Run("missing link falls back to fetch URL parent", func(t *testing.T) {
		d := &Descriptor{Title: "T"}
		d.Finalize("https://example.com/feed.xml", "", "")
		if d.Link != "https://example.com/" {
			t.Errorf("Expected parent of fetch URL, got %q", d.Link)
		}
	})

	t.Run("relative link resolved", func(t *testing.T) {
		d := &Descriptor{Title: "T", Link: "/blog/"}
		d.Finalize("https://example.com/feed.xml", "", "")
		if d.Link != "https://example.com/blog/" {
			t.Errorf("Expected resolved link, got %q", d.Link)
		}
	})

	t.Run("missing title falls back to host", func(t *testing.T) {
		d := &Descriptor{Link: "https://www.example.com/"}
		d.Finalize("https://www.example.com/feed.xml", "", "")
		if d.Title != "example.com" {
			t.Errorf("Expected host-derived title, got %q", d.Title)
		}
	})
}
