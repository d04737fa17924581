package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"horse.fit/infact/internal/pipeline"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>First headline</title>
      <link>https://example.com/first</link>
      <description>&lt;p&gt;Summary of the &lt;b&gt;first&lt;/b&gt; story.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <enclosure url="https://example.com/first.jpg" type="image/jpeg"/>
    </item>
    <item>
      <title>Second headline</title>
      <link>https://example.com/second</link>
      <description>Plain summary of the second story.</description>
      <pubDate>Tue, 03 Jan 2006 15:04:05 -0700</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/untitled</link>
      <description>Item without a title is skipped.</description>
    </item>
  </channel>
</rss>`

func TestParseRSS(t *testing.T) {
	t.Parallel()

	items, err := parseRSS([]byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "First headline", items[0].Title)
	require.Equal(t, "https://example.com/first.jpg", items[0].Enclosure.URL)
	require.Equal(t, "https://example.com/second", items[1].Link)
}

func TestParseRSSRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseRSS([]byte("{not xml at all"))
	require.Error(t, err)
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{Workers: 2, Timeout: 5 * time.Second}, zerolog.Nop())
	articles, err := fetcher.FetchAll(context.Background(), []Source{
		{Name: "Example", URL: server.URL, Source: "example"},
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	// Newest first.
	require.Equal(t, "Second headline", articles[0].Title)
	require.Equal(t, "example", articles[0].Source)
	require.NotNil(t, articles[0].PublishedAt)

	// HTML stripped from the description.
	require.Equal(t, "Summary of the first story.", articles[1].Content)
	require.Equal(t, "https://example.com/first.jpg", articles[1].ImageURL)
}

func TestFetchAllSkipsFailingSource(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer bad.Close()

	fetcher := NewFetcher(Options{Workers: 2, Timeout: 5 * time.Second}, zerolog.Nop())
	articles, err := fetcher.FetchAll(context.Background(), []Source{
		{Name: "Good", URL: good.URL, Source: "good"},
		{Name: "Bad", URL: bad.URL, Source: "bad"},
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, article := range articles {
		require.Equal(t, "good", article.Source)
	}
}

func TestFetchAllRequiresSources(t *testing.T) {
	t.Parallel()

	fetcher := NewFetcher(Options{}, zerolog.Nop())
	_, err := fetcher.FetchAll(context.Background(), nil)
	require.Error(t, err)
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	articles := []pipeline.Article{
		{Title: "undated"},
		{Title: "older", PublishedAt: &older},
		{Title: "newer", PublishedAt: &newer},
	}
	SortNewestFirst(articles)
	require.Equal(t, "newer", articles[0].Title)
	require.Equal(t, "older", articles[1].Title)
	require.Equal(t, "undated", articles[2].Title)
}

func TestParsePubDate(t *testing.T) {
	t.Parallel()

	parsed := parsePubDate("Mon, 02 Jan 2006 15:04:05 -0700")
	require.NotNil(t, parsed)
	require.Equal(t, 22, parsed.UTC().Hour())

	require.Nil(t, parsePubDate("not a date"))
	require.Nil(t, parsePubDate(""))
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yaml")
	content := `feeds:
  - name: Example News
    url: https://example.com/rss
  - name: Other
    url: https://other.example/rss
    source: other-wire
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Feeds, 2)
	require.Equal(t, "Example News", cfg.Feeds[0].Source)
	require.Equal(t, "other-wire", cfg.Feeds[1].Source)
}

func TestLoadConfigRejectsMissingURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - name: NoURL\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	got := stripHTML("<p>Hello <b>world</b></p>")
	require.Equal(t, "Hello world", got)
	require.Equal(t, "", stripHTML("   "))
}
