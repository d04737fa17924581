package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"horse.fit/infact/internal/langdetect"
	"horse.fit/infact/internal/pipeline"
	"horse.fit/infact/internal/reader"
)

const (
	DefaultWorkers         = 4
	DefaultFetchTimeout    = 12 * time.Second
	DefaultMaxItemsPerFeed = 20
)

type Options struct {
	Workers         int
	Timeout         time.Duration
	MaxItemsPerFeed int
	FetchBodies     bool
	HTTPClient      *http.Client
}

// Fetcher pulls configured RSS feeds, optionally resolves full article
// bodies through the readability extractor, and returns articles sorted
// newest first.
type Fetcher struct {
	opts   Options
	logger zerolog.Logger
}

func NewFetcher(options Options, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		opts:   normalizeOptions(options),
		logger: logger,
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Enclosure   struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

// FetchAll fetches every source concurrently with a bounded worker pool.
// A failing source is logged and skipped; the batch still returns.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]pipeline.Article, error) {
	if f == nil {
		return nil, fmt.Errorf("feed fetcher is not initialized")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no feed sources configured")
	}

	jobs := make(chan Source)
	var (
		mu       sync.Mutex
		articles []pipeline.Article
		wg       sync.WaitGroup
	)

	workers := min(f.opts.Workers, len(sources))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				fetched, err := f.fetchSource(ctx, source)
				if err != nil {
					f.logger.Warn().Err(err).Str("feed", source.Source).Msg("feed fetch failed")
					continue
				}
				mu.Lock()
				articles = append(articles, fetched...)
				mu.Unlock()
			}
		}()
	}

	for _, source := range sources {
		select {
		case jobs <- source:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	SortNewestFirst(articles)
	return articles, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, source Source) ([]pipeline.Article, error) {
	items, err := f.fetchItems(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	if len(items) > f.opts.MaxItemsPerFeed {
		items = items[:f.opts.MaxItemsPerFeed]
	}

	articles := make([]pipeline.Article, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		content := stripHTML(item.Description)
		if f.opts.FetchBodies {
			body, err := reader.FetchArticleText(ctx, link, title, reader.FetchOptions{
				Timeout:    f.opts.Timeout,
				HTTPClient: f.opts.HTTPClient,
			})
			if err != nil {
				f.logger.Debug().Err(err).Str("url", link).Msg("body extraction failed, keeping feed summary")
			} else {
				content = body
			}
		}

		article := pipeline.Article{
			Title:    title,
			Content:  content,
			Source:   source.Source,
			URL:      link,
			ImageURL: strings.TrimSpace(item.Enclosure.URL),
			Language: langdetect.DetectISO6391(title + " " + content),
		}
		if publishedAt := parsePubDate(item.PubDate); publishedAt != nil {
			article.PublishedAt = publishedAt
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (f *Fetcher) fetchItems(ctx context.Context, feedURL string) ([]rssItem, error) {
	requestCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "infact-feed-fetcher/1.0")

	client := f.opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: f.opts.Timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	return parseRSS(body)
}

// parseRSS decodes an RSS 2.0 document into its items.
func parseRSS(raw []byte) ([]rssItem, error) {
	var document rssDocument
	decoder := xml.NewDecoder(strings.NewReader(string(raw)))
	decoder.Strict = false
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}
	return document.Channel.Items, nil
}

// SortNewestFirst orders articles by publication time descending, undated
// articles last, ties broken by title for stable output.
func SortNewestFirst(articles []pipeline.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedAt, articles[j].PublishedAt
		switch {
		case a == nil && b == nil:
			return articles[i].Title < articles[j].Title
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return articles[i].Title < articles[j].Title
		}
	})
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

func parsePubDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// stripHTML extracts plain text from feed description markup.
func stripHTML(markup string) string {
	trimmed := strings.TrimSpace(markup)
	if trimmed == "" {
		return ""
	}
	document, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return reader.CleanText(trimmed)
	}
	return reader.CleanText(document.Text())
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.Workers <= 0 {
		normalized.Workers = DefaultWorkers
	}
	if normalized.Timeout <= 0 {
		normalized.Timeout = DefaultFetchTimeout
	}
	if normalized.MaxItemsPerFeed <= 0 {
		normalized.MaxItemsPerFeed = DefaultMaxItemsPerFeed
	}
	return normalized
}
