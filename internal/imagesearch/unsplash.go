package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	unsplashSearchURL = "https://api.unsplash.com/search/photos"

	defaultTimeout = 10 * time.Second
)

// Finder resolves an illustrative image for a cluster. Member article images
// take priority; Unsplash search is the fallback, and every failure resolves
// to an empty URL.
type Finder struct {
	accessKey  string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewFinder(accessKey string, logger zerolog.Logger) *Finder {
	return &Finder{
		accessKey:  strings.TrimSpace(accessKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// FindImage returns an image URL for the cluster or an empty string.
func (f *Finder) FindImage(ctx context.Context, keywords []string, memberImageURLs []string) string {
	if f == nil {
		return ""
	}

	for _, imageURL := range memberImageURLs {
		if trimmed := strings.TrimSpace(imageURL); trimmed != "" {
			return trimmed
		}
	}

	if f.accessKey == "" || len(keywords) == 0 {
		return ""
	}

	imageURL, err := f.searchUnsplash(ctx, strings.Join(keywords, " "))
	if err != nil {
		f.logger.Warn().Err(err).Msg("unsplash search failed")
		return ""
	}
	return imageURL
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

func (f *Finder) searchUnsplash(ctx context.Context, query string) (string, error) {
	endpoint := unsplashSearchURL + "?" + url.Values{
		"query":       {query},
		"per_page":    {"1"},
		"orientation": {"landscape"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+f.accessKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unsplash status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read unsplash response: %w", err)
	}

	var parsed unsplashResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode unsplash response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", nil
	}
	return parsed.Results[0].URLs.Regular, nil
}
