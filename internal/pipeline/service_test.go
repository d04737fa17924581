package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/infact/internal/cluster"
	"horse.fit/infact/internal/feature"
)

func testArticles() []Article {
	return []Article{
		{
			Title:   "Central bank raises interest rates",
			Content: "The central bank announced a rate increase of 50 basis points on Tuesday, citing persistent inflation pressure across the economy and labor markets.",
			Source:  "reuters",
			URL:     "https://example.com/rates-1",
		},
		{
			Title:   "Markets react to central bank decision",
			Content: "Equity markets fell sharply after the central bank announcement, with banking stocks leading the decline through the afternoon trading session.",
			Source:  "bbc",
			URL:     "https://example.com/rates-2",
		},
		{
			Title:   "Wildfire forces evacuations in northern valley",
			Content: "Authorities confirmed that more than 2000 residents were evacuated overnight as the wildfire spread across the northern valley ridge lines.",
			Source:  "ap",
			URL:     "https://example.com/fire-1",
		},
		{
			Title:   "Wildfire containment grows as winds ease",
			Content: "Fire crews reported 40 percent containment by morning as easing winds allowed aircraft to resume water drops over the northern valley.",
			Source:  "reuters",
			URL:     "https://example.com/fire-2",
		},
	}
}

// echoEmbedServer answers the embedding protocol with a fixed vector per
// text so batches embed through the service provider.
func echoEmbedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float64, len(req.Texts))
		for i, text := range req.Texts {
			// Separate the two topics along one axis.
			if strings.Contains(strings.ToLower(text), "wildfire") {
				embeddings[i] = []float64{1, 0}
			} else {
				embeddings[i] = []float64{0, 1}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
}

func newTestService(t *testing.T, endpoint string) *Service {
	t.Helper()
	extractor := feature.NewExtractor(feature.EmbedOptions{Endpoint: endpoint, FallbackDimensions: 64}, zerolog.Nop())
	clusterer := cluster.NewClusterer(cluster.Options{}, zerolog.Nop())
	return NewService(extractor, clusterer, nil, nil, nil, Options{}, zerolog.Nop())
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "http://127.0.0.1:1/unreachable")

	err := service.ValidateRequest(Request{Articles: testArticles()[:1]})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if _, ok := validationErr.Fields["articles"]; !ok {
		t.Fatalf("expected an articles field error, got %v", validationErr.Fields)
	}

	articles := testArticles()
	articles[0].Title = "  "
	articles[1].Content = "too short"
	err = service.ValidateRequest(Request{Articles: articles})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if _, ok := validationErr.Fields["articles[0].title"]; !ok {
		t.Fatalf("expected a title field error, got %v", validationErr.Fields)
	}
	if _, ok := validationErr.Fields["articles[1].content"]; !ok {
		t.Fatalf("expected a content field error, got %v", validationErr.Fields)
	}

	if err := service.ValidateRequest(Request{Articles: testArticles()}); err != nil {
		t.Fatalf("expected a valid batch, got %v", err)
	}
}

func TestProcessBatchClustersTopics(t *testing.T) {
	t.Parallel()

	server := echoEmbedServer(t)
	defer server.Close()

	service := newTestService(t, server.URL)
	result, err := service.ProcessBatch(context.Background(), Request{
		Articles:    testArticles(),
		NumClusters: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stats.EmbeddingProvider != feature.ProviderService {
		t.Fatalf("expected service embeddings, got %q", result.Stats.EmbeddingProvider)
	}
	if result.Stats.ArticleCount != 4 || result.Stats.ClusterCount != 2 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	if len(result.Outcomes) != 0 {
		t.Fatalf("expected no storage outcomes without store, got %v", result.Outcomes)
	}

	for _, c := range result.Clusters {
		if c.Name == "" {
			t.Fatalf("expected a cluster name")
		}
		if c.ArticleCount != 2 {
			t.Fatalf("expected 2 members per cluster, got %d", c.ArticleCount)
		}
		if len(c.Facts) == 0 {
			t.Fatalf("expected facts for cluster %q", c.Name)
		}
		if len(c.FactScores) != len(c.Facts) {
			t.Fatalf("expected one score per fact")
		}
		if len(c.Keywords) == 0 {
			t.Fatalf("expected keywords for cluster %q", c.Name)
		}
		if len(c.Sources) == 0 || len(c.SourceCounts) == 0 {
			t.Fatalf("expected source summary for cluster %q", c.Name)
		}
		if len(c.ArticleURLs) != 2 {
			t.Fatalf("expected member URLs collected, got %v", c.ArticleURLs)
		}
	}
}

func TestProcessBatchUsesConfiguredDefaultClusterCount(t *testing.T) {
	t.Parallel()

	server := echoEmbedServer(t)
	defer server.Close()

	extractor := feature.NewExtractor(feature.EmbedOptions{Endpoint: server.URL, FallbackDimensions: 64}, zerolog.Nop())
	clusterer := cluster.NewClusterer(cluster.Options{}, zerolog.Nop())
	service := NewService(extractor, clusterer, nil, nil, nil, Options{DefaultNumClusters: 2}, zerolog.Nop())

	result, err := service.ProcessBatch(context.Background(), Request{Articles: testArticles()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.ClusterCount != 2 {
		t.Fatalf("expected the configured default cluster count, got %d", result.Stats.ClusterCount)
	}
}

func TestProcessBatchFallsBackToHashedEmbeddings(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "http://127.0.0.1:1/unreachable")
	result, err := service.ProcessBatch(context.Background(), Request{
		Articles:    testArticles(),
		NumClusters: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.EmbeddingProvider != feature.ProviderFallback {
		t.Fatalf("expected fallback embeddings, got %q", result.Stats.EmbeddingProvider)
	}
	if result.Stats.ClusterCount == 0 {
		t.Fatalf("expected clusters even with fallback embeddings")
	}
}

func TestProcessBatchStoreWithoutEngine(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "http://127.0.0.1:1/unreachable")
	_, err := service.ProcessBatch(context.Background(), Request{
		Articles: testArticles(),
		Store:    true,
	})
	if err == nil {
		t.Fatalf("expected an error when storage is requested without an engine")
	}
}

func TestPrepareArticlesNormalizesLanguage(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "http://127.0.0.1:1/unreachable")
	prepared := service.prepareArticles([]Article{
		{Title: "t", Content: "c", Source: "", Language: "EN_us"},
	})
	if prepared[0].Language != "en" {
		t.Fatalf("expected normalized language code, got %q", prepared[0].Language)
	}
	if prepared[0].Source != "unknown" {
		t.Fatalf("expected empty source replaced, got %q", prepared[0].Source)
	}
}

func TestSummarizeSources(t *testing.T) {
	t.Parallel()

	sources, counts := summarizeSources([]Article{
		{Source: "reuters"}, {Source: "bbc"}, {Source: "reuters"},
	})
	if len(sources) != 2 || sources[0] != "bbc" || sources[1] != "reuters" {
		t.Fatalf("expected sorted distinct sources, got %v", sources)
	}
	if counts["reuters"] != 2 || counts["bbc"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
