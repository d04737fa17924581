package feature

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("The Quick, brown FOX jumped over 12 lazy dogs!")
	expected := []string{"quick", "brown", "fox", "jumped", "lazy", "dogs"}
	if len(tokens) != len(expected) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	for i, token := range expected {
		if tokens[i] != token {
			t.Fatalf("expected token %q at %d, got %q", token, i, tokens[i])
		}
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	if got := NormalizeText("  Hello,   World! 42  "); got != "hello world 42" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeText("   "); got != "" {
		t.Fatalf("expected empty output for whitespace, got %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("héllo wörld", 5); got != "héllo" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateRunes("short", 100); got != "short" {
		t.Fatalf("expected text under the limit untouched, got %q", got)
	}
	if got := TruncateRunes("anything", 0); got != "" {
		t.Fatalf("expected empty output for zero limit, got %q", got)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected identical vectors to score 1, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("expected orthogonal vectors to score 0, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Fatalf("expected dimension mismatch to score 0, got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("expected zero-norm vector to score 0, got %v", got)
	}
}

func TestFitLexicalTransform(t *testing.T) {
	t.Parallel()

	documents := []string{
		"markets rally continues across exchanges",
		"markets slide after rally fades",
		"wildfire spreads across the valley",
	}
	vectorizer := FitLexical(documents)
	if vectorizer.Dimensions() == 0 {
		t.Fatalf("expected a fitted vocabulary")
	}

	vec := vectorizer.Transform(documents[0])
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Fatalf("expected an L2-normalized vector, norm=%v", math.Sqrt(norm))
	}

	// A document sharing no vocabulary yields a zero vector.
	zero := vectorizer.Transform("zzz qqq unrelated")
	for _, v := range zero {
		if v != 0 {
			t.Fatalf("expected zero vector for out-of-vocabulary text")
		}
	}
}

func TestFitLexicalVocabularyCap(t *testing.T) {
	t.Parallel()

	vectorizer := fitLexicalLimited([]string{"alpha beta gamma delta epsilon"}, 2)
	if got := vectorizer.Dimensions(); got != 2 {
		t.Fatalf("expected capped vocabulary of 2, got %d", got)
	}
}

func TestHashedBagOfWordsIsDeterministic(t *testing.T) {
	t.Parallel()

	text := "central bank raises interest rates fifty basis points"
	first := HashedBagOfWords(text, 64)
	second := HashedBagOfWords(text, 64)
	if len(first) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical vectors at %d", i)
		}
	}

	other := HashedBagOfWords("completely different material here", 64)
	if Cosine(first, other) > 0.99 {
		t.Fatalf("expected distinct texts to produce distinct vectors")
	}
}

func TestEmbedBatchUsesService(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2], [0.3, 0.4]]}`))
	}))
	defer server.Close()

	extractor := NewExtractor(EmbedOptions{Endpoint: server.URL}, zerolog.Nop())
	vectors, provider, err := extractor.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != ProviderService {
		t.Fatalf("expected service provider, got %q", provider)
	}
	if len(vectors) != 2 || vectors[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedBatchParsesIndexedData(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"index": 1, "embedding": [0.3, 0.4]}, {"index": 0, "embedding": [0.1, 0.2]}]}`))
	}))
	defer server.Close()

	extractor := NewExtractor(EmbedOptions{Endpoint: server.URL}, zerolog.Nop())
	vectors, provider, err := extractor.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != ProviderService {
		t.Fatalf("expected service provider, got %q", provider)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("expected rows ordered by index, got %v", vectors)
	}
}

func TestEmbedBatchFallsBackOnServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewExtractor(EmbedOptions{Endpoint: server.URL, FallbackDimensions: 32}, zerolog.Nop())
	vectors, provider, err := extractor.EmbedBatch(context.Background(), []string{"one text", "two text"})
	if err != nil {
		t.Fatalf("expected fallback instead of error, got %v", err)
	}
	if provider != ProviderFallback {
		t.Fatalf("expected fallback provider, got %q", provider)
	}
	for i, vec := range vectors {
		if len(vec) != 32 {
			t.Fatalf("expected 32-dimension fallback vector at %d, got %d", i, len(vec))
		}
	}
}

func TestEmbedBatchFallsBackOnDimensionMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2], [0.3]]}`))
	}))
	defer server.Close()

	extractor := NewExtractor(EmbedOptions{Endpoint: server.URL, FallbackDimensions: 16}, zerolog.Nop())
	_, provider, err := extractor.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != ProviderFallback {
		t.Fatalf("expected fallback provider, got %q", provider)
	}
}

func TestEmbedOne(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings": [[0.5, 0.5]]}`))
	}))
	defer server.Close()

	extractor := NewExtractor(EmbedOptions{Endpoint: server.URL}, zerolog.Nop())
	vec, provider, err := extractor.EmbedOne(context.Background(), "solo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != ProviderService || len(vec) != 2 {
		t.Fatalf("unexpected result: %v %q", vec, provider)
	}
}
