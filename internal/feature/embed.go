package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultEmbeddingEndpoint       = "http://127.0.0.1:8844/embed"
	DefaultEmbeddingBatchSize      = 32
	DefaultEmbeddingMaxLength      = 512
	DefaultEmbeddingRequestTimeout = 45 * time.Second
	DefaultFallbackDimensions      = 256
)

// Embedding providers recorded in processing stats.
const (
	ProviderService  = "embedding_service"
	ProviderFallback = "hashed_bow"
)

type EmbedOptions struct {
	Endpoint           string
	BatchSize          int
	MaxLength          int
	RequestTimeout     time.Duration
	FallbackDimensions int
	HTTPClient         *http.Client
}

// Extractor produces dense embeddings for article texts. It talks to an HTTP
// embedding service and degrades to a deterministic hashed bag-of-words
// vector when the service is unreachable, so a batch always embeds with a
// single provider and consistent dimensions.
type Extractor struct {
	opts   EmbedOptions
	logger zerolog.Logger
}

func NewExtractor(options EmbedOptions, logger zerolog.Logger) *Extractor {
	return &Extractor{
		opts:   normalizeEmbedOptions(options),
		logger: logger,
	}
}

type embedRequest struct {
	Texts     []string `json:"texts,omitempty"`
	Input     []string `json:"input,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds every text and reports which provider produced the
// vectors. A service failure is not an error; the fallback takes over for the
// whole batch so all vectors share one dimensionality.
func (e *Extractor) EmbedBatch(ctx context.Context, texts []string) ([][]float64, string, error) {
	if e == nil {
		return nil, "", fmt.Errorf("feature extractor is not initialized")
	}
	if len(texts) == 0 {
		return nil, ProviderService, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))
		batch, err := e.requestEmbeddings(ctx, texts[start:end])
		if err != nil {
			e.logger.Warn().Err(err).
				Int("texts", len(texts)).
				Msg("embedding service unavailable, using hashed bag-of-words fallback")
			return e.fallbackVectors(texts), ProviderFallback, nil
		}
		vectors = append(vectors, batch...)
	}

	dims := len(vectors[0])
	for _, vec := range vectors {
		if len(vec) != dims {
			e.logger.Warn().
				Int("expected_dims", dims).
				Int("got_dims", len(vec)).
				Msg("embedding dimensions disagree, using hashed bag-of-words fallback")
			return e.fallbackVectors(texts), ProviderFallback, nil
		}
	}
	return vectors, ProviderService, nil
}

// EmbedOne embeds a single text through the same provider chain.
func (e *Extractor) EmbedOne(ctx context.Context, text string) ([]float64, string, error) {
	vectors, provider, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, "", err
	}
	if len(vectors) != 1 {
		return nil, "", fmt.Errorf("expected one embedding, got %d", len(vectors))
	}
	return vectors[0], provider, nil
}

func (e *Extractor) fallbackVectors(texts []string) [][]float64 {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = HashedBagOfWords(text, e.opts.FallbackDimensions)
	}
	return vectors
}

func (e *Extractor) requestEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	payload := embedRequest{
		Texts:     texts,
		MaxLength: e.opts.MaxLength,
	}
	if parsed, err := url.Parse(e.opts.Endpoint); err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings") {
		payload = embedRequest{Input: texts}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, e.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}
	return vectors, nil
}

// HashedBagOfWords maps tokens into a fixed-dimension count vector via
// FNV-1a and L2-normalizes it. The same text always yields the same vector.
func HashedBagOfWords(text string, dims int) []float64 {
	if dims <= 0 {
		dims = DefaultFallbackDimensions
	}
	vec := make([]float64, dims)
	for _, token := range Tokenize(text) {
		vec[hashToken64(token)%uint64(dims)]++
	}
	l2Normalize(vec)
	return vec
}

func normalizeEmbedOptions(opts EmbedOptions) EmbedOptions {
	normalized := opts
	if strings.TrimSpace(normalized.Endpoint) == "" {
		normalized.Endpoint = DefaultEmbeddingEndpoint
	}
	if normalized.BatchSize <= 0 {
		normalized.BatchSize = DefaultEmbeddingBatchSize
	}
	if normalized.MaxLength <= 0 {
		normalized.MaxLength = DefaultEmbeddingMaxLength
	}
	if normalized.RequestTimeout <= 0 {
		normalized.RequestTimeout = DefaultEmbeddingRequestTimeout
	}
	if normalized.FallbackDimensions <= 0 {
		normalized.FallbackDimensions = DefaultFallbackDimensions
	}
	return normalized
}
