package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/infact/internal/classify"
	"horse.fit/infact/internal/cluster"
	"horse.fit/infact/internal/feature"
	"horse.fit/infact/internal/globaltime"
	"horse.fit/infact/internal/imagesearch"
	"horse.fit/infact/internal/langdetect"
	"horse.fit/infact/internal/language"
	"horse.fit/infact/internal/merge"
	"horse.fit/infact/internal/narrative"
)

const (
	DefaultMaxTextLength         = 5000
	DefaultMaxArticlesPerRequest = 50

	minBatchArticles = 2
	minContentLength = 50
)

// Article is one raw news article entering the pipeline.
type Article struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Source      string     `json:"source"`
	URL         string     `json:"url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Language    string     `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Request is one processing batch.
type Request struct {
	Articles    []Article `json:"articles"`
	NumClusters int       `json:"num_clusters,omitempty"`
	ForceNew    bool      `json:"force_new,omitempty"`
	Store       bool      `json:"store"`
}

// ClusterResult is one computed topic cluster in a batch response.
type ClusterResult struct {
	Name             string         `json:"name"`
	Keywords         []string       `json:"keywords"`
	Facts            []string       `json:"facts"`
	FactScores       []float64      `json:"fact_scores"`
	Musings          []string       `json:"musings"`
	Context          string         `json:"context"`
	Background       string         `json:"background"`
	GeneratedArticle string         `json:"generated_article"`
	ImageURL         string         `json:"image_url,omitempty"`
	Sources          []string       `json:"sources"`
	SourceCounts     map[string]int `json:"source_counts"`
	ArticleURLs      []string       `json:"article_urls"`
	ArticleCount     int            `json:"article_count"`
}

// Stats summarizes how a batch was processed.
type Stats struct {
	ArticleCount       int    `json:"article_count"`
	ClusterCount       int    `json:"cluster_count"`
	EmbeddingProvider  string `json:"embedding_provider"`
	FallbackClustering bool   `json:"fallback_clustering"`
	LLMNarratives      int    `json:"llm_narratives"`
	ElapsedMS          int64  `json:"elapsed_ms"`
}

// Result is the full outcome of one batch.
type Result struct {
	Clusters []ClusterResult `json:"clusters"`
	Outcomes []merge.Outcome `json:"storage_results,omitempty"`
	Stats    Stats           `json:"stats"`
}

// ValidationError carries per-field messages for a rejected batch.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid batch: %d field error(s)", len(e.Fields))
}

type Options struct {
	MaxTextLength         int
	MaxArticlesPerRequest int
	Classify              classify.Options
	DedupThreshold        float64

	// DefaultNumClusters applies when a request does not pin the cluster
	// count. Zero selects the count from the batch size.
	DefaultNumClusters int
}

// Service runs the full batch pipeline: feature extraction, clustering,
// classification, bullet dedup, narrative and image resolution, and finally
// the merge engine when storage is requested.
type Service struct {
	extractor *feature.Extractor
	clusterer *cluster.Clusterer
	engine    *merge.Engine
	generator *narrative.Generator
	images    *imagesearch.Finder
	logger    zerolog.Logger
	opts      Options
}

func NewService(
	extractor *feature.Extractor,
	clusterer *cluster.Clusterer,
	engine *merge.Engine,
	generator *narrative.Generator,
	images *imagesearch.Finder,
	options Options,
	logger zerolog.Logger,
) *Service {
	return &Service{
		extractor: extractor,
		clusterer: clusterer,
		engine:    engine,
		generator: generator,
		images:    images,
		logger:    logger,
		opts:      normalizeOptions(options),
	}
}

// ValidateRequest checks batch shape before any processing happens.
func (s *Service) ValidateRequest(req Request) error {
	fields := make(map[string]string)

	if len(req.Articles) < minBatchArticles {
		fields["articles"] = fmt.Sprintf("at least %d articles are required", minBatchArticles)
	}
	if len(req.Articles) > s.opts.MaxArticlesPerRequest {
		fields["articles"] = fmt.Sprintf("at most %d articles are allowed", s.opts.MaxArticlesPerRequest)
	}
	for i, article := range req.Articles {
		if strings.TrimSpace(article.Title) == "" {
			fields[fmt.Sprintf("articles[%d].title", i)] = "title is required"
		}
		if len(strings.TrimSpace(article.Content)) < minContentLength {
			fields[fmt.Sprintf("articles[%d].content", i)] = fmt.Sprintf("content must be at least %d characters", minContentLength)
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ProcessBatch runs one batch end to end.
func (s *Service) ProcessBatch(ctx context.Context, req Request) (*Result, error) {
	if s == nil || s.extractor == nil || s.clusterer == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}

	started := globaltime.UTC()
	articles := s.prepareArticles(req.Articles)

	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = embeddingInput(article, s.opts.MaxTextLength)
	}

	denseVectors, provider, err := s.extractor.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	vectorizer := feature.FitLexical(texts)
	documents := make([]cluster.Document, len(articles))
	for i, article := range articles {
		documents[i] = cluster.Document{
			Title:   article.Title,
			Text:    texts[i],
			Dense:   denseVectors[i],
			Lexical: vectorizer.Transform(texts[i]),
		}
	}

	numClusters := req.NumClusters
	if numClusters <= 0 {
		numClusters = s.opts.DefaultNumClusters
	}
	grouping, err := s.clusterer.Cluster(documents, numClusters)
	if err != nil {
		return nil, fmt.Errorf("cluster batch: %w", err)
	}

	results := make([]ClusterResult, 0, len(grouping.Groups))
	candidates := make([]merge.Candidate, 0, len(grouping.Groups))
	llmNarratives := 0
	for _, group := range grouping.Groups {
		result, candidate, llm := s.buildCluster(ctx, group, articles)
		if llm {
			llmNarratives++
		}
		results = append(results, result)
		candidates = append(candidates, candidate)
	}

	result := &Result{
		Clusters: results,
		Stats: Stats{
			ArticleCount:       len(articles),
			ClusterCount:       len(results),
			EmbeddingProvider:  provider,
			FallbackClustering: grouping.Fallback,
			LLMNarratives:      llmNarratives,
		},
	}

	if req.Store {
		if s.engine == nil {
			return nil, fmt.Errorf("storage requested but merge engine is not configured")
		}
		outcomes, err := s.engine.StoreBatch(ctx, candidates, req.ForceNew)
		if err != nil {
			return nil, fmt.Errorf("store batch: %w", err)
		}
		result.Outcomes = outcomes
	}

	result.Stats.ElapsedMS = globaltime.UTC().Sub(started).Milliseconds()
	s.logger.Info().
		Int("articles", result.Stats.ArticleCount).
		Int("clusters", result.Stats.ClusterCount).
		Str("embedding_provider", provider).
		Bool("fallback_clustering", grouping.Fallback).
		Int64("elapsed_ms", result.Stats.ElapsedMS).
		Msg("batch processed")
	return result, nil
}

// buildCluster assembles the response payload and the storage candidate for
// one group of member articles.
func (s *Service) buildCluster(ctx context.Context, group cluster.Group, articles []Article) (ClusterResult, merge.Candidate, bool) {
	members := make([]Article, 0, len(group.Members))
	contents := make([]string, 0, len(group.Members))
	titles := make([]string, 0, len(group.Members))
	for _, index := range group.Members {
		members = append(members, articles[index])
		contents = append(contents, articles[index].Content)
		titles = append(titles, articles[index].Title)
	}

	classification := classify.Classify(contents, s.opts.Classify)
	facts, factScores := classify.DedupBullets(classification.Facts, s.opts.DedupThreshold)
	musings, _ := classify.DedupBullets(classification.Musings, s.opts.DedupThreshold)

	keywords := merge.ExtractKeywords(group.Name, facts, titles)
	sources, sourceCounts := summarizeSources(members)
	articleURLs := collectURLs(members)

	narrativeText := ""
	llm := false
	if s.generator != nil {
		text, fromLLM, err := s.generator.Generate(ctx, narrative.Input{
			Name:    group.Name,
			Facts:   facts,
			Musings: musings,
			Sources: sources,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("cluster_name", group.Name).Msg("narrative generation failed")
		} else {
			narrativeText = text
			llm = fromLLM
		}
	}

	imageURL := ""
	if s.images != nil {
		memberImages := make([]string, 0, len(members))
		for _, member := range members {
			memberImages = append(memberImages, member.ImageURL)
		}
		imageURL = s.images.FindImage(ctx, keywords, memberImages)
	}

	result := ClusterResult{
		Name:             group.Name,
		Keywords:         keywords,
		Facts:            facts,
		FactScores:       factScores,
		Musings:          musings,
		Context:          classification.Context,
		Background:       classification.Background,
		GeneratedArticle: narrativeText,
		ImageURL:         imageURL,
		Sources:          sources,
		SourceCounts:     sourceCounts,
		ArticleURLs:      articleURLs,
		ArticleCount:     len(members),
	}

	memberInputs := make([]merge.MemberInput, 0, len(members))
	for _, member := range members {
		memberInputs = append(memberInputs, merge.MemberInput{
			Title:       member.Title,
			Content:     member.Content,
			Source:      member.Source,
			URL:         member.URL,
			ImageURL:    member.ImageURL,
			Language:    member.Language,
			PublishedAt: member.PublishedAt,
		})
	}
	candidate := merge.Candidate{
		Name:             group.Name,
		Keywords:         keywords,
		Facts:            facts,
		Musings:          musings,
		Context:          classification.Context,
		Background:       classification.Background,
		GeneratedArticle: narrativeText,
		ImageURL:         imageURL,
		Sources:          sources,
		SourceCounts:     sourceCounts,
		ArticleURLs:      articleURLs,
		Articles:         memberInputs,
	}
	return result, candidate, llm
}

// prepareArticles trims fields and fills in a detected language where the
// caller left it empty.
func (s *Service) prepareArticles(input []Article) []Article {
	articles := make([]Article, len(input))
	for i, article := range input {
		prepared := article
		prepared.Title = strings.TrimSpace(article.Title)
		prepared.Content = strings.TrimSpace(article.Content)
		prepared.Source = strings.TrimSpace(article.Source)
		if prepared.Source == "" {
			prepared.Source = "unknown"
		}
		prepared.Language = language.NormalizeCode(prepared.Language)
		if prepared.Language == "" {
			prepared.Language = langdetect.DetectISO6391(prepared.Title + " " + feature.TruncateRunes(prepared.Content, 400))
		}
		articles[i] = prepared
	}
	return articles
}

func summarizeSources(members []Article) ([]string, map[string]int) {
	counts := make(map[string]int, len(members))
	for _, member := range members {
		counts[member.Source]++
	}
	sources := make([]string, 0, len(counts))
	for source := range counts {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources, counts
}

func collectURLs(members []Article) []string {
	urls := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		trimmed := strings.TrimSpace(member.URL)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		urls = append(urls, trimmed)
	}
	return urls
}

func embeddingInput(article Article, maxTextLength int) string {
	title := strings.TrimSpace(article.Title)
	body := feature.TruncateRunes(strings.TrimSpace(article.Content), maxTextLength)
	switch {
	case title == "" && body == "":
		return ""
	case body == "":
		return title
	case title == "":
		return body
	default:
		return title + "\n\n" + body
	}
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.MaxTextLength <= 0 {
		normalized.MaxTextLength = DefaultMaxTextLength
	}
	if normalized.MaxArticlesPerRequest <= 0 {
		normalized.MaxArticlesPerRequest = DefaultMaxArticlesPerRequest
	}
	if normalized.DedupThreshold <= 0 {
		normalized.DedupThreshold = classify.DefaultDedupThreshold
	}
	return normalized
}
