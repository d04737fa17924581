package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/infact/internal/db"
	"horse.fit/infact/internal/globaltime"
)

// Outcome actions.
const (
	ActionCreated = "created"
	ActionMerged  = "merged"
	ActionFailed  = "failed"
)

const (
	DefaultRecencyWindow = 7 * 24 * time.Hour
	DefaultMaxCandidates = 200
)

// MemberInput is one article belonging to a candidate cluster.
type MemberInput struct {
	Title       string
	Content     string
	Source      string
	URL         string
	ImageURL    string
	Language    string
	PublishedAt *time.Time
}

// Candidate is a freshly computed cluster offered to the store. Keywords and
// Embedding may be empty; the engine derives them from the fingerprint.
type Candidate struct {
	Name             string
	Keywords         []string
	Facts            []string
	Musings          []string
	Context          string
	Background       string
	GeneratedArticle string
	ImageURL         string
	Sources          []string
	SourceCounts     map[string]int
	ArticleURLs      []string
	Embedding        []float64
	Articles         []MemberInput
}

// Outcome records what happened to one candidate.
type Outcome struct {
	Name          string   `json:"name"`
	Action        string   `json:"action"`
	ClusterUUID   string   `json:"cluster_uuid,omitempty"`
	MatchScore    *float64 `json:"match_score,omitempty"`
	ArticlesCount int      `json:"articles_count,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Embedder supplies the fingerprint embedding for a candidate.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float64, string, error)
}

type Options struct {
	Threshold       float64
	RecencyWindow   time.Duration
	MaxCandidates   int
	EmbeddingWeight float64
	KeywordWeight   float64
}

// Engine decides, per candidate cluster, between merging into a similar
// recent stored cluster and creating a new one. Every candidate is handled
// in its own transaction; one failure never aborts the batch.
type Engine struct {
	pool     *db.Pool
	embedder Embedder
	logger   zerolog.Logger
	opts     Options
}

func NewEngine(pool *db.Pool, embedder Embedder, options Options, logger zerolog.Logger) *Engine {
	return &Engine{
		pool:     pool,
		embedder: embedder,
		logger:   logger,
		opts:     normalizeOptions(options),
	}
}

// StoreBatch runs the merge decision for every candidate in order and
// returns one outcome per candidate.
func (e *Engine) StoreBatch(ctx context.Context, candidates []Candidate, forceNew bool) ([]Outcome, error) {
	if e == nil || e.pool == nil {
		return nil, fmt.Errorf("merge engine is not initialized")
	}

	outcomes := make([]Outcome, 0, len(candidates))
	for _, candidate := range candidates {
		outcome := e.storeOne(ctx, candidate, forceNew)
		if outcome.Action == ActionFailed {
			e.logger.Error().
				Str("cluster_name", candidate.Name).
				Str("error", outcome.Error).
				Msg("cluster candidate failed to store")
		} else {
			e.logger.Info().
				Str("cluster_name", candidate.Name).
				Str("action", outcome.Action).
				Str("cluster_uuid", outcome.ClusterUUID).
				Msg("cluster candidate stored")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (e *Engine) storeOne(ctx context.Context, candidate Candidate, forceNew bool) Outcome {
	outcome := Outcome{Name: candidate.Name}

	prepared, err := e.prepareCandidate(ctx, candidate)
	if err != nil {
		outcome.Action = ActionFailed
		outcome.Error = err.Error()
		return outcome
	}

	if !forceNew {
		match, score, err := e.findBestMatch(ctx, prepared)
		if err != nil {
			outcome.Action = ActionFailed
			outcome.Error = err.Error()
			return outcome
		}
		if match != nil {
			count, err := e.mergeInto(ctx, *match, prepared, score)
			if err != nil {
				outcome.Action = ActionFailed
				outcome.Error = err.Error()
				return outcome
			}
			outcome.Action = ActionMerged
			outcome.ClusterUUID = match.ClusterUUID
			outcome.MatchScore = floatPtr(score)
			outcome.ArticlesCount = count
			return outcome
		}
	}

	clusterUUID, count, err := e.createCluster(ctx, prepared)
	if err != nil {
		outcome.Action = ActionFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Action = ActionCreated
	outcome.ClusterUUID = clusterUUID
	outcome.ArticlesCount = count
	return outcome
}

// prepareCandidate fills in the fingerprint pieces the caller left empty.
func (e *Engine) prepareCandidate(ctx context.Context, candidate Candidate) (Candidate, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return candidate, fmt.Errorf("candidate cluster has no name")
	}
	if len(candidate.Articles) == 0 {
		return candidate, fmt.Errorf("candidate cluster has no articles")
	}

	if len(candidate.Keywords) == 0 {
		titles := make([]string, 0, len(candidate.Articles))
		for _, article := range candidate.Articles {
			titles = append(titles, article.Title)
		}
		candidate.Keywords = ExtractKeywords(candidate.Name, candidate.Facts, titles)
	}

	if len(candidate.Embedding) == 0 {
		if e.embedder == nil {
			return candidate, fmt.Errorf("candidate has no embedding and no embedder is configured")
		}
		vector, _, err := e.embedder.EmbedOne(ctx, CombinedText(candidate))
		if err != nil {
			return candidate, fmt.Errorf("embed candidate fingerprint: %w", err)
		}
		candidate.Embedding = vector
	}

	if candidate.SourceCounts == nil {
		candidate.SourceCounts = make(map[string]int)
		for _, article := range candidate.Articles {
			if source := strings.TrimSpace(article.Source); source != "" {
				candidate.SourceCounts[source]++
			}
		}
	}
	return candidate, nil
}

type storedCluster struct {
	ClusterID     int64
	ClusterUUID   string
	Name          string
	Keywords      []string
	Embedding     []float64
	ArticlesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// findBestMatch scores the candidate against recent stored clusters and
// returns the single best one at or above the threshold.
func (e *Engine) findBestMatch(ctx context.Context, candidate Candidate) (*storedCluster, float64, error) {
	recent, err := e.loadRecentClusters(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(recent) == 0 {
		return nil, 0, nil
	}

	type scored struct {
		cluster storedCluster
		score   float64
	}
	matches := make([]scored, 0, 4)
	for _, cluster := range recent {
		score := BlendedScore(
			candidate.Embedding, cluster.Embedding,
			candidate.Keywords, cluster.Keywords,
			e.opts.EmbeddingWeight, e.opts.KeywordWeight,
		)
		if score >= e.opts.Threshold {
			matches = append(matches, scored{cluster: cluster, score: score})
		}
	}
	if len(matches) == 0 {
		return nil, 0, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].cluster.UpdatedAt.After(matches[j].cluster.UpdatedAt)
	})
	best := matches[0]
	return &best.cluster, best.score, nil
}

func (e *Engine) loadRecentClusters(ctx context.Context) ([]storedCluster, error) {
	cutoff := globaltime.UTC().Add(-e.opts.RecencyWindow)

	const q = `
SELECT
	c.cluster_id,
	c.cluster_uuid::text,
	c.name,
	c.keywords,
	c.embedding,
	c.articles_count,
	c.created_at,
	c.updated_at
FROM infact.clusters c
WHERE c.created_at >= $1
ORDER BY c.updated_at DESC
LIMIT $2
`
	rows, err := e.pool.Query(ctx, q, cutoff, e.opts.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("select recent clusters: %w", err)
	}
	defer rows.Close()

	clusters := make([]storedCluster, 0, 32)
	for rows.Next() {
		var (
			cluster      storedCluster
			rawKeywords  []byte
			rawEmbedding []byte
		)
		if err := rows.Scan(
			&cluster.ClusterID,
			&cluster.ClusterUUID,
			&cluster.Name,
			&rawKeywords,
			&rawEmbedding,
			&cluster.ArticlesCount,
			&cluster.CreatedAt,
			&cluster.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recent cluster: %w", err)
		}
		cluster.Keywords = decodeStringList(rawKeywords)
		cluster.Embedding = decodeFloatList(rawEmbedding)
		clusters = append(clusters, cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent clusters: %w", err)
	}
	return clusters, nil
}

// createCluster inserts the candidate as a brand-new stored cluster.
func (e *Engine) createCluster(ctx context.Context, candidate Candidate) (string, int, error) {
	now := globaltime.UTC()

	tx, err := e.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return "", 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	articleIDs, err := upsertArticlesTx(ctx, tx, candidate.Articles, now)
	if err != nil {
		return "", 0, err
	}

	clusterUUID := uuid.NewString()
	const insertCluster = `
INSERT INTO infact.clusters (
	cluster_uuid,
	name,
	keywords,
	facts,
	musings,
	context,
	background,
	generated_article,
	image_url,
	embedding,
	sources,
	source_counts,
	article_urls,
	articles_count,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15, $15)
RETURNING cluster_id
`
	var clusterID int64
	err = tx.QueryRow(ctx, insertCluster,
		clusterUUID,
		candidate.Name,
		jsonArray(candidate.Keywords),
		jsonArray(candidate.Facts),
		jsonArray(candidate.Musings),
		candidate.Context,
		candidate.Background,
		candidate.GeneratedArticle,
		candidate.ImageURL,
		jsonFloats(candidate.Embedding),
		jsonArray(candidate.Sources),
		jsonCounts(candidate.SourceCounts),
		jsonArray(candidate.ArticleURLs),
		len(articleIDs),
		now,
	).Scan(&clusterID)
	if err != nil {
		return "", 0, fmt.Errorf("insert cluster: %w", err)
	}

	if err := attachMembersTx(ctx, tx, clusterID, articleIDs, ActionCreated, nil, now); err != nil {
		return "", 0, err
	}

	count, err := syncMembershipTx(ctx, tx, clusterID, now)
	if err != nil {
		return "", 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, fmt.Errorf("commit transaction: %w", err)
	}
	return clusterUUID, count, nil
}

// mergeInto folds the candidate into an existing cluster as one atomic
// document update.
func (e *Engine) mergeInto(ctx context.Context, stored storedCluster, candidate Candidate, score float64) (int, error) {
	now := globaltime.UTC()

	tx, err := e.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	storedDoc, err := lockClusterDocTx(ctx, tx, stored.ClusterID)
	if err != nil {
		return 0, err
	}

	articleIDs, err := upsertArticlesTx(ctx, tx, candidate.Articles, now)
	if err != nil {
		return 0, err
	}

	if err := attachMembersTx(ctx, tx, stored.ClusterID, articleIDs, ActionMerged, floatPtr(score), now); err != nil {
		return 0, err
	}

	merged := MergeDocs(*storedDoc, ClusterDoc{
		Name:             candidate.Name,
		Keywords:         candidate.Keywords,
		Facts:            candidate.Facts,
		Musings:          candidate.Musings,
		Context:          candidate.Context,
		Background:       candidate.Background,
		GeneratedArticle: candidate.GeneratedArticle,
		ImageURL:         candidate.ImageURL,
		Embedding:        candidate.Embedding,
		Sources:          candidate.Sources,
		SourceCounts:     candidate.SourceCounts,
		ArticleURLs:      candidate.ArticleURLs,
		ArticlesCount:    len(candidate.Articles),
	})

	const updateCluster = `
UPDATE infact.clusters
SET
	keywords = $2,
	facts = $3,
	musings = $4,
	context = $5,
	background = $6,
	generated_article = $7,
	image_url = COALESCE(NULLIF($8, ''), image_url),
	embedding = $9,
	article_urls = $10,
	updated_at = $11
WHERE cluster_id = $1
`
	_, err = tx.Exec(ctx, updateCluster,
		stored.ClusterID,
		jsonArray(merged.Keywords),
		jsonArray(merged.Facts),
		jsonArray(merged.Musings),
		merged.Context,
		merged.Background,
		merged.GeneratedArticle,
		merged.ImageURL,
		jsonFloats(merged.Embedding),
		jsonArray(merged.ArticleURLs),
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("update merged cluster: %w", err)
	}

	memberCount, err := syncMembershipTx(ctx, tx, stored.ClusterID, now)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return memberCount, nil
}

func lockClusterDocTx(ctx context.Context, tx db.Tx, clusterID int64) (*ClusterDoc, error) {
	const q = `
SELECT
	c.name,
	c.keywords,
	c.facts,
	c.musings,
	c.context,
	c.background,
	c.generated_article,
	COALESCE(c.image_url, ''),
	c.embedding,
	c.sources,
	c.source_counts,
	c.article_urls,
	c.articles_count
FROM infact.clusters c
WHERE c.cluster_id = $1
FOR UPDATE
`
	var (
		doc             ClusterDoc
		rawKeywords     []byte
		rawFacts        []byte
		rawMusings      []byte
		rawEmbedding    []byte
		rawSources      []byte
		rawSourceCounts []byte
		rawArticleURLs  []byte
	)
	err := tx.QueryRow(ctx, q, clusterID).Scan(
		&doc.Name,
		&rawKeywords,
		&rawFacts,
		&rawMusings,
		&doc.Context,
		&doc.Background,
		&doc.GeneratedArticle,
		&doc.ImageURL,
		&rawEmbedding,
		&rawSources,
		&rawSourceCounts,
		&rawArticleURLs,
		&doc.ArticlesCount,
	)
	if err != nil {
		return nil, fmt.Errorf("lock cluster %d: %w", clusterID, err)
	}

	doc.Keywords = decodeStringList(rawKeywords)
	doc.Facts = decodeStringList(rawFacts)
	doc.Musings = decodeStringList(rawMusings)
	doc.Embedding = decodeFloatList(rawEmbedding)
	doc.Sources = decodeStringList(rawSources)
	doc.SourceCounts = decodeCounts(rawSourceCounts)
	doc.ArticleURLs = decodeStringList(rawArticleURLs)
	return &doc, nil
}

// upsertArticlesTx inserts candidate articles, reusing existing rows on the
// (title, source) conflict so the first writer wins on content.
func upsertArticlesTx(ctx context.Context, tx db.Tx, members []MemberInput, now time.Time) ([]int64, error) {
	const q = `
INSERT INTO infact.articles (
	title,
	source,
	content,
	url,
	image_url,
	language,
	published_at,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $8)
ON CONFLICT (title, source) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING article_id
`
	seen := make(map[int64]struct{}, len(members))
	ids := make([]int64, 0, len(members))
	for _, member := range members {
		language := strings.TrimSpace(member.Language)
		if language == "" {
			language = "und"
		}

		var articleID int64
		err := tx.QueryRow(ctx, q,
			member.Title,
			member.Source,
			member.Content,
			member.URL,
			member.ImageURL,
			language,
			member.PublishedAt,
			now,
		).Scan(&articleID)
		if err != nil {
			return nil, fmt.Errorf("upsert article %q: %w", member.Title, err)
		}
		if _, ok := seen[articleID]; ok {
			continue
		}
		seen[articleID] = struct{}{}
		ids = append(ids, articleID)
	}
	return ids, nil
}

// attachMembersTx links articles to a cluster. Re-attaching an existing
// member is a no-op.
func attachMembersTx(ctx context.Context, tx db.Tx, clusterID int64, articleIDs []int64, matchType string, score *float64, now time.Time) error {
	const insertMember = `
INSERT INTO infact.cluster_articles (cluster_id, article_id, match_type, match_score, matched_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cluster_id, article_id) DO NOTHING
`
	const backReference = `
UPDATE infact.articles
SET cluster_id = $1, updated_at = $3
WHERE article_id = $2
`
	for _, articleID := range articleIDs {
		if _, err := tx.Exec(ctx, insertMember, clusterID, articleID, matchType, score, now); err != nil {
			return fmt.Errorf("attach article %d to cluster %d: %w", articleID, clusterID, err)
		}
		if _, err := tx.Exec(ctx, backReference, clusterID, articleID, now); err != nil {
			return fmt.Errorf("set article %d cluster reference: %w", articleID, err)
		}
	}
	return nil
}

// syncMembershipTx recomputes the membership-derived cluster fields from
// the member table and writes them back: articles_count, sources, and the
// per-source counts. Keeps sum(source_counts) == articles_count no matter
// how often the same candidate merges in.
func syncMembershipTx(ctx context.Context, tx db.Tx, clusterID int64, now time.Time) (int, error) {
	const sourcesQuery = `
SELECT a.source, COUNT(*)
FROM infact.cluster_articles ca
JOIN infact.articles a
	ON a.article_id = ca.article_id
WHERE ca.cluster_id = $1
GROUP BY a.source
ORDER BY a.source
`
	rows, err := tx.Query(ctx, sourcesQuery, clusterID)
	if err != nil {
		return 0, fmt.Errorf("count cluster %d sources: %w", clusterID, err)
	}
	defer rows.Close()

	total := 0
	sources := make([]string, 0, 8)
	counts := make(map[string]int, 8)
	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return 0, fmt.Errorf("scan cluster %d source count: %w", clusterID, err)
		}
		sources = append(sources, source)
		counts[source] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate cluster %d source counts: %w", clusterID, err)
	}

	const updateMembership = `
UPDATE infact.clusters
SET articles_count = $2, sources = $3, source_counts = $4, updated_at = $5
WHERE cluster_id = $1
`
	if _, err := tx.Exec(ctx, updateMembership, clusterID, total, jsonArray(sources), jsonCounts(counts), now); err != nil {
		return 0, fmt.Errorf("set cluster %d membership fields: %w", clusterID, err)
	}
	return total, nil
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.Threshold <= 0 || normalized.Threshold > 1 {
		normalized.Threshold = DefaultThreshold
	}
	if normalized.RecencyWindow <= 0 {
		normalized.RecencyWindow = DefaultRecencyWindow
	}
	if normalized.MaxCandidates <= 0 {
		normalized.MaxCandidates = DefaultMaxCandidates
	}
	if normalized.EmbeddingWeight <= 0 && normalized.KeywordWeight <= 0 {
		normalized.EmbeddingWeight = DefaultEmbeddingWeight
		normalized.KeywordWeight = DefaultKeywordWeight
	}
	return normalized
}

func floatPtr(v float64) *float64 {
	return &v
}

func jsonArray(values []string) string {
	if values == nil {
		values = []string{}
	}
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func jsonFloats(values []float64) string {
	if values == nil {
		values = []float64{}
	}
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func jsonCounts(counts map[string]int) string {
	if counts == nil {
		counts = map[string]int{}
	}
	encoded, _ := json.Marshal(counts)
	return string(encoded)
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func decodeFloatList(raw []byte) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func decodeCounts(raw []byte) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	var counts map[string]int
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil
	}
	return counts
}
