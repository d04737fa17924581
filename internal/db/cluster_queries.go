package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClusterSummary is a read model used by list/search/trending queries.
type ClusterSummary struct {
	ClusterID     int64           `json:"cluster_id"`
	ClusterUUID   string          `json:"cluster_uuid"`
	Name          string          `json:"name"`
	Keywords      json.RawMessage `json:"keywords"`
	ImageURL      *string         `json:"image_url,omitempty"`
	ArticlesCount int             `json:"articles_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ClusterDetail contains one full cluster row and its member articles.
type ClusterDetail struct {
	Cluster  ClusterRecord   `json:"cluster"`
	Articles []MemberArticle `json:"articles"`
}

// ClusterRecord is the full persisted cluster document.
type ClusterRecord struct {
	ClusterID        int64           `json:"cluster_id"`
	ClusterUUID      string          `json:"cluster_uuid"`
	Name             string          `json:"name"`
	Keywords         json.RawMessage `json:"keywords"`
	Facts            json.RawMessage `json:"facts"`
	Musings          json.RawMessage `json:"musings"`
	Context          string          `json:"context"`
	Background       string          `json:"background"`
	GeneratedArticle string          `json:"generated_article"`
	ImageURL         *string         `json:"image_url,omitempty"`
	Embedding        json.RawMessage `json:"embedding,omitempty"`
	Sources          json.RawMessage `json:"sources"`
	SourceCounts     json.RawMessage `json:"source_counts"`
	ArticleURLs      json.RawMessage `json:"article_urls"`
	ArticlesCount    int             `json:"articles_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MemberArticle is an article row within a cluster.
type MemberArticle struct {
	ArticleID   int64      `json:"article_id"`
	ArticleUUID string     `json:"article_uuid"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	URL         *string    `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	MatchedAt   time.Time  `json:"matched_at"`
}

const clusterSummaryColumns = `
	c.cluster_id,
	c.cluster_uuid::text,
	c.name,
	c.keywords,
	c.image_url,
	c.articles_count,
	c.created_at,
	c.updated_at
`

// ListRecentClusters returns clusters updated at or after the cutoff,
// most recently updated first.
func (p *Pool) ListRecentClusters(ctx context.Context, since time.Time, limit int) ([]ClusterSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + clusterSummaryColumns + `
FROM infact.clusters c
WHERE c.updated_at >= $1
ORDER BY c.updated_at DESC
LIMIT $2
`
	return p.queryClusterSummaries(ctx, q, since.UTC(), limit)
}

// ListTrendingClusters ranks clusters by member count within a window.
func (p *Pool) ListTrendingClusters(ctx context.Context, since time.Time, limit int) ([]ClusterSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + clusterSummaryColumns + `
FROM infact.clusters c
WHERE c.updated_at >= $1
ORDER BY c.articles_count DESC, c.updated_at DESC
LIMIT $2
`
	return p.queryClusterSummaries(ctx, q, since.UTC(), limit)
}

// ListClustersBySource returns clusters carrying at least one article from
// the given source, ordered by that source's article count.
func (p *Pool) ListClustersBySource(ctx context.Context, source string, since time.Time, limit int) ([]ClusterSummary, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("source is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + clusterSummaryColumns + `
FROM infact.clusters c
WHERE c.updated_at >= $1
  AND c.source_counts ->> $2 IS NOT NULL
ORDER BY (c.source_counts ->> $2)::int DESC, c.updated_at DESC
LIMIT $3
`
	return p.queryClusterSummaries(ctx, q, since.UTC(), trimmed, limit)
}

// SearchClusters matches cluster names and keywords case-insensitively.
func (p *Pool) SearchClusters(ctx context.Context, query string, limit int) ([]ClusterSummary, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	pattern := "%" + strings.ToLower(trimmed) + "%"
	q := `
SELECT` + clusterSummaryColumns + `
FROM infact.clusters c
WHERE lower(c.name) LIKE $1
   OR lower(c.keywords::text) LIKE $1
ORDER BY c.updated_at DESC
LIMIT $2
`
	return p.queryClusterSummaries(ctx, q, pattern, limit)
}

func (p *Pool) queryClusterSummaries(ctx context.Context, query string, args ...any) ([]ClusterSummary, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	summaries := make([]ClusterSummary, 0, 32)
	for rows.Next() {
		var summary ClusterSummary
		if err := rows.Scan(
			&summary.ClusterID,
			&summary.ClusterUUID,
			&summary.Name,
			&summary.Keywords,
			&summary.ImageURL,
			&summary.ArticlesCount,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cluster summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster summaries: %w", err)
	}
	return summaries, nil
}

// GetClusterByUUID loads one cluster with its member articles. Returns
// ErrNoRows when the UUID is unknown.
func (p *Pool) GetClusterByUUID(ctx context.Context, clusterUUID string) (*ClusterDetail, error) {
	trimmedUUID := strings.TrimSpace(clusterUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("cluster UUID is required")
	}

	const clusterQuery = `
SELECT
	c.cluster_id,
	c.cluster_uuid::text,
	c.name,
	c.keywords,
	c.facts,
	c.musings,
	c.context,
	c.background,
	c.generated_article,
	c.image_url,
	c.embedding,
	c.sources,
	c.source_counts,
	c.article_urls,
	c.articles_count,
	c.created_at,
	c.updated_at
FROM infact.clusters c
WHERE c.cluster_uuid = $1::uuid
`
	var record ClusterRecord
	err := p.QueryRow(ctx, clusterQuery, trimmedUUID).Scan(
		&record.ClusterID,
		&record.ClusterUUID,
		&record.Name,
		&record.Keywords,
		&record.Facts,
		&record.Musings,
		&record.Context,
		&record.Background,
		&record.GeneratedArticle,
		&record.ImageURL,
		&record.Embedding,
		&record.Sources,
		&record.SourceCounts,
		&record.ArticleURLs,
		&record.ArticlesCount,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	const membersQuery = `
SELECT
	a.article_id,
	a.article_uuid::text,
	a.title,
	a.source,
	a.url,
	a.published_at,
	ca.matched_at
FROM infact.cluster_articles ca
JOIN infact.articles a
	ON a.article_id = ca.article_id
WHERE ca.cluster_id = $1
ORDER BY a.published_at DESC NULLS LAST, a.article_id
`
	rows, err := p.Query(ctx, membersQuery, record.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()

	articles := make([]MemberArticle, 0, record.ArticlesCount)
	for rows.Next() {
		var article MemberArticle
		if err := rows.Scan(
			&article.ArticleID,
			&article.ArticleUUID,
			&article.Title,
			&article.Source,
			&article.URL,
			&article.PublishedAt,
			&article.MatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cluster member: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster members: %w", err)
	}

	return &ClusterDetail{Cluster: record, Articles: articles}, nil
}
