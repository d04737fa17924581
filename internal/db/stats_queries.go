package db

import (
	"context"
	"fmt"
	"time"
)

// SourceCount is one source with its article count.
type SourceCount struct {
	Source   string `json:"source"`
	Articles int64  `json:"articles"`
}

// StoreStats is the read model returned by the stats command and endpoint.
type StoreStats struct {
	TotalClusters         int64         `json:"total_clusters"`
	TotalArticles         int64         `json:"total_articles"`
	ClustersCreated24h    int64         `json:"clusters_created_24h"`
	ClustersUpdated24h    int64         `json:"clusters_updated_24h"`
	AvgArticlesPerCluster float64       `json:"avg_articles_per_cluster"`
	TopSources            []SourceCount `json:"top_sources"`
}

// TimelineDay is one day of cluster creation activity.
type TimelineDay struct {
	Day      string `json:"day"`
	Clusters int64  `json:"clusters"`
}

// QueryStoreStats returns store totals and last-24h activity counters.
func (p *Pool) QueryStoreStats(ctx context.Context, now time.Time) (*StoreStats, error) {
	dayAgo := now.UTC().Add(-24 * time.Hour)

	const totalsQuery = `
SELECT
	(SELECT COUNT(*)::BIGINT FROM infact.clusters),
	(SELECT COUNT(*)::BIGINT FROM infact.articles),
	(SELECT COUNT(*)::BIGINT FROM infact.clusters WHERE created_at >= $1),
	(SELECT COUNT(*)::BIGINT FROM infact.clusters WHERE updated_at >= $1),
	(SELECT COALESCE(AVG(articles_count), 0)::DOUBLE PRECISION FROM infact.clusters)
`
	stats := &StoreStats{TopSources: make([]SourceCount, 0, 10)}
	err := p.QueryRow(ctx, totalsQuery, dayAgo).Scan(
		&stats.TotalClusters,
		&stats.TotalArticles,
		&stats.ClustersCreated24h,
		&stats.ClustersUpdated24h,
		&stats.AvgArticlesPerCluster,
	)
	if err != nil {
		return nil, fmt.Errorf("query store totals: %w", err)
	}

	const sourcesQuery = `
SELECT a.source, COUNT(*)::BIGINT AS articles
FROM infact.articles a
GROUP BY a.source
ORDER BY articles DESC, a.source
LIMIT 10
`
	rows, err := p.Query(ctx, sourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("query top sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var count SourceCount
		if err := rows.Scan(&count.Source, &count.Articles); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		stats.TopSources = append(stats.TopSources, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source counts: %w", err)
	}

	return stats, nil
}

// QueryClusterTimeline returns per-day created cluster counts for the last
// days days, oldest first. Days without activity are omitted.
func (p *Pool) QueryClusterTimeline(ctx context.Context, now time.Time, days int) ([]TimelineDay, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be > 0")
	}

	cutoff := now.UTC().AddDate(0, 0, -days)
	const q = `
SELECT
	to_char(date_trunc('day', c.created_at), 'YYYY-MM-DD') AS day,
	COUNT(*)::BIGINT AS clusters
FROM infact.clusters c
WHERE c.created_at >= $1
GROUP BY day
ORDER BY day
`
	rows, err := p.Query(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query cluster timeline: %w", err)
	}
	defer rows.Close()

	timeline := make([]TimelineDay, 0, days)
	for rows.Next() {
		var day TimelineDay
		if err := rows.Scan(&day.Day, &day.Clusters); err != nil {
			return nil, fmt.Errorf("scan timeline day: %w", err)
		}
		timeline = append(timeline, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline days: %w", err)
	}
	return timeline, nil
}
