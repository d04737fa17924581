package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult reports how many rows a retention cleanup touched.
type CleanupResult struct {
	Clusters         int64 `json:"clusters"`
	DetachedArticles int64 `json:"detached_articles"`
}

// DeleteClustersBefore removes clusters whose updated_at is older than the
// cutoff. Member articles survive with their cluster reference cleared.
func (p *Pool) DeleteClustersBefore(ctx context.Context, cutoff, now time.Time) (CleanupResult, error) {
	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return CleanupResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	cutoffUTC := cutoff.UTC()

	const detachQuery = `
UPDATE infact.articles
SET
	cluster_id = NULL,
	updated_at = $2
WHERE cluster_id IN (
	SELECT cluster_id FROM infact.clusters WHERE updated_at < $1
)
`
	detached, err := tx.Exec(ctx, detachQuery, cutoffUTC, now.UTC())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("detach member articles: %w", err)
	}

	const membersQuery = `
DELETE FROM infact.cluster_articles
WHERE cluster_id IN (
	SELECT cluster_id FROM infact.clusters WHERE updated_at < $1
)
`
	if _, err := tx.Exec(ctx, membersQuery, cutoffUTC); err != nil {
		return CleanupResult{}, fmt.Errorf("delete cluster members: %w", err)
	}

	const clustersQuery = `
DELETE FROM infact.clusters
WHERE updated_at < $1
`
	deleted, err := tx.Exec(ctx, clustersQuery, cutoffUTC)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("delete expired clusters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CleanupResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	return CleanupResult{
		Clusters:         deleted.RowsAffected(),
		DetachedArticles: detached.RowsAffected(),
	}, nil
}
