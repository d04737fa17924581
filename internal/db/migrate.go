package db

import (
	"context"
	"fmt"
	"strings"
)

const preAutoMigrateSQL = `
CREATE SCHEMA IF NOT EXISTS infact;
CREATE EXTENSION IF NOT EXISTS pgcrypto;
`

const postAutoMigrateSQL = `
CREATE INDEX IF NOT EXISTS idx_cluster_articles_article ON infact.cluster_articles (article_id);
CREATE INDEX IF NOT EXISTS idx_clusters_name ON infact.clusters (lower(name));
`

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := executeMigrationSQL(ctx, p, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	return executeMigrationSQL(ctx, p, "post-auto-migrate", postAutoMigrateSQL)
}

func executeMigrationSQL(ctx context.Context, p *Pool, label, sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return nil
	}
	if err := p.gdb.WithContext(ctx).Exec(trimmed).Error; err != nil {
		return fmt.Errorf("execute %s SQL: %w", label, err)
	}
	return nil
}
