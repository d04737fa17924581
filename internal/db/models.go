package db

import (
	"encoding/json"
	"time"
)

// Article maps infact.articles. The (title, source) pair is unique; later
// writers reuse the existing row.
type Article struct {
	ArticleID   int64      `gorm:"column:article_id;primaryKey;autoIncrement"`
	ArticleUUID string     `gorm:"column:article_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title       string     `gorm:"column:title;type:text;not null;uniqueIndex:uq_articles_title_source"`
	Source      string     `gorm:"column:source;type:text;not null;uniqueIndex:uq_articles_title_source"`
	Content     string     `gorm:"column:content;type:text;not null;default:''"`
	URL         *string    `gorm:"column:url;type:text"`
	ImageURL    *string    `gorm:"column:image_url;type:text"`
	Language    string     `gorm:"column:language;type:text;not null;default:und"`
	PublishedAt *time.Time `gorm:"column:published_at;type:timestamptz"`
	ClusterID   *int64     `gorm:"column:cluster_id;type:bigint;index"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "infact.articles" }

// Cluster maps infact.clusters. List-valued fields are stored as jsonb.
type Cluster struct {
	ClusterID        int64           `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID      string          `gorm:"column:cluster_uuid;type:uuid;not null;unique"`
	Name             string          `gorm:"column:name;type:text;not null"`
	Keywords         json.RawMessage `gorm:"column:keywords;type:jsonb;not null;default:'[]'"`
	Facts            json.RawMessage `gorm:"column:facts;type:jsonb;not null;default:'[]'"`
	Musings          json.RawMessage `gorm:"column:musings;type:jsonb;not null;default:'[]'"`
	Context          string          `gorm:"column:context;type:text;not null;default:''"`
	Background       string          `gorm:"column:background;type:text;not null;default:''"`
	GeneratedArticle string          `gorm:"column:generated_article;type:text;not null;default:''"`
	ImageURL         *string         `gorm:"column:image_url;type:text"`
	Embedding        json.RawMessage `gorm:"column:embedding;type:jsonb"`
	Sources          json.RawMessage `gorm:"column:sources;type:jsonb;not null;default:'[]'"`
	SourceCounts     json.RawMessage `gorm:"column:source_counts;type:jsonb;not null;default:'{}'"`
	ArticleURLs      json.RawMessage `gorm:"column:article_urls;type:jsonb;not null;default:'[]'"`
	ArticlesCount    int             `gorm:"column:articles_count;type:integer;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now();index"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now();index"`
}

func (Cluster) TableName() string { return "infact.clusters" }

// ClusterArticle maps infact.cluster_articles, the authoritative member set.
type ClusterArticle struct {
	ClusterID  int64     `gorm:"column:cluster_id;type:bigint;primaryKey"`
	ArticleID  int64     `gorm:"column:article_id;type:bigint;primaryKey"`
	MatchType  string    `gorm:"column:match_type;type:text;not null"`
	MatchScore *float64  `gorm:"column:match_score;type:double precision"`
	MatchedAt  time.Time `gorm:"column:matched_at;type:timestamptz;not null;default:now()"`
}

func (ClusterArticle) TableName() string { return "infact.cluster_articles" }

func autoMigrateModels() []any {
	return []any{
		&Article{},
		&Cluster{},
		&ClusterArticle{},
	}
}
