package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"INFACT_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"INFACT_DB_MAX_CONNS" default:"8"`

	EmbeddingEndpoint  string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingBatchSize int           `envconfig:"EMBEDDING_BATCH_SIZE" default:"32"`
	EmbeddingMaxLength int           `envconfig:"EMBEDDING_MAX_LENGTH" default:"512"`
	EmbeddingTimeout   time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"45s"`
	FallbackVectorDim  int           `envconfig:"FALLBACK_VECTOR_DIM" default:"256"`

	MinClusters             int     `envconfig:"MIN_CLUSTERS" default:"3"`
	MaxClusters             int     `envconfig:"MAX_CLUSTERS" default:"15"`
	DefaultNumClusters      int     `envconfig:"DEFAULT_NUM_CLUSTERS" default:"0"`
	LexicalWeight           float64 `envconfig:"LEXICAL_WEIGHT" default:"0.3"`
	ClusterSeed             int64   `envconfig:"CLUSTER_SEED" default:"42"`
	DedupThreshold          float64 `envconfig:"DEDUP_THRESHOLD" default:"0.8"`
	MaxTextLength           int     `envconfig:"MAX_TEXT_LENGTH" default:"5000"`
	MaxFactsPerCluster      int     `envconfig:"MAX_FACTS_PER_CLUSTER" default:"15"`
	MaxMusingsPerCluster    int     `envconfig:"MAX_MUSINGS_PER_CLUSTER" default:"10"`
	MaxContextPerCluster    int     `envconfig:"MAX_CONTEXT_PER_CLUSTER" default:"10"`
	MaxBackgroundPerCluster int     `envconfig:"MAX_BACKGROUND_PER_CLUSTER" default:"10"`
	MaxArticlesPerRequest   int     `envconfig:"MAX_ARTICLES_PER_REQUEST" default:"50"`

	MergeThreshold     float64       `envconfig:"MERGE_THRESHOLD" default:"0.8"`
	RecencyWindow      time.Duration `envconfig:"RECENCY_WINDOW" default:"168h"`
	RetentionDays      int           `envconfig:"RETENTION_DAYS" default:"30"`
	MaxMergeCandidates int           `envconfig:"MAX_MERGE_CANDIDATES" default:"200"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	UnsplashAccessKey string `envconfig:"UNSPLASH_ACCESS_KEY" default:""`

	FeedsFile        string        `envconfig:"FEEDS_FILE" default:"feeds.yaml"`
	FeedFetchWorkers int           `envconfig:"FEED_FETCH_WORKERS" default:"4"`
	FeedFetchTimeout time.Duration `envconfig:"FEED_FETCH_TIMEOUT" default:"12s"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("INFACT_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("INFACT_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("INFACT_DB_MIN_CONNS (%d) cannot exceed INFACT_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MinClusters < 1 {
		return fmt.Errorf("MIN_CLUSTERS must be >= 1")
	}
	if c.MaxClusters < c.MinClusters {
		return fmt.Errorf("MAX_CLUSTERS (%d) cannot be below MIN_CLUSTERS (%d)", c.MaxClusters, c.MinClusters)
	}
	if c.DefaultNumClusters < 0 {
		return fmt.Errorf("DEFAULT_NUM_CLUSTERS must be >= 0 (0 selects the count automatically)")
	}
	if c.LexicalWeight < 0 || c.LexicalWeight > 1 {
		return fmt.Errorf("LEXICAL_WEIGHT must be within [0, 1]")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be within (0, 1]")
	}
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		return fmt.Errorf("MERGE_THRESHOLD must be within (0, 1]")
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("RECENCY_WINDOW must be positive")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be >= 1")
	}
	if c.EmbeddingBatchSize < 1 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be >= 1")
	}
	if c.FallbackVectorDim < 16 {
		return fmt.Errorf("FALLBACK_VECTOR_DIM must be >= 16")
	}
	if c.MaxArticlesPerRequest < 2 {
		return fmt.Errorf("MAX_ARTICLES_PER_REQUEST must be >= 2")
	}
	if c.FeedFetchWorkers < 1 {
		return fmt.Errorf("FEED_FETCH_WORKERS must be >= 1")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return nil
	}
	return origins
}
