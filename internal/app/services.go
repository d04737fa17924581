package app

import (
	"github.com/rs/zerolog"

	"horse.fit/infact/internal/classify"
	"horse.fit/infact/internal/cluster"
	"horse.fit/infact/internal/config"
	"horse.fit/infact/internal/db"
	"horse.fit/infact/internal/feature"
	"horse.fit/infact/internal/imagesearch"
	"horse.fit/infact/internal/merge"
	"horse.fit/infact/internal/narrative"
	"horse.fit/infact/internal/pipeline"
)

// buildPipelineService wires the batch pipeline from configuration. The
// merge engine is only attached when a pool is given; without it the
// pipeline still clusters but cannot store.
func buildPipelineService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) *pipeline.Service {
	extractor := feature.NewExtractor(feature.EmbedOptions{
		Endpoint:           cfg.EmbeddingEndpoint,
		BatchSize:          cfg.EmbeddingBatchSize,
		MaxLength:          cfg.EmbeddingMaxLength,
		RequestTimeout:     cfg.EmbeddingTimeout,
		FallbackDimensions: cfg.FallbackVectorDim,
	}, logger)

	clusterer := cluster.NewClusterer(cluster.Options{
		MinClusters:   cfg.MinClusters,
		MaxClusters:   cfg.MaxClusters,
		LexicalWeight: cfg.LexicalWeight,
		Seed:          cfg.ClusterSeed,
	}, logger)

	var engine *merge.Engine
	if pool != nil {
		engine = merge.NewEngine(pool, extractor, merge.Options{
			Threshold:     cfg.MergeThreshold,
			RecencyWindow: cfg.RecencyWindow,
			MaxCandidates: cfg.MaxMergeCandidates,
		}, logger)
	}

	generator := narrative.NewGenerator(narrative.Options{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	}, logger)

	images := imagesearch.NewFinder(cfg.UnsplashAccessKey, logger)

	return pipeline.NewService(extractor, clusterer, engine, generator, images, pipeline.Options{
		MaxTextLength:         cfg.MaxTextLength,
		MaxArticlesPerRequest: cfg.MaxArticlesPerRequest,
		DedupThreshold:        cfg.DedupThreshold,
		DefaultNumClusters:    cfg.DefaultNumClusters,
		Classify: classify.Options{
			MaxFacts:      cfg.MaxFactsPerCluster,
			MaxMusings:    cfg.MaxMusingsPerCluster,
			MaxContext:    cfg.MaxContextPerCluster,
			MaxBackground: cfg.MaxBackgroundPerCluster,
		},
	}, logger)
}
