package cluster

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMinClusters   = 3
	DefaultMaxClusters   = 15
	DefaultLexicalWeight = 0.3
	DefaultSeed          = 42

	// FallbackName labels the single catch-all cluster produced when
	// clustering cannot run.
	FallbackName = "General News"

	articlesPerCluster = 20
)

type Options struct {
	MinClusters   int
	MaxClusters   int
	LexicalWeight float64
	Seed          int64
	MaxIterations int
}

// Document is one article prepared for clustering.
type Document struct {
	Title   string
	Text    string
	Dense   []float64
	Lexical []float64
}

// Group is one topic cluster over document indexes.
type Group struct {
	Name    string
	Members []int
}

type Result struct {
	Groups   []Group
	Fallback bool
}

// Clusterer groups article documents into named topic clusters.
type Clusterer struct {
	opts   Options
	logger zerolog.Logger
}

func NewClusterer(options Options, logger zerolog.Logger) *Clusterer {
	return &Clusterer{
		opts:   normalizeOptions(options),
		logger: logger,
	}
}

// Cluster partitions the documents. requestedK overrides the automatic
// cluster count when positive; both are clamped to the document count. Every
// failure degrades to a single catch-all group so a batch always clusters.
func (c *Clusterer) Cluster(documents []Document, requestedK int) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("clusterer is not initialized")
	}
	if len(documents) == 0 {
		return Result{}, fmt.Errorf("no documents to cluster")
	}

	k := c.selectK(len(documents), requestedK)
	if k <= 1 {
		return c.fallback(documents), nil
	}

	features, err := fuseFeatures(documents, c.opts.LexicalWeight)
	if err != nil {
		c.logger.Warn().Err(err).Msg("feature fusion failed, using single-cluster fallback")
		return c.fallback(documents), nil
	}

	assignments, err := kMeans(features, k, c.opts.Seed, c.opts.MaxIterations)
	if err != nil {
		c.logger.Warn().Err(err).Int("k", k).Msg("kmeans failed, using single-cluster fallback")
		return c.fallback(documents), nil
	}

	members := make([][]int, k)
	for i, assignment := range assignments {
		members[assignment] = append(members[assignment], i)
	}

	groups := make([]Group, 0, k)
	for _, group := range members {
		if len(group) == 0 {
			continue
		}
		groups = append(groups, Group{
			Name:    nameGroup(documents, group, len(groups)),
			Members: group,
		})
	}
	if len(groups) == 0 {
		return c.fallback(documents), nil
	}
	return Result{Groups: groups}, nil
}

func (c *Clusterer) selectK(documentCount, requestedK int) int {
	if requestedK > 0 {
		return min(requestedK, documentCount)
	}
	k := documentCount / articlesPerCluster
	if k < c.opts.MinClusters {
		k = c.opts.MinClusters
	}
	if k > c.opts.MaxClusters {
		k = c.opts.MaxClusters
	}
	return min(k, documentCount)
}

func (c *Clusterer) fallback(documents []Document) Result {
	members := make([]int, len(documents))
	for i := range documents {
		members[i] = i
	}
	return Result{
		Groups:   []Group{{Name: FallbackName, Members: members}},
		Fallback: true,
	}
}

// fuseFeatures concatenates each document's dense embedding with its lexical
// vector scaled down by lexicalWeight.
func fuseFeatures(documents []Document, lexicalWeight float64) (*mat.Dense, error) {
	denseDims := len(documents[0].Dense)
	lexicalDims := len(documents[0].Lexical)
	if denseDims == 0 && lexicalDims == 0 {
		return nil, fmt.Errorf("documents carry no features")
	}

	features := mat.NewDense(len(documents), denseDims+lexicalDims, nil)
	for i, document := range documents {
		if len(document.Dense) != denseDims || len(document.Lexical) != lexicalDims {
			return nil, fmt.Errorf("document %d feature dimensions disagree", i)
		}
		for j, v := range document.Dense {
			features.Set(i, j, v)
		}
		for j, v := range document.Lexical {
			features.Set(i, denseDims+j, v*lexicalWeight)
		}
	}
	return features, nil
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.MinClusters <= 0 {
		normalized.MinClusters = DefaultMinClusters
	}
	if normalized.MaxClusters < normalized.MinClusters {
		normalized.MaxClusters = DefaultMaxClusters
	}
	if normalized.LexicalWeight <= 0 {
		normalized.LexicalWeight = DefaultLexicalWeight
	}
	if normalized.Seed == 0 {
		normalized.Seed = DefaultSeed
	}
	if normalized.MaxIterations <= 0 {
		normalized.MaxIterations = defaultMaxIterations
	}
	return normalized
}
