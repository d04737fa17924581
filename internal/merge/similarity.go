package merge

import "horse.fit/infact/internal/feature"

const (
	// DefaultEmbeddingWeight and DefaultKeywordWeight blend the two
	// fingerprint signals into one similarity score.
	DefaultEmbeddingWeight = 0.6
	DefaultKeywordWeight   = 0.4

	// DefaultThreshold is the merge decision boundary.
	DefaultThreshold = 0.8
)

// KeywordOverlap scores two keyword sets as |intersection| over the larger
// set size, so a small set cannot trivially saturate against a large one.
func KeywordOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, keyword := range a {
		set[keyword] = struct{}{}
	}
	intersection := 0
	for _, keyword := range b {
		if _, ok := set[keyword]; ok {
			intersection++
		}
	}

	larger := max(len(set), len(b))
	return float64(intersection) / float64(larger)
}

// BlendedScore combines embedding cosine and keyword overlap. A dimension
// mismatch or zero vector zeroes the cosine term rather than failing the
// comparison.
func BlendedScore(embeddingA, embeddingB []float64, keywordsA, keywordsB []string, embeddingWeight, keywordWeight float64) float64 {
	if embeddingWeight <= 0 && keywordWeight <= 0 {
		embeddingWeight = DefaultEmbeddingWeight
		keywordWeight = DefaultKeywordWeight
	}
	cosine := feature.Cosine(embeddingA, embeddingB)
	if cosine < 0 {
		cosine = 0
	}
	return embeddingWeight*cosine + keywordWeight*KeywordOverlap(keywordsA, keywordsB)
}
