package classify

import (
	"horse.fit/infact/internal/feature"
)

// DefaultDedupThreshold is the similarity at which two bullets are treated
// as duplicates.
const DefaultDedupThreshold = 0.8

// DedupBullets collapses near-duplicate bullets greedily from left to right.
// Each anchor absorbs every later bullet scoring at or above threshold; the
// longest string of the group survives as its representative. The returned
// scores align with the representatives: mean match similarity of the group,
// or 1.0 for singletons. Anchor order is preserved.
func DedupBullets(bullets []string, threshold float64) ([]string, []float64) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}
	if len(bullets) <= 1 {
		scores := make([]float64, len(bullets))
		for i := range scores {
			scores[i] = 1.0
		}
		return append([]string(nil), bullets...), scores
	}

	similarity := bulletSimilarityFunc(bullets)

	visited := make([]bool, len(bullets))
	var kept []string
	var scores []float64

	for i := range bullets {
		if visited[i] {
			continue
		}
		visited[i] = true

		representative := bullets[i]
		var matchScores []float64
		for j := i + 1; j < len(bullets); j++ {
			if visited[j] {
				continue
			}
			score := similarity(i, j)
			if score < threshold {
				continue
			}
			visited[j] = true
			matchScores = append(matchScores, score)
			if len(bullets[j]) > len(representative) {
				representative = bullets[j]
			}
		}

		kept = append(kept, representative)
		scores = append(scores, groupScore(matchScores))
	}
	return kept, scores
}

// bulletSimilarityFunc prefers TF-IDF cosine over the bullet list itself and
// falls back to token-set Jaccard when the vocabulary comes up empty.
func bulletSimilarityFunc(bullets []string) func(i, j int) float64 {
	vectorizer := feature.FitLexical(bullets)
	if vectorizer.Dimensions() > 0 {
		vectors := vectorizer.TransformAll(bullets)
		return func(i, j int) float64 {
			return feature.Cosine(vectors[i], vectors[j])
		}
	}

	tokenSets := make([]map[string]struct{}, len(bullets))
	for i, bullet := range bullets {
		set := make(map[string]struct{})
		for _, token := range feature.Tokenize(bullet) {
			set[token] = struct{}{}
		}
		tokenSets[i] = set
	}
	return func(i, j int) float64 {
		return jaccard(tokenSets[i], tokenSets[j])
	}
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func groupScore(matchScores []float64) float64 {
	if len(matchScores) == 0 {
		return 1.0
	}
	var sum float64
	for _, score := range matchScores {
		sum += score
	}
	return sum / float64(len(matchScores))
}
