package merge

import "sort"

// ClusterDoc is the in-memory cluster document the merge arithmetic works
// on, decoupled from row encoding.
type ClusterDoc struct {
	Name             string
	Keywords         []string
	Facts            []string
	Musings          []string
	Context          string
	Background       string
	GeneratedArticle string
	ImageURL         string
	Embedding        []float64
	Sources          []string
	SourceCounts     map[string]int
	ArticleURLs      []string
	ArticlesCount    int
}

// MergeDocs folds an incoming candidate document into a stored one and
// returns the merged document. The stored side keeps its name and creation
// identity; set-valued fields are unioned with stored entries first, the
// centroid is averaged weighted by each side's member count, and the
// narrative is replaced only by a strictly longer one.
//
// Membership-derived fields (ArticlesCount, SourceCounts) keep the stored
// values: summing them would double-count articles the cluster already
// holds, so the engine recounts both from the member table after attaching.
func MergeDocs(stored, incoming ClusterDoc) ClusterDoc {
	merged := stored

	merged.Keywords = unionKeywords(stored.Keywords, incoming.Keywords)
	merged.Facts = unionStrings(stored.Facts, incoming.Facts)
	merged.Musings = unionStrings(stored.Musings, incoming.Musings)
	merged.Sources = unionStrings(stored.Sources, incoming.Sources)
	merged.ArticleURLs = unionStrings(stored.ArticleURLs, incoming.ArticleURLs)
	merged.Embedding = mergeEmbeddings(stored.Embedding, incoming.Embedding, stored.ArticlesCount, incoming.ArticlesCount)

	if len(incoming.GeneratedArticle) > len(stored.GeneratedArticle) {
		merged.GeneratedArticle = incoming.GeneratedArticle
	}
	if merged.Context == "" {
		merged.Context = incoming.Context
	}
	if merged.Background == "" {
		merged.Background = incoming.Background
	}
	if merged.ImageURL == "" {
		merged.ImageURL = incoming.ImageURL
	}
	return merged
}

func unionKeywords(stored, incoming []string) []string {
	union := unionStrings(stored, incoming)
	sort.Strings(union)
	if len(union) > KeywordLimit {
		union = union[:KeywordLimit]
	}
	return union
}

// unionStrings keeps stored entries first, then unseen incoming entries,
// deduplicating on exact match.
func unionStrings(stored, incoming []string) []string {
	seen := make(map[string]struct{}, len(stored)+len(incoming))
	union := make([]string, 0, len(stored)+len(incoming))
	for _, value := range stored {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		union = append(union, value)
	}
	for _, value := range incoming {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		union = append(union, value)
	}
	return union
}

// mergeEmbeddings averages the two centroids weighted by member counts. On
// dimension mismatch the incoming embedding wins outright.
func mergeEmbeddings(stored, incoming []float64, storedCount, incomingCount int) []float64 {
	if len(stored) == 0 {
		return incoming
	}
	if len(incoming) == 0 {
		return stored
	}
	if len(stored) != len(incoming) {
		return incoming
	}

	storedWeight := float64(max(storedCount, 1))
	incomingWeight := float64(max(incomingCount, 1))
	total := storedWeight + incomingWeight

	centroid := make([]float64, len(stored))
	for i := range stored {
		centroid[i] = (stored[i]*storedWeight + incoming[i]*incomingWeight) / total
	}
	return centroid
}
