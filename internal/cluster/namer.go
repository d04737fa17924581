package cluster

import (
	"fmt"
	"sort"
	"strings"

	"horse.fit/infact/internal/feature"
)

const nameTermCount = 3

// nameGroup derives a display name from the most frequent member terms,
// weighing title tokens double. Falls back to a positional name when no
// usable terms survive tokenization.
func nameGroup(documents []Document, members []int, position int) string {
	counts := make(map[string]int)
	for _, index := range members {
		for _, token := range feature.Tokenize(documents[index].Title) {
			counts[token] += 2
		}
		for _, token := range feature.Tokenize(documents[index].Text) {
			counts[token]++
		}
	}
	if len(counts) == 0 {
		return fmt.Sprintf("Cluster %d", position+1)
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > nameTermCount {
		terms = terms[:nameTermCount]
	}

	for i, term := range terms {
		terms[i] = titleCase(term)
	}
	return strings.Join(terms, " ")
}

func titleCase(term string) string {
	if term == "" {
		return term
	}
	runes := []rune(term)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
