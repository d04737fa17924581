package feature

import (
	"math"
	"sort"
)

const defaultVocabularyLimit = 1000

// LexicalVectorizer builds batch-local TF-IDF vectors. The vocabulary is
// fitted on one batch of documents and is not reusable across batches.
type LexicalVectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// FitLexical tokenizes the documents, caps the vocabulary at the most
// frequent terms by document frequency and computes smoothed idf weights.
func FitLexical(documents []string) *LexicalVectorizer {
	return fitLexicalLimited(documents, defaultVocabularyLimit)
}

func fitLexicalLimited(documents []string, vocabularyLimit int) *LexicalVectorizer {
	docFreq := make(map[string]int)
	for _, document := range documents {
		seen := make(map[string]struct{})
		for _, token := range Tokenize(document) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			docFreq[token]++
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if vocabularyLimit > 0 && len(terms) > vocabularyLimit {
		terms = terms[:vocabularyLimit]
	}

	vectorizer := &LexicalVectorizer{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	total := float64(len(documents))
	for i, term := range terms {
		vectorizer.vocabulary[term] = i
		vectorizer.idf[i] = math.Log((1+total)/(1+float64(docFreq[term]))) + 1
	}
	return vectorizer
}

// Dimensions reports the fitted vocabulary size.
func (v *LexicalVectorizer) Dimensions() int {
	if v == nil {
		return 0
	}
	return len(v.vocabulary)
}

// Transform produces an L2-normalized TF-IDF vector for one document.
func (v *LexicalVectorizer) Transform(document string) []float64 {
	if v == nil || len(v.vocabulary) == 0 {
		return nil
	}

	vec := make([]float64, len(v.vocabulary))
	for _, token := range Tokenize(document) {
		index, ok := v.vocabulary[token]
		if !ok {
			continue
		}
		vec[index]++
	}
	for i := range vec {
		vec[i] *= v.idf[i]
	}
	l2Normalize(vec)
	return vec
}

// TransformAll vectorizes every document with the fitted vocabulary.
func (v *LexicalVectorizer) TransformAll(documents []string) [][]float64 {
	vectors := make([][]float64, len(documents))
	for i, document := range documents {
		vectors[i] = v.Transform(document)
	}
	return vectors
}
