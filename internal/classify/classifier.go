package classify

import (
	"math"
	"strings"
	"unicode"
)

const (
	DefaultMaxFacts          = 15
	DefaultMaxMusings        = 10
	DefaultMaxContext        = 10
	DefaultMaxBackground     = 10
	DefaultMinSentenceLength = 20

	polarityThreshold = 0.3
)

type Options struct {
	MaxFacts          int
	MaxMusings        int
	MaxContext        int
	MaxBackground     int
	MinSentenceLength int
}

// Classification holds the per-category sentences extracted from a cluster's
// member articles. Context and Background are joined into single passages.
type Classification struct {
	Facts      []string
	Musings    []string
	Context    string
	Background string
}

// Classify splits the texts into sentences and assigns each to exactly one
// category. Precedence is fixed: a factual indicator wins over a context cue,
// which wins over a background cue, which wins over an opinion indicator;
// undecided sentences count as facts. Categories are capped in document
// order.
func Classify(texts []string, options Options) Classification {
	opts := normalizeOptions(options)

	var facts, musings, contextSentences, backgroundSentences []string
	for _, text := range texts {
		for _, sentence := range SplitSentences(text) {
			if len([]rune(sentence)) < opts.MinSentenceLength {
				continue
			}

			switch categorize(sentence) {
			case categoryFact:
				if len(facts) < opts.MaxFacts {
					facts = append(facts, sentence)
				}
			case categoryContext:
				if len(contextSentences) < opts.MaxContext {
					contextSentences = append(contextSentences, sentence)
				}
			case categoryBackground:
				if len(backgroundSentences) < opts.MaxBackground {
					backgroundSentences = append(backgroundSentences, sentence)
				}
			case categoryMusing:
				if len(musings) < opts.MaxMusings {
					musings = append(musings, sentence)
				}
			}
		}
	}

	return Classification{
		Facts:      facts,
		Musings:    musings,
		Context:    strings.Join(contextSentences, " "),
		Background: strings.Join(backgroundSentences, " "),
	}
}

type category int

const (
	categoryFact category = iota
	categoryContext
	categoryBackground
	categoryMusing
)

func categorize(sentence string) category {
	lowered := strings.ToLower(sentence)

	switch {
	case factualScore(sentence, lowered) > 0:
		return categoryFact
	case hasCue(lowered, contextCues):
		return categoryContext
	case hasCue(lowered, backgroundCues):
		return categoryBackground
	case opinionScore(lowered) > 0:
		return categoryMusing
	default:
		return categoryFact
	}
}

func factualScore(sentence, lowered string) int {
	score := 0
	for _, cue := range factualCues {
		if strings.Contains(lowered, cue) {
			score++
		}
	}
	if containsNumber(sentence) {
		score++
	}
	if containsEntityShape(sentence) {
		score++
	}
	return score
}

func opinionScore(lowered string) int {
	score := 0
	for _, cue := range opinionCues {
		if strings.Contains(lowered, cue) {
			score++
		}
	}
	if math.Abs(Polarity(lowered)) > polarityThreshold {
		score++
	}
	return score
}

func hasCue(lowered string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

// Polarity is a crude lexicon sentiment in [-1, 1]: hit balance over token
// count, scaled so a single strong word in a short sentence registers.
func Polarity(lowered string) float64 {
	tokens := strings.Fields(lowered)
	if len(tokens) == 0 {
		return 0
	}

	balance := 0
	for _, token := range tokens {
		word := strings.Trim(token, ".,;:!?\"'()")
		if _, ok := positiveWords[word]; ok {
			balance++
		}
		if _, ok := negativeWords[word]; ok {
			balance--
		}
	}

	polarity := float64(balance) / float64(len(tokens)) * 10
	if polarity > 1 {
		return 1
	}
	if polarity < -1 {
		return -1
	}
	return polarity
}

func containsNumber(sentence string) bool {
	for _, r := range sentence {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// containsEntityShape looks for two consecutive capitalized words past the
// sentence start, a cheap stand-in for named entity recognition.
func containsEntityShape(sentence string) bool {
	words := strings.Fields(sentence)
	for i := 1; i < len(words)-1; i++ {
		if isCapitalized(words[i]) && isCapitalized(words[i+1]) {
			return true
		}
	}
	return false
}

func isCapitalized(word string) bool {
	trimmed := strings.Trim(word, ".,;:!?\"'()")
	runes := []rune(trimmed)
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1])
}

// SplitSentences breaks text on terminal punctuation, trimming whitespace
// and dropping empties.
func SplitSentences(text string) []string {
	var sentences []string
	var builder strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(builder.String())
		builder.Reset()
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	for _, r := range text {
		builder.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return sentences
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.MaxFacts <= 0 {
		normalized.MaxFacts = DefaultMaxFacts
	}
	if normalized.MaxMusings <= 0 {
		normalized.MaxMusings = DefaultMaxMusings
	}
	if normalized.MaxContext <= 0 {
		normalized.MaxContext = DefaultMaxContext
	}
	if normalized.MaxBackground <= 0 {
		normalized.MaxBackground = DefaultMaxBackground
	}
	if normalized.MinSentenceLength <= 0 {
		normalized.MinSentenceLength = DefaultMinSentenceLength
	}
	return normalized
}
