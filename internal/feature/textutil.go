package feature

import (
	"hash/fnv"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {},
	"and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {},
	"but": {}, "by": {}, "can": {}, "could": {}, "for": {}, "from": {},
	"had": {}, "has": {}, "have": {}, "he": {}, "her": {}, "his": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "more": {},
	"new": {}, "news": {}, "not": {}, "of": {}, "on": {}, "one": {},
	"or": {}, "other": {}, "our": {}, "over": {}, "said": {}, "she": {},
	"says": {}, "so": {}, "some": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "there": {}, "they": {}, "this": {}, "to": {},
	"up": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"which": {}, "who": {}, "will": {}, "with": {}, "would": {}, "you": {},
}

// NormalizeText lowercases, strips punctuation and collapses whitespace.
func NormalizeText(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return ""
	}

	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(builder.String())
}

// Tokenize splits normalized text into lowercase terms longer than two runes,
// with stopwords removed.
func Tokenize(text string) []string {
	fields := strings.Fields(NormalizeText(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) <= 2 {
			continue
		}
		if IsStopword(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

func hashToken64(token string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return h.Sum64()
}

// TruncateRunes caps text at limit runes, preserving rune boundaries.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
