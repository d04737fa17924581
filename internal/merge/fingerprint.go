package merge

import (
	"sort"
	"strings"

	"horse.fit/infact/internal/feature"
)

const (
	// KeywordLimit caps the fingerprint keyword set.
	KeywordLimit = 20

	bodyTruncateRunes = 500

	minNameTokenRunes  = 4
	minFactTokenRunes  = 5
	minTitleTokenRunes = 4
)

// ExtractKeywords builds the keyword half of a cluster fingerprint: name
// tokens, fact tokens and member title tokens above per-source length floors,
// ranked by frequency, capped and returned sorted ascending.
func ExtractKeywords(name string, facts []string, titles []string) []string {
	counts := make(map[string]int)

	countTokens := func(text string, minRunes int, weight int) {
		for _, token := range feature.Tokenize(text) {
			if len([]rune(token)) < minRunes {
				continue
			}
			counts[token] += weight
		}
	}

	countTokens(name, minNameTokenRunes, 2)
	for _, fact := range facts {
		countTokens(fact, minFactTokenRunes, 1)
	}
	for _, title := range titles {
		countTokens(title, minTitleTokenRunes, 1)
	}
	if len(counts) == 0 {
		return nil
	}

	keywords := make([]string, 0, len(counts))
	for keyword := range counts {
		keywords = append(keywords, keyword)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > KeywordLimit {
		keywords = keywords[:KeywordLimit]
	}

	sort.Strings(keywords)
	return keywords
}

// CombinedText assembles the text embedded for a candidate fingerprint:
// name, facts, musings, member titles and bodies truncated per member.
func CombinedText(c Candidate) string {
	parts := make([]string, 0, 2+len(c.Facts)+len(c.Musings)+2*len(c.Articles))
	if name := strings.TrimSpace(c.Name); name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, c.Facts...)
	parts = append(parts, c.Musings...)
	for _, article := range c.Articles {
		if title := strings.TrimSpace(article.Title); title != "" {
			parts = append(parts, title)
		}
		if body := strings.TrimSpace(article.Content); body != "" {
			parts = append(parts, feature.TruncateRunes(body, bodyTruncateRunes))
		}
	}
	return strings.Join(parts, "\n")
}
