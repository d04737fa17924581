package classify

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	sentences := SplitSentences("The vote passed. Was it close? Hardly! trailing fragment")
	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[0] != "The vote passed." {
		t.Fatalf("unexpected first sentence: %q", sentences[0])
	}
	if sentences[3] != "trailing fragment" {
		t.Fatalf("expected trailing fragment to survive, got %q", sentences[3])
	}
}

func TestClassifyShortSentencesAreDropped(t *testing.T) {
	t.Parallel()

	result := Classify([]string{"Too short. Yes."}, Options{})
	if len(result.Facts) != 0 || len(result.Musings) != 0 {
		t.Fatalf("expected everything below the length floor to be dropped, got %+v", result)
	}
}

func TestClassifyNumericSentenceIsFact(t *testing.T) {
	t.Parallel()

	result := Classify([]string{"The agency reported that 14 percent of applications were rejected last quarter."}, Options{})
	if len(result.Facts) != 1 {
		t.Fatalf("expected one fact, got %+v", result)
	}
}

func TestClassifyOpinionSentenceIsMusing(t *testing.T) {
	t.Parallel()

	result := Classify([]string{"Frankly, critics argue this might be a terrible and shameful outcome for everyone involved."}, Options{})
	if len(result.Musings) != 1 {
		t.Fatalf("expected one musing, got %+v", result)
	}
	if len(result.Facts) != 0 {
		t.Fatalf("expected no facts, got %v", result.Facts)
	}
}

func TestClassifyContextBeatsOpinion(t *testing.T) {
	t.Parallel()

	// Context cue and opinion cue in the same sentence: context wins.
	result := Classify([]string{"Meanwhile, observers believe the dispute could drag on for quite a while longer."}, Options{})
	if result.Context == "" {
		t.Fatalf("expected a context passage, got %+v", result)
	}
	if len(result.Musings) != 0 {
		t.Fatalf("expected no musings, got %v", result.Musings)
	}
}

func TestClassifyBackgroundCue(t *testing.T) {
	t.Parallel()

	result := Classify([]string{"Historically, the dispute over the border region goes back many generations of unresolved talks."}, Options{})
	if result.Background == "" {
		t.Fatalf("expected a background passage, got %+v", result)
	}
}

func TestClassifyUndecidedSentenceDefaultsToFact(t *testing.T) {
	t.Parallel()

	result := Classify([]string{"Many people gathered near the old harbor throughout the quiet evening hours."}, Options{})
	if len(result.Facts) != 1 {
		t.Fatalf("expected the undecided sentence to count as a fact, got %+v", result)
	}
}

func TestClassifyRespectsCaps(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("The committee approved 7 new measures during the extended session. ", 10)
	result := Classify([]string{text}, Options{MaxFacts: 3})
	if len(result.Facts) != 3 {
		t.Fatalf("expected facts capped at 3, got %d", len(result.Facts))
	}
}

func TestPolarityBounds(t *testing.T) {
	t.Parallel()

	if got := Polarity("crisis collapse disaster"); got != -1 {
		t.Fatalf("expected saturated negative polarity, got %v", got)
	}
	if got := Polarity(""); got != 0 {
		t.Fatalf("expected zero polarity for empty input, got %v", got)
	}
	if got := Polarity("the train left the station"); got != 0 {
		t.Fatalf("expected neutral polarity, got %v", got)
	}
}

func TestContainsEntityShape(t *testing.T) {
	t.Parallel()

	if !containsEntityShape("Officials said Angela Merkel would attend the summit") {
		t.Fatalf("expected consecutive capitalized words to register")
	}
	if containsEntityShape("Sentence Starts capitalized but nothing else follows") {
		t.Fatalf("expected leading capitalization alone not to register")
	}
}
