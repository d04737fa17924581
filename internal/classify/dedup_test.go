package classify

import "testing"

func TestDedupBulletsKeepsDistinctBullets(t *testing.T) {
	t.Parallel()

	bullets := []string{
		"The central bank raised interest rates by fifty basis points on Tuesday.",
		"Wildfire crews contained the blaze north of the valley overnight.",
	}
	kept, scores := DedupBullets(bullets, 0.8)
	if len(kept) != 2 {
		t.Fatalf("expected both bullets kept, got %v", kept)
	}
	for i, score := range scores {
		if score != 1.0 {
			t.Fatalf("expected singleton score 1.0 at %d, got %v", i, score)
		}
	}
}

func TestDedupBulletsCollapsesNearDuplicates(t *testing.T) {
	t.Parallel()

	bullets := []string{
		"The central bank raised interest rates fifty basis points Tuesday.",
		"The central bank raised interest rates by fifty basis points on Tuesday morning.",
		"Wildfire crews contained the blaze north of the valley overnight.",
	}
	kept, scores := DedupBullets(bullets, 0.6)
	if len(kept) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 bullets, got %v", kept)
	}
	// The longer variant represents the group.
	if kept[0] != bullets[1] {
		t.Fatalf("expected longest duplicate to survive, got %q", kept[0])
	}
	if scores[0] < 0.6 || scores[0] > 1.0 {
		t.Fatalf("expected group score within [0.6, 1.0], got %v", scores[0])
	}
	if scores[1] != 1.0 {
		t.Fatalf("expected singleton score 1.0, got %v", scores[1])
	}
}

func TestDedupBulletsEmptyAndSingle(t *testing.T) {
	t.Parallel()

	kept, scores := DedupBullets(nil, 0.8)
	if len(kept) != 0 || len(scores) != 0 {
		t.Fatalf("expected empty result, got %v %v", kept, scores)
	}

	kept, scores = DedupBullets([]string{"only one"}, 0.8)
	if len(kept) != 1 || scores[0] != 1.0 {
		t.Fatalf("unexpected single-bullet result: %v %v", kept, scores)
	}
}

func TestDedupBulletsPreservesAnchorOrder(t *testing.T) {
	t.Parallel()

	bullets := []string{
		"Parliament passed the budget with a narrow majority vote.",
		"Exports grew strongly through the third quarter of the year.",
		"Imports fell slightly over the same reporting period.",
	}
	kept, _ := DedupBullets(bullets, 0.9)
	if len(kept) != 3 {
		t.Fatalf("expected all bullets kept, got %v", kept)
	}
	for i := range bullets {
		if kept[i] != bullets[i] {
			t.Fatalf("expected order preserved at %d, got %q", i, kept[i])
		}
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	a := map[string]struct{}{"alpha": {}, "beta": {}}
	b := map[string]struct{}{"beta": {}, "gamma": {}}
	if got := jaccard(a, b); got != 1.0/3.0 {
		t.Fatalf("unexpected jaccard: %v", got)
	}
	if got := jaccard(a, map[string]struct{}{}); got != 0 {
		t.Fatalf("expected zero for empty set, got %v", got)
	}
}
