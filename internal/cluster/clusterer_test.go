package cluster

import (
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func twoBlobDocuments() []Document {
	// Two well-separated blobs in a 2D embedding space.
	docs := make([]Document, 0, 6)
	for _, v := range [][]float64{{0.0, 0.1}, {0.1, 0.0}, {0.05, 0.05}} {
		docs = append(docs, Document{
			Title: "markets rally continues strongly",
			Text:  "markets rally continues strongly across exchanges",
			Dense: v,
		})
	}
	for _, v := range [][]float64{{5.0, 5.1}, {5.1, 5.0}, {5.05, 5.05}} {
		docs = append(docs, Document{
			Title: "wildfire evacuation orders expand",
			Text:  "wildfire evacuation orders expand overnight",
			Dense: v,
		})
	}
	return docs
}

func TestClusterSeparatesBlobs(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{MinClusters: 2, MaxClusters: 2}, zerolog.Nop())
	result, err := clusterer.Cluster(twoBlobDocuments(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fallback {
		t.Fatalf("did not expect fallback")
	}
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	for _, group := range result.Groups {
		if len(group.Members) != 3 {
			t.Fatalf("expected 3 members per group, got %v", group.Members)
		}
		if group.Name == "" {
			t.Fatalf("expected a derived group name")
		}
	}
}

func TestClusterIsDeterministic(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{Seed: 42}, zerolog.Nop())
	first, err := clusterer.Cluster(twoBlobDocuments(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := clusterer.Cluster(twoBlobDocuments(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Groups) != len(second.Groups) {
		t.Fatalf("group counts differ: %d vs %d", len(first.Groups), len(second.Groups))
	}
	for i := range first.Groups {
		if first.Groups[i].Name != second.Groups[i].Name {
			t.Fatalf("group %d name differs: %q vs %q", i, first.Groups[i].Name, second.Groups[i].Name)
		}
		if len(first.Groups[i].Members) != len(second.Groups[i].Members) {
			t.Fatalf("group %d member counts differ", i)
		}
		for j := range first.Groups[i].Members {
			if first.Groups[i].Members[j] != second.Groups[i].Members[j] {
				t.Fatalf("group %d member %d differs", i, j)
			}
		}
	}
}

func TestClusterRequestedKIsClamped(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{}, zerolog.Nop())
	docs := twoBlobDocuments()
	result, err := clusterer.Cluster(docs, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Groups) > len(docs) {
		t.Fatalf("more groups than documents: %d", len(result.Groups))
	}
	total := 0
	for _, group := range result.Groups {
		total += len(group.Members)
	}
	if total != len(docs) {
		t.Fatalf("expected every document assigned exactly once, got %d", total)
	}
}

func TestClusterFallsBackWithoutFeatures(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{}, zerolog.Nop())
	docs := []Document{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}
	result, err := clusterer.Cluster(docs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fallback {
		t.Fatalf("expected fallback result")
	}
	if len(result.Groups) != 1 || result.Groups[0].Name != FallbackName {
		t.Fatalf("expected single %q group, got %+v", FallbackName, result.Groups)
	}
	if len(result.Groups[0].Members) != 3 {
		t.Fatalf("expected all documents in the fallback group")
	}
}

func TestClusterRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{}, zerolog.Nop())
	if _, err := clusterer.Cluster(nil, 0); err == nil {
		t.Fatalf("expected an error for empty input")
	}
}

func TestSelectKAutomatic(t *testing.T) {
	t.Parallel()

	clusterer := NewClusterer(Options{MinClusters: 3, MaxClusters: 15}, zerolog.Nop())

	if got := clusterer.selectK(10, 0); got != 3 {
		t.Fatalf("expected floor of 3 for small batches, got %d", got)
	}
	if got := clusterer.selectK(100, 0); got != 5 {
		t.Fatalf("expected 100/20=5, got %d", got)
	}
	if got := clusterer.selectK(1000, 0); got != 15 {
		t.Fatalf("expected ceiling of 15, got %d", got)
	}
	if got := clusterer.selectK(2, 0); got != 2 {
		t.Fatalf("expected clamp to document count, got %d", got)
	}
	if got := clusterer.selectK(10, 4); got != 4 {
		t.Fatalf("expected requested k to win, got %d", got)
	}
}

func TestKMeansAssignsEveryPoint(t *testing.T) {
	t.Parallel()

	data := mat.NewDense(4, 2, []float64{
		0, 0,
		0.1, 0,
		8, 8,
		8.1, 8,
	})
	assignments, err := kMeans(data, 2, 42, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 4 {
		t.Fatalf("expected 4 assignments, got %d", len(assignments))
	}
	if assignments[0] != assignments[1] || assignments[2] != assignments[3] {
		t.Fatalf("expected neighbors to share a cluster: %v", assignments)
	}
	if assignments[0] == assignments[2] {
		t.Fatalf("expected separated blobs in distinct clusters: %v", assignments)
	}
}

func TestKMeansRejectsInvalidK(t *testing.T) {
	t.Parallel()

	data := mat.NewDense(2, 1, []float64{1, 2})
	if _, err := kMeans(data, 3, 42, 0); err == nil {
		t.Fatalf("expected an error when k exceeds points")
	}
	if _, err := kMeans(data, 0, 42, 0); err == nil {
		t.Fatalf("expected an error for k=0")
	}
}

func TestNameGroupUsesFrequentTerms(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{Title: "election results announced", Text: "election officials counted ballots through the night"},
		{Title: "election turnout climbs", Text: "turnout climbs in the capital as election day closes"},
	}
	name := nameGroup(docs, []int{0, 1}, 0)
	if name == "" {
		t.Fatalf("expected a non-empty name")
	}
	if got := name; got[:1] != "E" && got[:1] != "T" {
		t.Fatalf("expected title-cased leading term, got %q", got)
	}
}

func TestNameGroupFallsBackToPosition(t *testing.T) {
	t.Parallel()

	docs := []Document{{Title: "a b", Text: "of to in"}}
	if got := nameGroup(docs, []int{0}, 4); got != "Cluster 5" {
		t.Fatalf("expected positional fallback name, got %q", got)
	}
}
