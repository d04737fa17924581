package reader

import "testing"

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestCleanTextEmptyInput(t *testing.T) {
	t.Parallel()

	if got := CleanText("  \n\t \r\n "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
