package encode

import "testing"

func TestSanitizeTextStripsControlCharsAndTruncates(t *testing.T) {
	in := "Sample\x00 Title\x7f With Control Chars"
	got := sanitizeText(in, 13)
	want := "Sample Title "
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeTextNoLimit(t *testing.T) {
	in := "plain text, no control characters"
	if got := sanitizeText(in, 0); got != in {
		t.Fatalf("got %q, want %q unchanged", got, in)
	}
}
