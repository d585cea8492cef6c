package phone

import "testing"

func TestParseInternationalAndLocal(t *testing.T) {
	got, ok := Parse("+32 470 12 34 56", "")
	if !ok || got != "+32470123456" {
		t.Fatalf("expected +32470123456, got %q (ok=%v)", got, ok)
	}

	got, ok = Parse("0470 12 34 56", "BE")
	if !ok || got != "+32470123456" {
		t.Fatalf("expected local number to normalize, got %q (ok=%v)", got, ok)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, ok := Parse("not a phone", "BE"); ok {
		t.Fatalf("expected garbage input to be rejected")
	}
	if got := NormalizeE164("  12  "); got != "12" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
}
