package sanitize

import "testing"

func TestTextStripsMarkupAndCollapsesSpaces(t *testing.T) {
	got := Text("  brake   <b>pads</b> &lt;script&gt;alert(1)&lt;/script&gt; worn ")
	if got != "brake pads alert(1) worn" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestTextKeepsNewlines(t *testing.T) {
	got := Text("line one\nline   two")
	if got != "line one\nline two" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestTextPtrBlankBecomesNil(t *testing.T) {
	blank := "  <br> "
	if TextPtr(&blank) != nil {
		t.Fatalf("expected nil for blank input")
	}
	if TextPtr(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("éééé", 2); got != "éé" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("short input should be unchanged, got %q", got)
	}
}

func TestRegistrationUppercasesAndDropsSpaces(t *testing.T) {
	if got := Registration(" 1-abc 234 "); got != "1-ABC234" {
		t.Fatalf("unexpected registration %q", got)
	}
}
