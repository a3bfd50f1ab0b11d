package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippetShortTextPassesThrough(t *testing.T) {
	text := "short description"
	if got := snippet(text, "desc"); got != text {
		t.Errorf("short text must pass through unchanged, got %q", got)
	}
}

func TestSnippetWindowsAroundKeyword(t *testing.T) {
	text := strings.Repeat("a", 3000) + "NEEDLE" + strings.Repeat("b", 3000)

	got := snippet(text, "needle")
	if !strings.Contains(got, "NEEDLE") {
		t.Fatal("keyword hit missing from snippet")
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Error("cut edges must carry ellipses")
	}
	if n := len([]rune(got)); n > 2*snippetRadius+6 {
		t.Errorf("snippet too long: %d runes", n)
	}
}

func TestSnippetWithoutHitKeepsLeadingWindow(t *testing.T) {
	text := "START" + strings.Repeat("x", 5000)

	got := snippet(text, "absent")
	if !strings.HasPrefix(got, "START") {
		t.Errorf("expected leading window, got %q", got[:20])
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("trailing cut must carry an ellipsis")
	}
}

func TestSnippetIsRuneSafe(t *testing.T) {
	text := strings.Repeat("知", 2500) + "キーワード" + strings.Repeat("識", 2500)

	got := snippet(text, "キーワード")
	for _, r := range got {
		if r == '�' {
			t.Fatal("snippet split a multi-byte character")
		}
	}
	if !strings.Contains(got, "キーワード") {
		t.Error("keyword missing from CJK snippet")
	}
}

func TestSnippetCenterSurvivesLengthChangingCase(t *testing.T) {
	// "İ" grows when lowercased, so a byte-offset search on a lowered copy
	// would drift the window past the hit and could cut mid-rune.
	text := strings.Repeat("İ", 2100) + "NEEDLE" + strings.Repeat("z", 2100)

	got := snippet(text, "needle")
	if !strings.Contains(got, "NEEDLE") {
		t.Fatal("keyword hit missing from snippet")
	}
	if !utf8.ValidString(got) {
		t.Error("snippet cut a character in half")
	}
}
