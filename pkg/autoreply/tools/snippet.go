package tools

import "unicode"

// snippetRadius is how many characters around the first keyword hit a
// search snippet keeps on each side.
const snippetRadius = 1000

// snippet returns a window of text centered on the first case-insensitive
// occurrence of keyword, ±snippetRadius characters, with ellipses marking
// cut edges. Without a keyword hit it returns the leading window. Windowing
// is rune-safe so multi-byte text never gets split mid-character.
func snippet(text, keyword string) string {
	runes := []rune(text)
	if len(runes) <= 2*snippetRadius {
		return text
	}

	center := 0
	if keyword != "" {
		if idx := runeIndexFold(runes, []rune(keyword)); idx >= 0 {
			center = idx
		}
	}

	start := center - snippetRadius
	if start < 0 {
		start = 0
	}
	end := center + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// runeIndexFold finds the first case-insensitive occurrence of needle in
// haystack, comparing rune by rune. Folding per rune keeps the returned
// offset aligned with haystack; lowercasing whole strings can change byte
// and rune counts (e.g. "İ") and shift the position.
func runeIndexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	folded := make([]rune, len(haystack))
	for i, r := range haystack {
		folded[i] = unicode.ToLower(r)
	}
	target := make([]rune, len(needle))
	for i, r := range needle {
		target[i] = unicode.ToLower(r)
	}

	for i := 0; i+len(target) <= len(folded); i++ {
		match := true
		for j := range target {
			if folded[i+j] != target[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
