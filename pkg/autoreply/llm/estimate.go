package llm

import "unicode"

// Characters-per-token heuristics. CJK scripts carry far more meaning per
// character than Latin text, so they tokenize denser.
const (
	cjkCharsPerToken   = 1.5
	latinCharsPerToken = 4.0
)

// EstimateTokens approximates the token count of text for offline
// bookkeeping (budgets, dashboards). Request-path accounting always uses
// the provider-reported usage instead.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}

	estimate := float64(cjk)/cjkCharsPerToken + float64(other)/latinCharsPerToken
	tokens := int(estimate)
	if estimate > float64(tokens) {
		tokens++
	}
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
