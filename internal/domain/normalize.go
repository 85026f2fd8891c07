package domain

import "strings"

// MaxNormalizedLen is the maximum text length in runes after normalization.
const MaxNormalizedLen = 32000

// NormalizeText collapses all whitespace runs (including newlines) into single
// spaces, trims the ends and truncates to MaxNormalizedLen runes.
func NormalizeText(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	runes := []rune(normalized)
	if len(runes) > MaxNormalizedLen {
		return string(runes[:MaxNormalizedLen])
	}
	return normalized
}
