// Package textutil holds the shared text normalization used by the
// triage, context, and digest layers: whitespace collapse plus
// ellipsis truncation with a fixed character limit.
package textutil

import "strings"

// Compact collapses all whitespace runs in s to single spaces and
// truncates the result to limit characters, replacing the tail with
// "..." when truncation occurs. A string already within the limit is
// returned unchanged after collapsing.
func Compact(s string, limit int) string {
	clean := strings.Join(strings.Fields(s), " ")
	if len(clean) <= limit {
		return clean
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return clean[:cut] + "..."
}

// FirstTokens returns the first n whitespace-separated tokens of s
// joined by single spaces.
func FirstTokens(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
