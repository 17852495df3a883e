package textutil

import (
	"strings"
	"testing"
)

func TestCompactCollapsesWhitespace(t *testing.T) {
	got := Compact("  index \n out\tof   range ", 100)
	if got != "index out of range" {
		t.Errorf("expected collapsed string, got %q", got)
	}
}

func TestCompactShortStringUnchanged(t *testing.T) {
	if got := Compact("short", 180); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestCompactNeverExceedsLimit(t *testing.T) {
	long := strings.Repeat("segfault ", 60)
	for _, limit := range []int{120, 180, 200, 220, 260} {
		got := Compact(long, limit)
		if len(got) > limit {
			t.Errorf("limit %d: result length %d exceeds limit", limit, len(got))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("limit %d: truncated result should end with ellipsis, got %q", limit, got)
		}
	}
}

func TestCompactExactLimit(t *testing.T) {
	s := strings.Repeat("a", 180)
	if got := Compact(s, 180); got != s {
		t.Errorf("string at exactly the limit should be unchanged")
	}
}

func TestCompactEmpty(t *testing.T) {
	if got := Compact("", 180); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestFirstTokens(t *testing.T) {
	got := FirstTokens("one two three four five six seven eight nine ten", 8)
	if got != "one two three four five six seven eight" {
		t.Errorf("unexpected token prefix: %q", got)
	}

	if got := FirstTokens("just two", 8); got != "just two" {
		t.Errorf("short input should pass through, got %q", got)
	}

	if got := FirstTokens("   ", 8); got != "" {
		t.Errorf("blank input should yield empty string, got %q", got)
	}
}
