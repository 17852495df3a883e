package audit

import (
	"fmt"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	trail := NewTrail()

	trail.Record(EventQuestionReceived, "asker-1", "coord-1", "question q-1 received", nil)
	trail.Record(EventTriage, "coord-1", "", "q-1 fast-lane", map[string]string{"lane": "fast-lane"})
	trail.Record(EventDelegate, "coord-1", "spec-1", "q-1 delegated", nil)

	recent := trail.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].EventType != EventDelegate {
		t.Errorf("recent must be newest first, got %s", recent[0].EventType)
	}
	if recent[0].ID == "" || recent[0].Timestamp.IsZero() {
		t.Error("entries must carry id and timestamp")
	}
}

func TestByType(t *testing.T) {
	trail := NewTrail()
	trail.Record(EventPing, "coord-1", "spec-1", "heartbeat", nil)
	trail.Record(EventPong, "spec-1", "coord-1", "ok", nil)
	trail.Record(EventPing, "coord-1", "spec-2", "heartbeat", nil)

	pings := trail.ByType(EventPing)
	if len(pings) != 2 {
		t.Fatalf("expected 2 ping entries, got %d", len(pings))
	}
	if pings[0].ToAgent != "spec-1" {
		t.Errorf("ByType must preserve insertion order, got %s first", pings[0].ToAgent)
	}
}

func TestTrailBounded(t *testing.T) {
	trail := NewTrail()
	trail.max = 10

	for i := 0; i < 25; i++ {
		trail.Record(EventRoute, "coord-1", "", fmt.Sprintf("decision %d", i), nil)
	}
	if trail.Len() != 10 {
		t.Fatalf("expected 10 retained entries, got %d", trail.Len())
	}
	if got := trail.Recent(1)[0].Summary; got != "decision 24" {
		t.Errorf("newest entry must survive trimming, got %q", got)
	}
}
