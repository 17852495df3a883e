// Package audit keeps an in-memory trail of the decisions an agent
// makes around the question/answer exchange. Entries are bounded and
// never persisted; the trail exists for operators and tests, not for
// recovery.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a trail entry.
type EventType string

const (
	EventQuestionReceived EventType = "question_received"
	EventTriage           EventType = "triage"
	EventRoute            EventType = "route"
	EventDelegate         EventType = "delegate"
	EventAnswer           EventType = "answer"
	EventPing             EventType = "ping"
	EventPong             EventType = "pong"
)

// Entry is one recorded decision.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	FromAgent string            `json:"from_agent"`
	ToAgent   string            `json:"to_agent,omitempty"`
	Summary   string            `json:"summary"`
	Details   map[string]string `json:"details,omitempty"`
}

// Trail is a bounded, concurrency-safe audit log.
type Trail struct {
	entries []Entry
	max     int
	mu      sync.RWMutex
}

const defaultMaxEntries = 1000

// NewTrail creates an empty trail keeping the last 1000 entries.
func NewTrail() *Trail {
	return &Trail{max: defaultMaxEntries}
}

// Record appends an entry, trimming the oldest past the cap.
func (t *Trail) Record(event EventType, fromAgent, toAgent, summary string, details map[string]string) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		EventType: event,
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		Summary:   summary,
		Details:   details,
	}
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.max {
		t.entries = t.entries[len(t.entries)-t.max:]
	}
	return entry
}

// Recent returns up to n entries, newest first.
func (t *Trail) Recent(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(t.entries) - 1; i >= len(t.entries)-n; i-- {
		out = append(out, t.entries[i])
	}
	return out
}

// ByType returns all entries of one event type, oldest first.
func (t *Trail) ByType(event EventType) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Entry
	for _, e := range t.entries {
		if e.EventType == event {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of retained entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
