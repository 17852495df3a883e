package hovernet

import (
	"encoding/json"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	q := &Question{QuestionID: "q-1", Language: "go"}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	missing := &Question{Language: "go"}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing question_id")
	}

	negative := &Question{QuestionID: "q-2", Bounty: -5}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative bounty")
	}
}

func TestQuestionTriaged(t *testing.T) {
	q := &Question{QuestionID: "q-1"}
	if q.Triaged() {
		t.Error("fresh question should not be triaged")
	}

	q.RouteLane = string(LaneFast)
	if !q.Triaged() {
		t.Error("question with route_lane should be triaged")
	}
}

func TestAnswerValidate(t *testing.T) {
	a := &Answer{QuestionID: "q-1", Solution: "pin the version"}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid answer rejected: %v", err)
	}

	if err := (&Answer{Solution: "orphan"}).Validate(); err == nil {
		t.Error("expected error for missing question_id")
	}
}

func TestQuestionWireFieldNames(t *testing.T) {
	q := &Question{
		QuestionID:   "q-7",
		Code:         "x := <-ch",
		ErrorMessage: "deadlock",
		Language:     "go",
		Bounty:       3,
	}

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"question_id", "code", "error_message", "language", "bounty"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("wire payload missing %q", key)
		}
	}
	if _, ok := raw["route_lane"]; ok {
		t.Error("untriaged question should omit route_lane")
	}
}
