// Package specialist implements the answering agent: it receives
// delegated questions, makes sure they carry a triage plan, and
// composes an Answer, optionally annotated with a remote inference
// hint.
package specialist

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hovernet-protocol/hovernet/internal/inference"
	"github.com/hovernet-protocol/hovernet/internal/signals"
	"github.com/hovernet-protocol/hovernet/internal/transport"
	"github.com/hovernet-protocol/hovernet/internal/triage"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

// Specialist answers delegated questions.
type Specialist struct {
	ID string

	classifier *triage.Classifier
	hints      *inference.HintClient
}

// New creates a specialist agent. hints may be nil; answers then skip
// the curator note.
func New(id string, classifier *triage.Classifier, hints *inference.HintClient) *Specialist {
	return &Specialist{ID: id, classifier: classifier, hints: hints}
}

// HandleEnvelope answers questions and pings delivered over the
// transport.
func (s *Specialist) HandleEnvelope(ctx context.Context, env transport.Envelope) (*transport.Envelope, error) {
	switch env.Type {
	case transport.TypeQuestion:
		var q hovernet.Question
		if err := env.DecodePayload(&q); err != nil {
			return nil, err
		}
		answer := s.Answer(ctx, &q)
		reply, err := transport.NewEnvelope(transport.TypeAnswer, s.ID, env.From, answer)
		if err != nil {
			return nil, err
		}
		return &reply, nil
	case transport.TypePing:
		var ping hovernet.AgentPing
		if err := env.DecodePayload(&ping); err != nil {
			return nil, err
		}
		pong := signals.BuildPong(ping.PingID, s.ID, "", "")
		reply, err := transport.NewEnvelope(transport.TypePong, s.ID, env.From, pong)
		if err != nil {
			return nil, err
		}
		return &reply, nil
	default:
		log.Printf("[specialist] ignoring envelope type %q from %s", env.Type, env.From)
		return nil, nil
	}
}

// Answer composes the answer for q. Questions arriving without triage
// fields are classified locally first, so the answer always has a
// plan to build on. The remote inference hint is attached as the
// curator note when the sidecar is reachable; its absence never
// blocks the answer.
func (s *Specialist) Answer(ctx context.Context, q *hovernet.Question) hovernet.Answer {
	if !q.Triaged() {
		plan := s.classifier.Classify(ctx, q)
		q.RouteLane = string(plan.Lane)
		q.TriageSummary = plan.Summary
		q.TriageActions = plan.Actions
	}

	answer := hovernet.Answer{
		QuestionID:  q.QuestionID,
		Solution:    formatSolution(q.TriageActions),
		Explanation: fmt.Sprintf("%s Routed via %s.", q.TriageSummary, q.RouteLane),
		Verified:    false,
	}
	if hint, ok := s.hints.TriageHint(ctx, q.Code, q.ErrorMessage, q.Language); ok {
		answer.CuratorNote = hint
	}
	return answer
}

func formatSolution(actions []string) string {
	if len(actions) == 0 {
		return "Reproduce the failure with verbose logging and narrow down the failing call."
	}
	var b strings.Builder
	b.WriteString("Suggested unblock steps:")
	for i, action := range actions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, action)
	}
	return b.String()
}
