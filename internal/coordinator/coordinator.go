// Package coordinator implements the hub agent of the help network:
// it triages incoming questions, routes raw requests between the
// digest path and delegation, forwards questions to specialists, and
// heartbeats known peers.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hovernet-protocol/hovernet/internal/audit"
	"github.com/hovernet-protocol/hovernet/internal/config"
	"github.com/hovernet-protocol/hovernet/internal/registry"
	"github.com/hovernet-protocol/hovernet/internal/router"
	"github.com/hovernet-protocol/hovernet/internal/signals"
	"github.com/hovernet-protocol/hovernet/internal/transport"
	"github.com/hovernet-protocol/hovernet/internal/triage"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

// Coordinator is the network's triage-and-routing agent.
type Coordinator struct {
	ID string

	cfg        *config.Config
	classifier *triage.Classifier
	router     *router.Router
	registry   *registry.Registry
	trail      *audit.Trail
	hub        *transport.Hub

	shutdown chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a coordinator agent.
func New(cfg *config.Config, classifier *triage.Classifier, rt *router.Router, reg *registry.Registry, trail *audit.Trail) *Coordinator {
	return &Coordinator{
		ID:         cfg.Agent.ID,
		cfg:        cfg,
		classifier: classifier,
		router:     rt,
		registry:   reg,
		trail:      trail,
		shutdown:   make(chan struct{}),
	}
}

// SetHub wires the transport hub used for delegation and heartbeats.
func (c *Coordinator) SetHub(hub *transport.Hub) { c.hub = hub }

// HandleEnvelope dispatches inbound transport envelopes. It never
// returns an error for a decodable envelope; failures downstream are
// absorbed into audit entries and logs so the exchange keeps moving.
func (c *Coordinator) HandleEnvelope(ctx context.Context, env transport.Envelope) (*transport.Envelope, error) {
	switch env.Type {
	case transport.TypeQuestion:
		return c.handleQuestion(ctx, env)
	case transport.TypeAnswer:
		return c.handleAnswer(ctx, env)
	case transport.TypePing:
		return c.handlePing(env)
	case transport.TypePong:
		return c.handlePong(env)
	case transport.TypeRegister:
		return c.handleRegister(env)
	default:
		log.Printf("[coordinator] ignoring envelope type %q from %s", env.Type, env.From)
		return nil, nil
	}
}

// handleQuestion triages the question and forwards it to a specialist.
// Typed questions are always specialist work; only raw requests via
// Ask can take the direct path.
func (c *Coordinator) handleQuestion(ctx context.Context, env transport.Envelope) (*transport.Envelope, error) {
	var q hovernet.Question
	if err := env.DecodePayload(&q); err != nil {
		return nil, err
	}
	c.trail.Record(audit.EventQuestionReceived, env.From, c.ID,
		fmt.Sprintf("question %s received", q.QuestionID), nil)

	c.Triage(ctx, &q)
	c.delegate(env.From, &q)
	return nil, nil
}

// Triage attaches a triage plan to q. The triage fields are
// write-once: a question that already carries a lane is left alone.
func (c *Coordinator) Triage(ctx context.Context, q *hovernet.Question) hovernet.TriagePlan {
	if q.Triaged() {
		return hovernet.TriagePlan{
			Lane:    hovernet.Lane(q.RouteLane),
			Summary: q.TriageSummary,
			Actions: q.TriageActions,
		}
	}

	plan := c.classifier.Classify(ctx, q)
	q.RouteLane = string(plan.Lane)
	q.TriageSummary = plan.Summary
	q.TriageActions = plan.Actions

	c.trail.Record(audit.EventTriage, c.ID, "",
		fmt.Sprintf("question %s → %s", q.QuestionID, plan.Lane),
		map[string]string{"lane": string(plan.Lane), "source": plan.Source})
	return plan
}

// delegate forwards a triaged question to the first available
// specialist. Losing the delegation (no specialist connected) is
// logged and audited, never surfaced as an error to the sender.
func (c *Coordinator) delegate(from string, q *hovernet.Question) {
	specialist, ok := c.registry.FirstSpecialist()
	if !ok || c.hub == nil {
		log.Printf("[coordinator] no specialist available for question %s", q.QuestionID)
		c.trail.Record(audit.EventDelegate, c.ID, "",
			fmt.Sprintf("question %s undeliverable: no specialist", q.QuestionID), nil)
		return
	}

	env, err := transport.NewEnvelope(transport.TypeQuestion, from, specialist.ID, q)
	if err != nil {
		log.Printf("[coordinator] failed to frame question %s: %v", q.QuestionID, err)
		return
	}
	if err := c.hub.Send(specialist.ID, env); err != nil {
		log.Printf("[coordinator] failed to delegate question %s: %v", q.QuestionID, err)
		return
	}
	c.trail.Record(audit.EventDelegate, c.ID, specialist.ID,
		fmt.Sprintf("question %s delegated", q.QuestionID),
		map[string]string{"lane": q.RouteLane})
}

// handleAnswer audits a specialist's answer and forwards it to the
// original asker when that peer is connected.
func (c *Coordinator) handleAnswer(ctx context.Context, env transport.Envelope) (*transport.Envelope, error) {
	var a hovernet.Answer
	if err := env.DecodePayload(&a); err != nil {
		return nil, err
	}
	c.trail.Record(audit.EventAnswer, env.From, env.To,
		fmt.Sprintf("answer for question %s", a.QuestionID), nil)

	if c.hub != nil && env.To != "" && env.To != c.ID {
		forward, err := transport.NewEnvelope(transport.TypeAnswer, env.From, env.To, a)
		if err == nil {
			if err := c.hub.Send(env.To, forward); err != nil {
				log.Printf("[coordinator] failed to forward answer for %s: %v", a.QuestionID, err)
			}
		}
	}
	return nil, nil
}

func (c *Coordinator) handlePing(env transport.Envelope) (*transport.Envelope, error) {
	var ping hovernet.AgentPing
	if err := env.DecodePayload(&ping); err != nil {
		return nil, err
	}
	c.trail.Record(audit.EventPing, env.From, c.ID, "ping "+ping.PingID, nil)

	pong := signals.BuildPong(ping.PingID, c.ID, "", "")
	reply, err := transport.NewEnvelope(transport.TypePong, c.ID, env.From, pong)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Coordinator) handlePong(env transport.Envelope) (*transport.Envelope, error) {
	var pong hovernet.AgentPong
	if err := env.DecodePayload(&pong); err != nil {
		return nil, err
	}
	if err := c.registry.MarkAlive(pong.Responder, pong.Status); err != nil {
		log.Printf("[coordinator] pong from unknown peer %s", pong.Responder)
	}
	c.trail.Record(audit.EventPong, pong.Responder, c.ID, "pong "+pong.PingID, nil)
	return nil, nil
}

// handleRegister refreshes a peer's registry entry from an explicit
// registration envelope. The WebSocket upgrade already registers the
// peer; this lets an agent announce a role or address change without
// reconnecting.
func (c *Coordinator) handleRegister(env transport.Envelope) (*transport.Envelope, error) {
	var reg transport.RegisterPayload
	if err := env.DecodePayload(&reg); err != nil {
		return nil, err
	}
	peer := registry.Peer{ID: reg.AgentID, Role: registry.Role(reg.Role), Address: reg.Address}
	if err := c.registry.Register(peer); err != nil {
		log.Printf("[coordinator] register from %s rejected: %v", env.From, err)
	}
	return nil, nil
}

// Ask answers a raw natural-language request: digest requests take
// the direct path, everything else is framed as a question and
// delegated. Ask never fails; a failed delegation still returns the
// delegate decision with its empty response.
func (c *Coordinator) Ask(ctx context.Context, query string) hovernet.RouterDecision {
	decision := c.router.Route(ctx, query)
	c.trail.Record(audit.EventRoute, c.ID, "",
		fmt.Sprintf("raw request → %s", decision.Action), nil)

	if decision.Action == hovernet.ActionDelegate {
		q := &hovernet.Question{
			QuestionID:   uuid.New().String(),
			ErrorMessage: query,
			Channel:      "ask",
		}
		c.Triage(ctx, q)
		c.delegate(c.ID, q)
	}
	return decision
}

// Start launches the heartbeat loop when enabled. It returns
// immediately; Stop shuts the loop down.
func (c *Coordinator) Start() {
	if !c.cfg.Agent.HeartbeatEnabled {
		return
	}
	c.wg.Add(1)
	go c.heartbeatLoop()
}

// Stop terminates the heartbeat loop and waits for it.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.shutdown) })
	c.wg.Wait()
}

func (c *Coordinator) heartbeatLoop() {
	defer c.wg.Done()

	if c.cfg.Agent.StartupSignalEnabled {
		c.beat()
	}

	ticker := time.NewTicker(c.cfg.Agent.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.beat()
		}
	}
}

// beat pings every known peer over the hub. Peers without a live
// connection are skipped; liveness bookkeeping happens on pong
// receipt.
func (c *Coordinator) beat() {
	if c.hub == nil {
		return
	}
	for _, peer := range c.registry.Peers() {
		if peer.ID == c.ID || !c.hub.Connected(peer.ID) {
			continue
		}
		ping := signals.BuildPing(c.ID, "", "")
		env, err := transport.NewEnvelope(transport.TypePing, c.ID, peer.ID, ping)
		if err != nil {
			continue
		}
		if err := c.hub.Send(peer.ID, env); err != nil {
			log.Printf("[coordinator] heartbeat to %s failed: %v", peer.ID, err)
			continue
		}
		c.trail.Record(audit.EventPing, c.ID, peer.ID, "heartbeat "+ping.PingID, nil)
	}
}
