// Package router makes the top-level decision for an inbound request:
// answer directly (platform digest) or delegate to a specialist agent.
// Specialist problem-solving never takes the direct path; the digest
// path never hard-fails, it only degrades output richness.
package router

import (
	"context"
	"log"
	"strings"

	"github.com/hovernet-protocol/hovernet/internal/config"
	"github.com/hovernet-protocol/hovernet/internal/gateway"
	"github.com/hovernet-protocol/hovernet/internal/graph"
	"github.com/hovernet-protocol/hovernet/internal/hoapi"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

// digestTriggers classify a request as a digest request when any of
// them appears in the trimmed, lowercased query. Matching is literal
// substring containment; intent beyond the trigger list is not
// guessed.
var digestTriggers = []string{
	"digest",
	"summary",
	"market snapshot",
	"top questions",
	"status report",
}

const (
	promptForInput = "Please ask a question about HackOverflow, agents, or platform digests."

	delegateHint = "I route technical questions to specialist agents. " +
		"Ask your coding question normally and I will delegate it. " +
		"Use words like 'digest' or 'summary' if you want a platform snapshot."

	degradedDigest = "AI Gateway Digest unavailable right now.\n" +
		"Top questions are still being pulled from the HackOverflow API, but model summarization failed."
)

// Router is the orchestration decision layer.
type Router struct {
	cfg      config.GatewayConfig
	context  *hoapi.ContextBuilder
	gateway  *gateway.Client
	useGraph bool
}

// New creates a router. context and gw may be nil; the digest path
// then degrades to its static message.
func New(cfg config.GatewayConfig, contextBuilder *hoapi.ContextBuilder, gw *gateway.Client) *Router {
	return &Router{
		cfg:      cfg,
		context:  contextBuilder,
		gateway:  gw,
		useGraph: true,
	}
}

// Route decides direct-vs-delegate for a raw request. The decision is
// single-shot; when the graph engine is available the same two-node
// decision runs inside it for composability, and any graph failure
// falls back transparently to the functional evaluation. Route never
// returns an error.
func (r *Router) Route(ctx context.Context, query string) hovernet.RouterDecision {
	if r.useGraph {
		if decision, ok := r.routeViaGraph(ctx, query); ok {
			return decision
		}
	}
	return r.decide(ctx, query)
}

// routerState threads the request through the graph wrapper.
type routerState struct {
	query    string
	decision hovernet.RouterDecision
}

// routeViaGraph wraps decide in a route → terminal graph. The wrapper
// exists for extensibility and must be behaviorally identical to the
// functional path, which it guarantees by calling the same decide.
func (r *Router) routeViaGraph(ctx context.Context, query string) (hovernet.RouterDecision, bool) {
	g := graph.New[routerState]().
		AddNode("route", func(s routerState) (routerState, error) {
			s.decision = r.decide(ctx, s.query)
			return s, nil
		}).
		AddEdge(graph.Start, "route").
		AddEdge("route", graph.End)

	runner, err := g.Compile()
	if err != nil {
		log.Printf("[router] graph compile failed, using functional path: %v", err)
		return hovernet.RouterDecision{}, false
	}
	out, err := runner.Invoke(routerState{query: query})
	if err != nil {
		log.Printf("[router] graph invoke failed, using functional path: %v", err)
		return hovernet.RouterDecision{}, false
	}
	return out.decision, true
}

func (r *Router) decide(ctx context.Context, query string) hovernet.RouterDecision {
	if ShouldDelegate(query) {
		return hovernet.RouterDecision{Action: hovernet.ActionDelegate, Response: ""}
	}
	return hovernet.RouterDecision{
		Action:   hovernet.ActionDirect,
		Response: r.directResponse(ctx, query),
	}
}

// IsDigestRequest reports whether the query asks for a platform
// digest rather than posing a technical question.
func IsDigestRequest(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, trigger := range digestTriggers {
		if strings.Contains(q, trigger) {
			return true
		}
	}
	return false
}

// ShouldDelegate reports whether the query belongs with a specialist
// agent. Blank queries never delegate; digest requests stay on the
// direct path.
func ShouldDelegate(query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}
	return !IsDigestRequest(query)
}

// directResponse produces the direct-path output: an input prompt for
// blank queries, a routing hint for non-digest queries, and the
// digest (or its degraded replacement) for digest requests.
func (r *Router) directResponse(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return promptForInput
	}
	if !IsDigestRequest(query) {
		return delegateHint
	}

	var contextBlock string
	if r.context != nil {
		contextBlock = r.context.Build(ctx, query)
	}

	if r.gateway != nil {
		if digest, ok := r.gateway.GenerateDigest(ctx, query, contextBlock); ok {
			return "AI Gateway Digest\n" +
				"Primary: " + r.cfg.PrimaryModel + "\n" +
				"Fallbacks: " + strings.Join(r.cfg.FallbackModels, ",") + "\n\n" +
				digest
		}
	}
	return degradedDigest
}
