// Package triage assigns incoming questions to a priority lane and
// produces a short summary plus an ordered action list. The
// deterministic heuristic path always succeeds; an optional reasoning
// engine can override it, and any failure in that path falls back
// silently to the heuristics. Classify never returns an error.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hovernet-protocol/hovernet/internal/config"
	"github.com/hovernet-protocol/hovernet/internal/textutil"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

const (
	summaryLimit = 200
	actionLimit  = 120
	maxActions   = 3
	codePreview  = 2000

	engineTimeout = 30 * time.Second
)

// EngineOptions carries per-call settings for a reasoning engine.
type EngineOptions struct {
	AllowedTools []string
	MaxTokens    int
}

// Engine is the capability-checked strategy for reasoning-engine
// triage. Stream returns a channel of text fragments; the channel must
// be closed when the engine is done or the context expires. A nil
// Engine on the Classifier is the normal "not available" state.
type Engine interface {
	Name() string
	Stream(ctx context.Context, prompt string, opts EngineOptions) (<-chan string, error)
}

// Classifier decides the lane, summary, and actions for a question.
type Classifier struct {
	cfg    config.TriageConfig
	engine Engine
}

// NewClassifier creates a classifier. engine may be nil, in which case
// only the heuristic path runs regardless of configuration.
func NewClassifier(cfg config.TriageConfig, engine Engine) *Classifier {
	return &Classifier{cfg: cfg, engine: engine}
}

// Classify produces a complete triage plan for q. The engine attempt,
// when enabled, strictly precedes the heuristic fallback; the two are
// never raced.
func (c *Classifier) Classify(ctx context.Context, q *hovernet.Question) hovernet.TriagePlan {
	if plan, ok := c.engineTriage(ctx, q); ok {
		return plan
	}
	return HeuristicPlan(q)
}

// urgencyMarkers flag a question for the fast lane when any of them
// appears in the error message or code.
var urgencyMarkers = []string{
	"oom",
	"out of memory",
	"segmentation fault",
	"panic",
	"timeout",
	"connection refused",
	"permission denied",
}

// HeuristicLane computes the lane from bounty and urgency markers. It
// is pure and total: no I/O, no failure mode.
func HeuristicLane(q *hovernet.Question) hovernet.Lane {
	if q.Bounty > 0 {
		return hovernet.LaneFast
	}
	errText := strings.ToLower(q.ErrorMessage)
	codeText := strings.ToLower(q.Code)
	for _, marker := range urgencyMarkers {
		if strings.Contains(errText, marker) || strings.Contains(codeText, marker) {
			return hovernet.LaneFast
		}
	}
	return hovernet.LaneDeep
}

// HeuristicPlan builds the deterministic triage plan for q.
func HeuristicPlan(q *hovernet.Question) hovernet.TriagePlan {
	lane := HeuristicLane(q)

	actions := []string{
		"Reproduce with a minimal snippet.",
		"Capture full traceback and environment versions.",
	}
	if lane == hovernet.LaneFast {
		actions = append([]string{"Prioritize immediate unblock and quick rollback path."}, actions...)
	}

	language := q.Language
	if language == "" {
		language = "unknown"
	}
	summary := fmt.Sprintf("Heuristic triage for %s error: %s",
		language, textutil.Compact(q.ErrorMessage, 180))

	return hovernet.TriagePlan{
		Lane:    lane,
		Summary: summary,
		Actions: actions,
		Source:  hovernet.SourceHeuristic,
	}
}

// engineTriage runs the optional reasoning-engine path. Any failure —
// disabled flag, nil engine, stream error, unparseable output — yields
// ok=false so the caller falls back to heuristics.
func (c *Classifier) engineTriage(ctx context.Context, q *hovernet.Question) (hovernet.TriagePlan, bool) {
	if !c.cfg.EngineEnabled || c.engine == nil {
		return hovernet.TriagePlan{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, engineTimeout)
	defer cancel()

	opts := EngineOptions{
		AllowedTools: c.cfg.AllowedTools,
		MaxTokens:    c.cfg.MaxTokens,
	}
	fragments, err := c.engine.Stream(ctx, buildPrompt(q), opts)
	if err != nil {
		return hovernet.TriagePlan{}, false
	}

	var chunks []string
	for fragment := range fragments {
		if text := strings.TrimSpace(fragment); text != "" {
			chunks = append(chunks, text)
		}
	}
	if ctx.Err() != nil {
		return hovernet.TriagePlan{}, false
	}

	payload, ok := parseJSONBlob(strings.Join(chunks, "\n"))
	if !ok {
		return hovernet.TriagePlan{}, false
	}
	return c.repairPlan(payload, q), true
}

// repairPlan validates the engine payload field by field, defaulting
// each unusable field from the heuristic plan for the same question.
func (c *Classifier) repairPlan(payload map[string]any, q *hovernet.Question) hovernet.TriagePlan {
	heuristic := HeuristicPlan(q)

	lane := hovernet.Lane(strings.ToLower(strings.TrimSpace(asString(payload["lane"]))))
	if lane != hovernet.LaneFast && lane != hovernet.LaneDeep {
		lane = heuristic.Lane
	}

	summary := textutil.Compact(asString(payload["summary"]), summaryLimit)
	if summary == "" {
		summary = heuristic.Summary
	}

	var actions []string
	if raw, ok := payload["actions"].([]any); ok {
		for _, item := range raw {
			if text := textutil.Compact(asString(item), actionLimit); text != "" {
				actions = append(actions, text)
			}
		}
	}
	if len(actions) == 0 {
		actions = heuristic.Actions
	}
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}

	return hovernet.TriagePlan{
		Lane:    lane,
		Summary: summary,
		Actions: actions,
		Source:  c.engine.Name(),
	}
}

func buildPrompt(q *hovernet.Question) string {
	code := q.Code
	if len(code) > codePreview {
		code = code[:codePreview]
	}
	return "You are a triage coordinator for AI coding agents.\n" +
		"Return strict JSON with keys: lane, summary, actions.\n" +
		"lane must be one of: fast-lane, deep-lane.\n" +
		"summary must be <= 200 chars.\n" +
		"actions must be an array with 2-3 short action strings.\n\n" +
		fmt.Sprintf("Language: %s\n", q.Language) +
		fmt.Sprintf("Error: %s\n", q.ErrorMessage) +
		fmt.Sprintf("Tags: [%s]\n", strings.Join(q.Tags, ", ")) +
		fmt.Sprintf("Bounty: %d\n", q.Bounty) +
		fmt.Sprintf("Code:\n%s", code)
}

// parseJSONBlob locates the outermost {...} span in text, permitting
// prose before and after the JSON payload, and decodes it. A payload
// that fails to decode as-is gets one repair attempt before the whole
// stage is declared unusable.
func parseJSONBlob(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	blob := text[start : end+1]

	var payload map[string]any
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(blob)
		if rerr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, false
		}
	}
	if payload == nil {
		return nil, false
	}
	return payload, true
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
