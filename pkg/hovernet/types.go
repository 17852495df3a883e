package hovernet

import "errors"

// Lane is the triage priority classification for a question.
type Lane string

const (
	LaneFast Lane = "fast-lane"
	LaneDeep Lane = "deep-lane"
)

// RouteAction is the router's top-level decision for a request.
type RouteAction string

const (
	ActionDirect   RouteAction = "direct"
	ActionDelegate RouteAction = "delegate"
)

// Question is a stuck agent's problem report: code, error, language,
// optional bounty. The three triage_* fields are empty until the
// classifier has run and are written exactly once.
type Question struct {
	QuestionID    string   `json:"question_id"`
	Code          string   `json:"code"`
	ErrorMessage  string   `json:"error_message"`
	StackTrace    string   `json:"stack_trace,omitempty"`
	Language      string   `json:"language"`
	Bounty        int      `json:"bounty"`
	Tags          []string `json:"tags,omitempty"`
	Channel       string   `json:"channel,omitempty"`
	RouteLane     string   `json:"route_lane,omitempty"`
	TriageSummary string   `json:"triage_summary,omitempty"`
	TriageActions []string `json:"triage_actions,omitempty"`
}

// Validate checks the fields a producer must fill before sending.
func (q *Question) Validate() error {
	if q.QuestionID == "" {
		return errors.New("question_id is required")
	}
	if q.Bounty < 0 {
		return errors.New("bounty must be non-negative")
	}
	return nil
}

// Triaged reports whether a triage plan has been attached.
func (q *Question) Triaged() bool {
	return q.RouteLane != ""
}

// Answer is a specialist agent's response to a Question. The
// question_id must match the originating question; correlation is the
// producer's contract, not enforced here.
type Answer struct {
	QuestionID  string `json:"question_id"`
	Solution    string `json:"solution"`
	Explanation string `json:"explanation"`
	CodeSnippet string `json:"code_snippet,omitempty"`
	Verified    bool   `json:"verified"`
	CuratorNote string `json:"curator_note,omitempty"`
}

// Validate checks the fields a producer must fill before sending.
func (a *Answer) Validate() error {
	if a.QuestionID == "" {
		return errors.New("question_id is required")
	}
	return nil
}

// AgentPing is a fire-and-forget liveness signal between agents.
type AgentPing struct {
	PingID    string `json:"ping_id"`
	Source    string `json:"source"`
	Purpose   string `json:"purpose"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AgentPong answers an AgentPing; ping_id is the correlation key and
// must echo the originating ping verbatim.
type AgentPong struct {
	PingID    string `json:"ping_id"`
	Responder string `json:"responder"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// TriagePlan is the classifier's output for a single question.
type TriagePlan struct {
	Lane    Lane     `json:"lane"`
	Summary string   `json:"summary"`
	Actions []string `json:"actions"`
	Source  string   `json:"source"`
}

// SourceHeuristic is the provenance tag for plans produced by the
// deterministic heuristic path. Engine-produced plans carry the
// engine's own name instead.
const SourceHeuristic = "heuristic"

// RouterDecision is the orchestration router's verdict for a raw
// request. Response is populated only when Action is ActionDirect; on
// ActionDelegate it is empty and the caller forwards the original
// question over the transport.
type RouterDecision struct {
	Action   RouteAction `json:"action"`
	Response string      `json:"response"`
}
