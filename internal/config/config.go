package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete process configuration for a hovernet agent.
// It is built once at startup and read-only afterwards; every optional
// path has a default that disables it, so an empty environment yields
// a fully functional agent running on heuristics and static fallbacks.
type Config struct {
	Agent     AgentConfig
	Triage    TriageConfig
	Context   ContextConfig
	Gateway   GatewayConfig
	Inference InferenceConfig
}

// AgentConfig contains runtime identity and heartbeat configuration.
type AgentConfig struct {
	ID                   string
	ListenAddr           string
	HeartbeatEnabled     bool
	HeartbeatPeriod      time.Duration
	StartupSignalEnabled bool
}

// TriageConfig gates the optional reasoning-engine triage path.
type TriageConfig struct {
	EngineEnabled bool
	AllowedTools  []string
	MaxTokens     int
}

// ContextConfig configures Q&A context retrieval for digests.
type ContextConfig struct {
	PullEnabled   bool
	APIBaseURL    string
	MaxQuestions  int
	QuestionChars int
	AnswerChars   int
	Timeout       time.Duration
}

// GatewayConfig configures the reasoning gateway used for digests.
type GatewayConfig struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	PrimaryModel   string
	FallbackModels []string
}

// InferenceConfig configures the optional remote-inference sidecar
// used by specialist agents for extra debugging hints.
type InferenceConfig struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	GPUGroup       string
	WorkersMin     int
	WorkersMax     int
	IdleTimeoutMin int
	Model          string
	MaxNewTokens   int
}

// DefaultInferenceModel is used when no model override is configured.
const DefaultInferenceModel = "Qwen/Qwen2.5-0.5B-Instruct"

// Default returns the zero-credential configuration: heuristics and
// static fallbacks only, heartbeat on.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			ID:                   "hovernet-agent",
			ListenAddr:           "0.0.0.0:8080",
			HeartbeatEnabled:     true,
			HeartbeatPeriod:      45 * time.Second,
			StartupSignalEnabled: true,
		},
		Triage: TriageConfig{
			EngineEnabled: false,
		},
		Context: ContextConfig{
			PullEnabled:   true,
			APIBaseURL:    "http://127.0.0.1:8000",
			MaxQuestions:  2,
			QuestionChars: 220,
			AnswerChars:   260,
			Timeout:       6 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled:      true,
			BaseURL:      "https://ai-gateway.vercel.sh/v1",
			PrimaryModel: "openai/gpt-4o-mini",
			FallbackModels: []string{
				"anthropic/claude-3.5-haiku",
				"google/gemini-2.0-flash-001",
			},
		},
		Inference: InferenceConfig{
			Enabled:        false,
			GPUGroup:       "ANY",
			WorkersMin:     0,
			WorkersMax:     1,
			IdleTimeoutMin: 5,
			Model:          DefaultInferenceModel,
			MaxNewTokens:   180,
		},
	}
}

// FromEnv builds a Config from the process environment, applying the
// documented default for every unset or malformed option and the
// documented floor for bounded values.
func FromEnv() *Config {
	cfg := Default()

	cfg.Agent.ID = envString("AGENT_ID", cfg.Agent.ID)
	cfg.Agent.ListenAddr = envString("AGENT_LISTEN_ADDR", cfg.Agent.ListenAddr)
	cfg.Agent.HeartbeatEnabled = envFlag("AGENT_HEARTBEAT_ENABLED", cfg.Agent.HeartbeatEnabled)
	cfg.Agent.StartupSignalEnabled = envFlag("AGENT_STARTUP_SIGNAL_ENABLED", cfg.Agent.StartupSignalEnabled)
	secs := envFloat("AGENT_HEARTBEAT_SECONDS", 45)
	if secs < 10 {
		secs = 10
	}
	cfg.Agent.HeartbeatPeriod = time.Duration(secs * float64(time.Second))

	cfg.Triage.EngineEnabled = envFlag("TRIAGE_ENGINE_ENABLED", cfg.Triage.EngineEnabled)
	cfg.Triage.AllowedTools = envList("TRIAGE_ALLOWED_TOOLS")
	cfg.Triage.MaxTokens = envInt("TRIAGE_MAX_TOKENS", cfg.Triage.MaxTokens)

	cfg.Context.PullEnabled = envFlag("GATEWAY_PULL_CONTEXT", cfg.Context.PullEnabled)
	cfg.Context.APIBaseURL = strings.TrimRight(envString("QA_API_URL", cfg.Context.APIBaseURL), "/")
	cfg.Context.MaxQuestions = maxInt(1, envInt("GATEWAY_CONTEXT_QUESTIONS", cfg.Context.MaxQuestions))
	cfg.Context.QuestionChars = maxInt(80, envInt("GATEWAY_CONTEXT_QUESTION_CHARS", cfg.Context.QuestionChars))
	cfg.Context.AnswerChars = maxInt(80, envInt("GATEWAY_CONTEXT_ANSWER_CHARS", cfg.Context.AnswerChars))

	cfg.Gateway.Enabled = envFlag("GATEWAY_ENABLED", cfg.Gateway.Enabled)
	cfg.Gateway.APIKey = strings.TrimSpace(envString("GATEWAY_API_KEY", ""))
	cfg.Gateway.BaseURL = strings.TrimSpace(envString("GATEWAY_BASE_URL", cfg.Gateway.BaseURL))
	cfg.Gateway.PrimaryModel = strings.TrimSpace(envString("GATEWAY_PRIMARY_MODEL", cfg.Gateway.PrimaryModel))
	if raw, ok := os.LookupEnv("GATEWAY_FALLBACK_MODELS"); ok {
		cfg.Gateway.FallbackModels = splitList(raw)
	}
	// The primary never appears in its own fallback list.
	var fallbacks []string
	for _, m := range cfg.Gateway.FallbackModels {
		if m != cfg.Gateway.PrimaryModel {
			fallbacks = append(fallbacks, m)
		}
	}
	cfg.Gateway.FallbackModels = fallbacks

	cfg.Inference.Enabled = envFlag("INFERENCE_ENABLED", cfg.Inference.Enabled)
	cfg.Inference.APIKey = strings.TrimSpace(envString("INFERENCE_API_KEY", ""))
	cfg.Inference.BaseURL = strings.TrimRight(envString("INFERENCE_BASE_URL", ""), "/")
	cfg.Inference.GPUGroup = strings.ToUpper(strings.TrimSpace(envString("INFERENCE_GPU_GROUP", cfg.Inference.GPUGroup)))
	cfg.Inference.WorkersMin = envInt("INFERENCE_WORKERS_MIN", cfg.Inference.WorkersMin)
	cfg.Inference.WorkersMax = envInt("INFERENCE_WORKERS_MAX", cfg.Inference.WorkersMax)
	cfg.Inference.IdleTimeoutMin = envInt("INFERENCE_IDLE_TIMEOUT_MIN", cfg.Inference.IdleTimeoutMin)
	cfg.Inference.Model = strings.TrimSpace(envString("INFERENCE_MODEL", cfg.Inference.Model))
	cfg.Inference.MaxNewTokens = envInt("INFERENCE_MAX_NEW_TOKENS", cfg.Inference.MaxNewTokens)

	return cfg
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

// envFlag treats 1/true/yes/on (any case) as true; any other set
// value is false, and an unset or blank variable keeps the default.
func envFlag(name string, def bool) bool {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envInt(name string, def int) int {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func envFloat(name string, def float64) float64 {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return v
}

func envList(name string) []string {
	return splitList(os.Getenv(name))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
