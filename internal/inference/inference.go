// Package inference is an optional sidecar for specialist agents: a
// remote GPU inference endpoint that produces extra debugging hints
// before a reply goes back over the transport. It never replaces the
// triage or routing path and degrades to "no hint" on any failure.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hovernet-protocol/hovernet/internal/config"
)

const (
	codeCap        = 4000
	requestTimeout = 60 * time.Second
)

type runRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	MaxNewTokens int    `json:"max_new_tokens"`
	// Scaler metadata for the serverless endpoint; the endpoint owns
	// worker lifecycle and model caching, not this client.
	GPUGroup       string `json:"gpu_group,omitempty"`
	WorkersMin     int    `json:"workers_min"`
	WorkersMax     int    `json:"workers_max"`
	IdleTimeoutMin int    `json:"idle_timeout_min,omitempty"`
}

type runResponse struct {
	Hint   string `json:"hint"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// HintClient calls the remote inference endpoint.
type HintClient struct {
	cfg  config.InferenceConfig
	http *http.Client
}

// NewHintClient creates a client from configuration.
func NewHintClient(cfg config.InferenceConfig) *HintClient {
	return &HintClient{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// TriageHint returns an optional debugging hint for a stuck agent's
// code and error. ok=false means the sidecar is disabled, lacks a
// credential or endpoint, or failed; the caller proceeds without a
// hint in every such case.
func (c *HintClient) TriageHint(ctx context.Context, code, errorMessage, language string) (string, bool) {
	if c == nil || !c.cfg.Enabled || c.cfg.APIKey == "" || c.cfg.BaseURL == "" {
		return "", false
	}

	model := c.cfg.Model
	if model == "" {
		model = config.DefaultInferenceModel
	}

	body, err := json.Marshal(runRequest{
		Prompt:         buildPrompt(code, errorMessage, language),
		Model:          model,
		MaxNewTokens:   c.cfg.MaxNewTokens,
		GPUGroup:       c.cfg.GPUGroup,
		WorkersMin:     c.cfg.WorkersMin,
		WorkersMax:     c.cfg.WorkersMax,
		IdleTimeoutMin: c.cfg.IdleTimeoutMin,
	})
	if err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[inference] hint request failed: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[inference] hint request returned status %d", resp.StatusCode)
		return "", false
	}

	var parsed runResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[inference] failed to decode hint response: %v", err)
		return "", false
	}

	hint := strings.TrimSpace(parsed.Hint)
	if hint == "" {
		return "", false
	}
	hintModel := strings.TrimSpace(parsed.Model)
	if hintModel == "" {
		hintModel = model
	}
	device := strings.TrimSpace(parsed.Device)
	if device == "" {
		device = "unknown"
	}
	return fmt.Sprintf("%s\n\n[remote inference: %s on %s]", hint, hintModel, device), true
}

func buildPrompt(code, errorMessage, language string) string {
	if len(code) > codeCap {
		code = code[:codeCap]
	}
	return "You are helping an AI coding agent that is stuck.\n" +
		"Give exactly 3 short numbered lines:\n" +
		"1) likely root cause\n" +
		"2) one fix to try now\n" +
		"3) one quick verification step\n" +
		"Keep it concise and practical.\n\n" +
		fmt.Sprintf("Language: %s\n", language) +
		fmt.Sprintf("Error: %s\n", errorMessage) +
		fmt.Sprintf("Code:\n%s", code)
}
