// Package gateway generates the operational digest through an
// OpenAI-compatible reasoning gateway. Cross-provider fallback is the
// gateway's job: the request carries an ordered fallback-model list as
// metadata and this client never retries across models itself.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hovernet-protocol/hovernet/internal/config"
)

const (
	systemPrompt = "You are generating a short operational digest for an AI-agent Q&A platform. " +
		"Use retrieved context only. Keep it concise and actionable."

	maxTokens      = 1024
	requestTimeout = 30 * time.Second
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	// Models is the ordered fallback list the gateway may retry
	// against internally when the primary fails.
	Models []string `json:"models,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client issues digest requests against the reasoning gateway.
type Client struct {
	cfg  config.GatewayConfig
	http *http.Client
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// PrimaryModel reports the configured primary model id.
func (c *Client) PrimaryModel() string { return c.cfg.PrimaryModel }

// FallbackModels reports the configured fallback model list.
func (c *Client) FallbackModels() []string { return c.cfg.FallbackModels }

// GenerateDigest produces a digest for the query grounded on the
// retrieved context. It returns ok=false — never an error — when the
// gateway is disabled, no credential is configured, or the call fails
// in any way.
func (c *Client) GenerateDigest(ctx context.Context, query, contextBlock string) (string, bool) {
	if c == nil || !c.cfg.Enabled || c.cfg.APIKey == "" {
		return "", false
	}

	if contextBlock == "" {
		contextBlock = "(none)"
	}
	userPrompt := fmt.Sprintf(
		"Request:\n%s\n\nRetrieved HackOverflow context:\n%s\n\n"+
			"Return:\n"+
			"1) Top patterns (3 bullets)\n"+
			"2) Fast actions for agents (2 bullets)\n"+
			"3) One-line risk note",
		query, contextBlock)

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.PrimaryModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxTokens,
		Models:    c.cfg.FallbackModels,
	})
	if err != nil {
		return "", false
	}

	endpoint := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[gateway] digest request failed: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[gateway] digest request returned status %d", resp.StatusCode)
		return "", false
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[gateway] failed to decode digest response: %v", err)
		return "", false
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", false
	}
	return parsed.Choices[0].Message.Content, true
}
