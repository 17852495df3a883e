// Package hoapi talks to the external Q&A service's read-only HTTP
// interface and turns top questions and answers into grounding context
// for digest generation. Every call carries a bounded timeout and
// every failure is absorbed into a defined fallback.
package hoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hovernet-protocol/hovernet/internal/config"
)

// QuestionDoc is one search result from GET /questions.
type QuestionDoc struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Score       float64 `json:"score"`
	AnswerCount int     `json:"answer_count"`
}

// AnswerDoc is one result from GET /questions/{id}/answers.
type AnswerDoc struct {
	Body string `json:"body"`
}

type questionsPayload struct {
	Questions []QuestionDoc `json:"questions"`
}

type answersPayload struct {
	Answers []AnswerDoc `json:"answers"`
}

// Client is a read-only client for the Q&A service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL with the given
// per-request timeout. A zero timeout falls back to 6 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientFromConfig creates a client from the context-retrieval
// configuration section.
func NewClientFromConfig(cfg config.ContextConfig) *Client {
	return NewClient(cfg.APIBaseURL, cfg.Timeout)
}

// SearchQuestions returns the top-sorted questions matching search.
func (c *Client) SearchQuestions(ctx context.Context, search string, page int) ([]QuestionDoc, error) {
	query := url.Values{}
	query.Set("search", search)
	query.Set("sort", "top")
	query.Set("page", fmt.Sprintf("%d", page))

	var payload questionsPayload
	if err := c.getJSON(ctx, fmt.Sprintf("%s/questions?%s", c.baseURL, query.Encode()), &payload); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

// QuestionAnswers returns the top-sorted answers for a question id.
func (c *Client) QuestionAnswers(ctx context.Context, questionID string, page int) ([]AnswerDoc, error) {
	query := url.Values{}
	query.Set("sort", "top")
	query.Set("page", fmt.Sprintf("%d", page))

	endpoint := fmt.Sprintf("%s/questions/%s/answers?%s",
		c.baseURL, url.PathEscape(questionID), query.Encode())

	var payload answersPayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Answers, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hovernet-agent/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
