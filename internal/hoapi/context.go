package hoapi

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hovernet-protocol/hovernet/internal/config"
	"github.com/hovernet-protocol/hovernet/internal/textutil"
)

// fallbackSearch is used when the query yields no usable search tokens.
const fallbackSearch = "python error agent debugging"

// ContextBuilder pulls recent top questions and answers into a
// formatted context block for the digest generator.
type ContextBuilder struct {
	cfg    config.ContextConfig
	client *Client
}

// NewContextBuilder creates a builder over the given client. client
// may be nil when cfg.PullEnabled is false.
func NewContextBuilder(cfg config.ContextConfig, client *Client) *ContextBuilder {
	return &ContextBuilder{cfg: cfg, client: client}
}

// Build derives a search from the query's first 8 tokens and formats
// one line per retrieved question, appending the top answer where one
// can be fetched. Disabled retrieval or a failed top-level search
// yields an empty string; a failed per-question answer fetch only
// omits that line's top_answer suffix. Calls are sequential, so line
// order is deterministic.
func (b *ContextBuilder) Build(ctx context.Context, query string) string {
	if !b.cfg.PullEnabled || b.client == nil {
		return ""
	}

	search := textutil.FirstTokens(query, 8)
	if search == "" {
		search = fallbackSearch
	}

	questions, err := b.client.SearchQuestions(ctx, search, 1)
	if err != nil {
		log.Printf("[context] question search failed: %v", err)
		return ""
	}
	if len(questions) > b.cfg.MaxQuestions {
		questions = questions[:b.cfg.MaxQuestions]
	}

	var lines []string
	for i, q := range questions {
		title := textutil.Compact(q.Title, b.cfg.QuestionChars)
		body := textutil.Compact(q.Body, b.cfg.QuestionChars)
		line := fmt.Sprintf("%d) Q(score=%v, answers=%d) title=%s; body=%s",
			i+1, q.Score, q.AnswerCount, title, body)

		if q.ID != "" && q.AnswerCount > 0 {
			if top, ok := b.topAnswer(ctx, q.ID); ok {
				line += "; top_answer=" + top
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (b *ContextBuilder) topAnswer(ctx context.Context, questionID string) (string, bool) {
	answers, err := b.client.QuestionAnswers(ctx, questionID, 1)
	if err != nil {
		log.Printf("[context] answer fetch for %s failed: %v", questionID, err)
		return "", false
	}
	if len(answers) == 0 {
		return "", false
	}
	top := textutil.Compact(answers[0].Body, b.cfg.AnswerChars)
	if top == "" {
		return "", false
	}
	return top, true
}
