package hoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hovernet-protocol/hovernet/internal/config"
)

func testConfig(baseURL string) config.ContextConfig {
	return config.ContextConfig{
		PullEnabled:   true,
		APIBaseURL:    baseURL,
		MaxQuestions:  2,
		QuestionChars: 220,
		AnswerChars:   260,
		Timeout:       2 * time.Second,
	}
}

func qaServer(t *testing.T, questions string, answers map[string]string, failAnswers bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/questions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") != "top" {
			t.Errorf("question search must request sort=top")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(questions))
	})
	mux.HandleFunc("/questions/", func(w http.ResponseWriter, r *http.Request) {
		if failAnswers {
			http.Error(w, "index unavailable", http.StatusServiceUnavailable)
			return
		}
		parts := strings.Split(r.URL.Path, "/")
		id := parts[2]
		body, ok := answers[id]
		if !ok {
			body = `{"answers": []}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func TestBuildFormatsLines(t *testing.T) {
	questions := `{"questions": [
		{"id": "q1", "title": "CUDA OOM on batch 32", "body": "Training dies at step 10", "score": 7, "answer_count": 2},
		{"id": "q2", "title": "Flaky websocket", "body": "Random disconnects", "score": 3, "answer_count": 0}
	]}`
	answers := map[string]string{
		"q1": `{"answers": [{"body": "Cut the batch size in half."}]}`,
	}
	srv := qaServer(t, questions, answers, false)
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	got := b.Build(context.Background(), "why does cuda oom happen")

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 context lines, got %d: %q", len(lines), got)
	}
	want0 := "1) Q(score=7, answers=2) title=CUDA OOM on batch 32; body=Training dies at step 10; top_answer=Cut the batch size in half."
	if lines[0] != want0 {
		t.Errorf("line 0 mismatch:\n got %q\nwant %q", lines[0], want0)
	}
	if strings.Contains(lines[1], "top_answer") {
		t.Errorf("question with zero answers must not carry top_answer: %q", lines[1])
	}
}

func TestBuildDisabledReturnsEmpty(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.PullEnabled = false

	b := NewContextBuilder(cfg, nil)
	if got := b.Build(context.Background(), "digest please"); got != "" {
		t.Errorf("disabled retrieval must return empty context, got %q", got)
	}
}

func TestBuildSearchFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	if got := b.Build(context.Background(), "anything"); got != "" {
		t.Errorf("search failure must yield empty context, got %q", got)
	}
}

func TestBuildAnswerFailureOmitsSuffixOnly(t *testing.T) {
	questions := `{"questions": [
		{"id": "q1", "title": "T1", "body": "B1", "score": 1, "answer_count": 3},
		{"id": "q2", "title": "T2", "body": "B2", "score": 1, "answer_count": 1}
	]}`
	srv := qaServer(t, questions, nil, true)
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	got := b.Build(context.Background(), "broken answers endpoint")

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("answer failures must not drop lines, got %q", got)
	}
	for _, line := range lines {
		if strings.Contains(line, "top_answer") {
			t.Errorf("failed answer fetch must omit the suffix: %q", line)
		}
	}
}

func TestBuildCapsQuestionCount(t *testing.T) {
	questions := `{"questions": [
		{"id": "a", "title": "t", "body": "b", "score": 1, "answer_count": 0},
		{"id": "b", "title": "t", "body": "b", "score": 1, "answer_count": 0},
		{"id": "c", "title": "t", "body": "b", "score": 1, "answer_count": 0}
	]}`
	srv := qaServer(t, questions, nil, false)
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	got := b.Build(context.Background(), "cap check")
	if n := len(strings.Split(got, "\n")); n != 2 {
		t.Errorf("expected at most 2 lines, got %d", n)
	}
}

func TestBuildUsesFallbackSearch(t *testing.T) {
	var seenSearch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSearch = r.URL.Query().Get("search")
		json.NewEncoder(w).Encode(questionsPayload{})
	}))
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	b.Build(context.Background(), "   ")
	if seenSearch != fallbackSearch {
		t.Errorf("blank query must use the fallback search, got %q", seenSearch)
	}
}

func TestBuildTruncatesSearchToEightTokens(t *testing.T) {
	var seenSearch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSearch = r.URL.Query().Get("search")
		json.NewEncoder(w).Encode(questionsPayload{})
	}))
	defer srv.Close()

	b := NewContextBuilder(testConfig(srv.URL), NewClient(srv.URL, 2*time.Second))
	b.Build(context.Background(), "a b c d e f g h i j")
	if seenSearch != "a b c d e f g h" {
		t.Errorf("search must use the first 8 tokens, got %q", seenSearch)
	}
}
