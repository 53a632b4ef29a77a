package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

type chatCall struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

func newTestClient(t *testing.T, status int, content string, calls *[]chatCall) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var call chatCall
		json.NewDecoder(r.Body).Decode(&call)
		if calls != nil {
			*calls = append(*calls, call)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  call.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"total_tokens": 12},
		})
	}))
	t.Cleanup(srv.Close)

	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, nil, zap.NewNop())
}

func TestReformat_StripsQuotes(t *testing.T) {
	var calls []chatCall
	c := newTestClient(t, http.StatusOK, `  "Run a marathon"  `, &calls)

	got, err := c.Reformat(context.Background(), "i wanna run a marathon someday", domain.TextKindGoal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Run a marathon" {
		t.Errorf("expected %q, got %q", "Run a marathon", got)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	if calls[0].Model != "gpt-4o" || calls[0].MaxTokens != 100 {
		t.Errorf("unexpected request %+v", calls[0])
	}
	if !strings.Contains(calls[0].Messages[0].Content, "i wanna run a marathon someday") {
		t.Errorf("prompt does not include input: %q", calls[0].Messages[0].Content)
	}
}

func TestReformat_MotivationPrompt(t *testing.T) {
	var calls []chatCall
	c := newTestClient(t, http.StatusOK, "Be there for my kids", &calls)

	if _, err := c.Reformat(context.Background(), "my kids", domain.TextKindMotivation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(calls[0].Messages[0].Content, "Reformat this motivation statement") {
		t.Errorf("unexpected prompt %q", calls[0].Messages[0].Content)
	}
}

func TestReformat_UnsupportedKind(t *testing.T) {
	c := newTestClient(t, http.StatusOK, "x", nil)
	if _, err := c.Reformat(context.Background(), "x", domain.TextKind("other")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMorningReminder(t *testing.T) {
	var calls []chatCall
	c := newTestClient(t, http.StatusOK, "Morning Sam! Go get those miles in 🏃", &calls)

	got, err := c.MorningReminder(context.Background(), "Sam", "Run a marathon", "Stay healthy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Morning Sam! Go get those miles in 🏃" {
		t.Errorf("unexpected reminder %q", got)
	}
	prompt := calls[0].Messages[0].Content
	if !strings.Contains(prompt, "Sam's supportive best friend") || !strings.Contains(prompt, `"Run a marathon" because "Stay healthy"`) {
		t.Errorf("prompt missing personalization: %q", prompt)
	}
}

func TestInterpretTimezone(t *testing.T) {
	var calls []chatCall
	c := newTestClient(t, http.StatusOK, "Europe/Lisbon\n", &calls)

	got, err := c.InterpretTimezone(context.Background(), "I live in Lisbon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Europe/Lisbon" {
		t.Errorf("expected Europe/Lisbon, got %q", got)
	}
	if calls[0].Model != "gpt-3.5-turbo" || calls[0].MaxTokens != 20 {
		t.Errorf("unexpected request %+v", calls[0])
	}
	if calls[0].Messages[0].Role != "system" || calls[0].Messages[1].Content != "I live in Lisbon" {
		t.Errorf("unexpected messages %+v", calls[0].Messages)
	}
}

func TestComplete_ServerError(t *testing.T) {
	c := newTestClient(t, http.StatusInternalServerError, "", nil)
	if _, err := c.MorningReminder(context.Background(), "Sam", "g", "m"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestComplete_EmptyContent(t *testing.T) {
	c := newTestClient(t, http.StatusOK, "   ", nil)
	if _, err := c.InterpretTimezone(context.Background(), "x"); err == nil {
		t.Fatal("expected error on empty completion")
	}
}
