package litellm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/Boardroom/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "openai/gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"score":8}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	got, err := c.ChatCompletion(context.Background(), ChatRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []Message{
			{Role: "system", Content: "you are a reviewer"},
			{Role: "user", Content: "review this"},
		},
	})
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	if got != `{"score":8}` {
		t.Errorf("content = %q", got)
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"}); err == nil {
		t.Fatal("empty choices must be an error")
	}
}

func TestChatCompletionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid model"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "bad"}); err == nil {
		t.Fatal("status 400 must be an error")
	}
}

func TestBreakerShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.SetBreaker(resilience.NewBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := c.Health(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := c.Health(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, breaker should stop the third", calls)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/liveliness" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ok, err := c.Health(context.Background())
	if err != nil || !ok {
		t.Fatalf("health = %v, %v", ok, err)
	}
}
