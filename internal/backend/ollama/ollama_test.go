package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/backend/ollama"
	"github.com/averdin/parley/internal/config"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *ollama.Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := ollama.New(config.OllamaConfig{
		Endpoint:    srv.URL,
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   128,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestGenerateSystemPromptLeads(t *testing.T) {
	var gotBody struct {
		Model    string            `json:"model"`
		Messages []backend.Message `json:"messages"`
		Stream   bool              `json:"stream"`
	}

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hello there"},
		})
	})

	content, err := b.Generate(context.Background(), "be nice", []backend.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hey"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content != "hello there" {
		t.Fatalf("content = %q", content)
	}

	if gotBody.Stream {
		t.Error("stream should be false")
	}
	if len(gotBody.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[0].Content != "be nice" {
		t.Fatalf("leading message = %+v, want the system prompt", gotBody.Messages[0])
	}
	if gotBody.Messages[1].Role != "user" || gotBody.Messages[2].Role != "assistant" {
		t.Fatalf("turn order not preserved: %+v", gotBody.Messages[1:])
	}
}

func TestGenerateEmptyContentIsSuccess(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": ""},
		})
	})

	content, err := b.Generate(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content != "" {
		t.Fatalf("content = %q, want empty", content)
	}
}

func TestGenerateHTTPErrorIsTyped(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := b.Generate(context.Background(), "prompt", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var berr *backend.Error
	if !errors.As(err, &berr) {
		t.Fatalf("error type = %T, want *backend.Error", err)
	}
	if berr.Backend != "ollama" {
		t.Fatalf("backend = %q", berr.Backend)
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := ollama.New(config.OllamaConfig{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
