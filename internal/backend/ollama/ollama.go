// Package ollama implements the backend.Backend interface against a local
// Ollama daemon's chat endpoint.
//
// Unlike the cloud backends there is no API key; the daemon is assumed to be
// reachable on localhost (or wherever the configured endpoint points).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/config"
)

// Backend calls a local Ollama daemon.
type Backend struct {
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func init() {
	backend.Register("ollama", func(cfg config.ModelConfig) (backend.Backend, error) {
		return New(cfg.Ollama)
	})
}

// New creates a new Ollama backend from config.
func New(cfg config.OllamaConfig) (*Backend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ollama backend: endpoint is required")
	}
	return &Backend{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{},
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "ollama" }

// Generate sends the system prompt and turns to the daemon's /api/chat
// endpoint. The turn-formatting contract is identical to the cloud backends:
// the system prompt leads, then the turns in order.
func (b *Backend) Generate(ctx context.Context, systemPrompt string, turns []backend.Message) (string, error) {
	messages := make([]backend.Message, 0, len(turns)+1)
	messages = append(messages, backend.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	reqBody := chatRequest{
		Model:    b.model,
		Messages: messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: b.temperature,
			NumPredict:  b.maxTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", b.fail(fmt.Errorf("marshalling chat request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", b.fail(fmt.Errorf("creating chat request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", b.fail(fmt.Errorf("chat request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", b.fail(fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", b.fail(fmt.Errorf("decoding chat response: %w", err))
	}
	if chatResp.Error != "" {
		return "", b.fail(fmt.Errorf("api error: %s", chatResp.Error))
	}

	content := chatResp.Message.Content
	slog.Debug("completion received", "backend", b.Name(), "model", b.model, "length", len(content))
	return content, nil
}

func (b *Backend) fail(err error) error {
	return &backend.Error{Backend: b.Name(), Err: err}
}

// --- Wire types ---

type chatRequest struct {
	Model    string            `json:"model"`
	Messages []backend.Message `json:"messages"`
	Stream   bool              `json:"stream"`
	Options  chatOptions       `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}
