// Package groq implements the backend.Backend interface against the Groq
// API, which exposes an OpenAI-compatible chat-completion endpoint.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/config"
)

const completionsURL = "https://api.groq.com/openai/v1/chat/completions"

// Backend calls the Groq chat-completion API.
type Backend struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func init() {
	backend.Register("groq", func(cfg config.ModelConfig) (backend.Backend, error) {
		return New(cfg.Groq)
	})
}

// New creates a new Groq backend from config.
func New(cfg config.GroqConfig) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq backend: api_key is required")
	}
	return &Backend{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{},
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "groq" }

// Generate sends the system prompt and turns to the Groq chat endpoint.
func (b *Backend) Generate(ctx context.Context, systemPrompt string, turns []backend.Message) (string, error) {
	messages := make([]backend.Message, 0, len(turns)+1)
	messages = append(messages, backend.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	reqBody := chatRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", b.fail(fmt.Errorf("marshalling chat request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", b.fail(fmt.Errorf("creating chat request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
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
	if chatResp.Error != nil {
		return "", b.fail(fmt.Errorf("api error: %s", chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return "", b.fail(fmt.Errorf("no choices returned from chat API"))
	}

	content := chatResp.Choices[0].Message.Content
	slog.Debug("completion received", "backend", b.Name(), "model", b.model, "length", len(content))
	return content, nil
}

func (b *Backend) fail(err error) error {
	return &backend.Error{Backend: b.Name(), Err: err}
}

// --- Wire types ---

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []backend.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
