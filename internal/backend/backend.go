// Package backend defines the interface for pluggable chat-completion model
// backends.
//
// A backend turns a system prompt plus an ordered list of conversation turns
// into one completion string. Parley ships with three backends: OpenAI and
// Groq (cloud chat-completion APIs) and Ollama (local daemon). New backends
// register themselves with this package; call sites never branch on the
// provider.
package backend

import (
	"context"
	"fmt"

	"github.com/averdin/parley/internal/config"
)

// Message is a single chat turn in the provider wire format.
// Role is "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Backend is the interface every model backend must implement.
type Backend interface {
	// Name returns the backend identifier (e.g., "openai", "groq", "ollama").
	Name() string

	// Generate produces one completion for the given system prompt and turns.
	// The system prompt is always sent as the distinguished leading message;
	// turns may be empty for the opening exchange. An empty completion inside
	// a well-formed response is success; callers validate non-empty content.
	// Failures are returned as a *Error; this layer never retries.
	Generate(ctx context.Context, systemPrompt string, turns []Message) (string, error)
}

// Error is a typed failure from a backend call. It carries the backend name
// and wraps the transport or API error so callers can surface the provider
// message and decide whether to retry.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Factory constructs a backend from the model configuration.
type Factory func(cfg config.ModelConfig) (Backend, error)

var registry = map[string]Factory{}

// Register makes a backend constructor available under the given name.
// Backends call this from their init functions.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New constructs the backend selected by cfg.Backend.
func New(cfg config.ModelConfig) (Backend, error) {
	factory, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
	return factory(cfg)
}
