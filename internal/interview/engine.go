package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/prompt"
)

// ErrEmptyResponse reports that the model returned blank content for a turn.
// The turn is fatal for the caller to retry or surface; the engine never
// retries on its own.
var ErrEmptyResponse = errors.New("empty response from model")

// ModelError reports a backend-level failure for one turn.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error: %v", e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// TurnResult is one generated utterance plus the conversation state derived
// from it.
type TurnResult struct {
	Content string `json:"content"`
	State   State  `json:"state"`
}

// Engine generates a single role's next utterance.
type Engine struct {
	backend   backend.Backend
	templates *prompt.Store
}

// NewEngine creates a conversation engine over the given backend and
// template store.
func NewEngine(b backend.Backend, templates *prompt.Store) *Engine {
	return &Engine{backend: b, templates: templates}
}

// TakeTurn renders the role-appropriate system prompt, replays the prior
// transcript from the persona's point of view, and asks the backend for the
// next utterance. The returned content has state markers and thinking blocks
// stripped; the returned state is derived from the markers alone.
//
// The transcript is read-only here: turns authored by this persona's role are
// replayed as "assistant", all others as "user", so the model always sees
// itself as the assistant. An empty transcript produces the opening message.
func (e *Engine) TakeTurn(ctx context.Context, ictx Context, p Persona, transcript []Turn) (TurnResult, error) {
	templateName := prompt.TemplateInterviewer
	if p.Role == RoleInterviewee {
		templateName = prompt.TemplateInterviewee
	}
	systemPrompt := prompt.Render(
		e.templates.Get(templateName),
		ContextBindings(ictx).Merge(PersonaBindings(p)),
	)

	turns := make([]backend.Message, 0, len(transcript))
	for _, t := range transcript {
		role := "user"
		if t.Role == p.Role {
			role = "assistant"
		}
		turns = append(turns, backend.Message{Role: role, Content: t.Content})
	}

	raw, err := e.backend.Generate(ctx, systemPrompt, turns)
	if err != nil {
		return TurnResult{}, &ModelError{Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return TurnResult{}, ErrEmptyResponse
	}

	state, content := ExtractState(raw)
	content = strings.TrimSpace(StripThinking(content))

	slog.Debug("turn generated", "role", p.Role, "state", state, "length", len(content))
	return TurnResult{Content: content, State: state}, nil
}
