// Package batch generates a complete interview transcript plus insights in a
// single model call, trading per-turn fidelity for speed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/jsonextract"
	"github.com/averdin/parley/internal/prompt"
)

// ErrGenerationFailed reports a response that could not be parsed into a
// transcript and insights. Nothing partial is returned.
var ErrGenerationFailed = errors.New("batch generation failed")

// Result is a full synthetic interview.
type Result struct {
	Messages []interview.Turn   `json:"messages"`
	Insights interview.Insights `json:"insights"`
}

// Generator produces whole interviews in one shot.
type Generator struct {
	backend   backend.Backend
	templates *prompt.Store
}

// NewGenerator creates a generator over the given backend and template store.
func NewGenerator(b backend.Backend, templates *prompt.Store) *Generator {
	return &Generator{backend: b, templates: templates}
}

// Generate renders the batch template from the interview context, issues one
// completion call, and parses the combined transcript-plus-insights payload.
// Every returned turn is stamped with the generation time.
func (g *Generator) Generate(ctx context.Context, ictx interview.Context) (Result, error) {
	systemPrompt := prompt.Render(
		g.templates.Get(prompt.TemplateBatch),
		interview.ContextBindings(ictx),
	)

	raw, err := g.backend.Generate(ctx, systemPrompt, nil)
	if err != nil {
		return Result{}, &interview.ModelError{Err: err}
	}

	var parsed struct {
		Messages []struct {
			Role    interview.Role `json:"role"`
			Content string         `json:"content"`
		} `json:"messages"`
		Insights *interview.Insights `json:"insights"`
	}
	if err := jsonextract.UnmarshalObject(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if parsed.Messages == nil || parsed.Insights == nil {
		return Result{}, fmt.Errorf("%w: missing messages or insights", ErrGenerationFailed)
	}
	for i, m := range parsed.Messages {
		if !m.Role.Valid() {
			return Result{}, fmt.Errorf("%w: message %d has unknown role %q", ErrGenerationFailed, i, m.Role)
		}
	}

	now := time.Now().UTC()
	result := Result{
		Messages: make([]interview.Turn, 0, len(parsed.Messages)),
		Insights: *parsed.Insights,
	}
	for _, m := range parsed.Messages {
		result.Messages = append(result.Messages, interview.Turn{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: now,
		})
	}

	slog.Info("batch interview generated",
		"project", ictx.ProjectName,
		"messages", len(result.Messages),
		"findings", len(result.Insights.KeyFindings))
	return result, nil
}
