// Package analysis turns a raw project idea into research scaffolding:
// suggested names, audience segments, objectives, and interview questions.
package analysis

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

// ErrMalformedAnalysis reports a response that could not be parsed into the
// expected analysis shape after all retries.
var ErrMalformedAnalysis = errors.New("malformed analysis response")

// ErrMalformedQuestions reports a response that could not be parsed into a
// question list after all retries.
var ErrMalformedQuestions = errors.New("malformed questions response")

// Config bounds the retry behavior for analysis calls. Model responses to
// these prompts are flaky enough that one attempt is rarely sufficient.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
}

// ProjectAnalysis is the structured suggestion set for a project idea.
type ProjectAnalysis struct {
	Names      []string `json:"names"`
	Audiences  []string `json:"audiences"`
	Objectives []string `json:"objectives"`
}

// GeneratedQuestion is a single suggested interview question.
type GeneratedQuestion struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Service issues analysis and question-generation calls with bounded retries.
type Service struct {
	backend   backend.Backend
	templates *prompt.Store
	cfg       Config
}

// NewService creates an analysis service. Zero config fields fall back to
// 3 attempts with a 1s delay.
func NewService(b backend.Backend, templates *prompt.Store, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Service{backend: b, templates: templates, cfg: cfg}
}

// AnalyzeProject suggests names, audiences, and objectives for an idea.
// All three lists must be present and non-empty for the attempt to count.
func (s *Service) AnalyzeProject(ctx context.Context, idea string) (ProjectAnalysis, error) {
	systemPrompt := prompt.Render(
		s.templates.Get(prompt.TemplateAnalysis),
		prompt.Bindings{"context.idea": idea},
	)

	var result ProjectAnalysis
	err := s.withRetries(ctx, "analyze project", func() error {
		raw, err := s.backend.Generate(ctx, systemPrompt, nil)
		if err != nil {
			return &interview.ModelError{Err: err}
		}
		var parsed ProjectAnalysis
		if err := jsonextract.UnmarshalObject(raw, &parsed); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
		}
		if len(parsed.Names) == 0 || len(parsed.Audiences) == 0 || len(parsed.Objectives) == 0 {
			return fmt.Errorf("%w: empty suggestion list", ErrMalformedAnalysis)
		}
		result = parsed
		return nil
	})
	return result, err
}

// GenerateQuestions suggests interview questions for an objective, audience,
// and problem domain.
func (s *Service) GenerateQuestions(ctx context.Context, objective, audience, domain string) ([]GeneratedQuestion, error) {
	systemPrompt := prompt.Render(
		s.templates.Get(prompt.TemplateQuestions),
		prompt.Bindings{
			"context.objectives":     objective,
			"context.targetAudience": audience,
			"context.idea":           domain,
		},
	)

	var result []GeneratedQuestion
	err := s.withRetries(ctx, "generate questions", func() error {
		raw, err := s.backend.Generate(ctx, systemPrompt, nil)
		if err != nil {
			return &interview.ModelError{Err: err}
		}
		var parsed []GeneratedQuestion
		if err := jsonextract.UnmarshalArray(raw, &parsed); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedQuestions, err)
		}
		if len(parsed) == 0 {
			return fmt.Errorf("%w: empty question list", ErrMalformedQuestions)
		}
		result = parsed
		return nil
	})
	return result, err
}

// withRetries runs attempt up to MaxRetries times, sleeping RetryDelay
// between attempts. Context cancellation aborts the wait immediately.
func (s *Service) withRetries(ctx context.Context, op string, attempt func() error) error {
	var lastErr error
	for i := 1; i <= s.cfg.MaxRetries; i++ {
		lastErr = attempt()
		if lastErr == nil {
			return nil
		}
		slog.Warn("attempt failed", "op", op, "attempt", i, "max", s.cfg.MaxRetries, "error", lastErr)
		if i == s.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(s.cfg.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, s.cfg.MaxRetries, lastErr)
}
