// Package insights turns a finished interview transcript into structured
// findings with one summarization call.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/jsonextract"
	"github.com/averdin/parley/internal/prompt"
)

// ErrMalformedInsights reports that the model's response could not be parsed
// into the expected shape. No partial result is ever returned.
var ErrMalformedInsights = errors.New("malformed insights response")

// Summarizer produces an Insights result from a transcript.
type Summarizer struct {
	backend   backend.Backend
	templates *prompt.Store
}

// NewSummarizer creates a summarizer over the given backend and template store.
func NewSummarizer(b backend.Backend, templates *prompt.Store) *Summarizer {
	return &Summarizer{backend: b, templates: templates}
}

// Summarize renders the insights template over the serialized transcript,
// issues one completion call, and strict-parses the JSON result. The direct
// parse is attempted first; if the model wrapped the JSON in prose, the first
// balanced object is extracted and parsed instead.
func (s *Summarizer) Summarize(ctx context.Context, transcript []interview.Turn) (interview.Insights, error) {
	systemPrompt := prompt.Render(
		s.templates.Get(prompt.TemplateInsights),
		interview.ConversationBindings(transcript),
	)

	raw, err := s.backend.Generate(ctx, systemPrompt, nil)
	if err != nil {
		return interview.Insights{}, &interview.ModelError{Err: err}
	}

	// Pointer fields distinguish a missing key from an empty array.
	var parsed struct {
		KeyFindings     *[]string `json:"keyFindings"`
		Recommendations *[]string `json:"recommendations"`
	}
	if err := jsonextract.UnmarshalObject(raw, &parsed); err != nil {
		return interview.Insights{}, fmt.Errorf("%w: %v", ErrMalformedInsights, err)
	}
	if parsed.KeyFindings == nil || parsed.Recommendations == nil {
		return interview.Insights{}, fmt.Errorf("%w: missing keyFindings or recommendations", ErrMalformedInsights)
	}

	slog.Debug("insights generated",
		"findings", len(*parsed.KeyFindings),
		"recommendations", len(*parsed.Recommendations))
	return interview.Insights{
		KeyFindings:     *parsed.KeyFindings,
		Recommendations: *parsed.Recommendations,
	}, nil
}
