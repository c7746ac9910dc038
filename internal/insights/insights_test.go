package insights_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/insights"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/prompt"
)

type fakeBackend struct {
	response     string
	err          error
	systemPrompt string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Generate(_ context.Context, systemPrompt string, _ []backend.Message) (string, error) {
	f.systemPrompt = systemPrompt
	return f.response, f.err
}

func sampleTranscript() []interview.Turn {
	return []interview.Turn{
		{Role: interview.RoleInterviewer, Content: "What frustrates you most?"},
		{Role: interview.RoleInterviewee, Content: "Syncing never works."},
	}
}

func TestSummarizeStrictJSON(t *testing.T) {
	fake := &fakeBackend{response: `{"keyFindings":["sync is broken"],"recommendations":["fix sync"]}`}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	result, err := s.Summarize(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(result.KeyFindings) != 1 || result.KeyFindings[0] != "sync is broken" {
		t.Fatalf("keyFindings = %v", result.KeyFindings)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "fix sync" {
		t.Fatalf("recommendations = %v", result.Recommendations)
	}
}

func TestSummarizeLeadingProse(t *testing.T) {
	fake := &fakeBackend{response: "Sure, here it is:\n{\"keyFindings\":[\"a\"],\"recommendations\":[\"b\"]}"}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	result, err := s.Summarize(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.KeyFindings[0] != "a" || result.Recommendations[0] != "b" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSummarizeTranscriptRenderedIntoPrompt(t *testing.T) {
	fake := &fakeBackend{response: `{"keyFindings":["x"],"recommendations":["y"]}`}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	if _, err := s.Summarize(context.Background(), sampleTranscript()); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(fake.systemPrompt, "INTERVIEWER: What frustrates you most?") {
		t.Fatalf("transcript not serialized into prompt:\n%s", fake.systemPrompt)
	}
	if !strings.Contains(fake.systemPrompt, "INTERVIEWEE: Syncing never works.") {
		t.Fatalf("transcript not serialized into prompt:\n%s", fake.systemPrompt)
	}
	if strings.Contains(fake.systemPrompt, "{{conversation}}") {
		t.Fatal("conversation placeholder left unreplaced")
	}
}

func TestSummarizeMissingField(t *testing.T) {
	fake := &fakeBackend{response: `{"keyFindings":["only findings"]}`}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	_, err := s.Summarize(context.Background(), sampleTranscript())
	if !errors.Is(err, insights.ErrMalformedInsights) {
		t.Fatalf("err = %v, want ErrMalformedInsights", err)
	}
}

func TestSummarizeNoJSON(t *testing.T) {
	fake := &fakeBackend{response: "I could not produce findings, sorry."}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	_, err := s.Summarize(context.Background(), sampleTranscript())
	if !errors.Is(err, insights.ErrMalformedInsights) {
		t.Fatalf("err = %v, want ErrMalformedInsights", err)
	}
}

func TestSummarizeBackendError(t *testing.T) {
	fake := &fakeBackend{err: &backend.Error{Backend: "fake", Err: errors.New("boom")}}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	_, err := s.Summarize(context.Background(), sampleTranscript())
	var modelErr *interview.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("error type = %T, want *interview.ModelError", err)
	}
}

func TestSummarizeEmptyArraysAreValid(t *testing.T) {
	fake := &fakeBackend{response: `{"keyFindings":[],"recommendations":[]}`}
	s := insights.NewSummarizer(fake, prompt.NewStore())

	result, err := s.Summarize(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.KeyFindings == nil || result.Recommendations == nil {
		t.Fatal("empty arrays should round-trip as empty slices")
	}
}
