package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/config"
	"github.com/averdin/parley/internal/insights"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/prompt"
	"github.com/averdin/parley/internal/session"
)

// scriptedBackend pops one response per call, safely across goroutines.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []string
}

func (f *scriptedBackend) Name() string { return "fake" }

func (f *scriptedBackend) Generate(context.Context, string, []backend.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return "", errors.New("fake backend: no scripted responses left")
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}

// gatedBackend blocks each call until the test feeds it a response, and
// signals on entered so tests can synchronize with an in-flight call.
type gatedBackend struct {
	entered chan struct{}
	feed    chan string
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{entered: make(chan struct{}, 8), feed: make(chan string)}
}

func (f *gatedBackend) Name() string { return "fake" }

func (f *gatedBackend) Generate(ctx context.Context, _ string, _ []backend.Message) (string, error) {
	f.entered <- struct{}{}
	select {
	case response := <-f.feed:
		return response, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newManager(b backend.Backend) *session.Manager {
	store := prompt.NewStore()
	engine := interview.NewEngine(b, store)
	return session.NewManager(
		engine,
		interview.NewRunner(engine),
		insights.NewSummarizer(b, store),
		config.SimulationConfig{MaxExchanges: 10, MinInsightTurns: 2},
	)
}

func testContext() interview.Context {
	return interview.Context{
		ProjectName:    "Acme Notes",
		Objectives:     []string{"understand note-taking habits"},
		TargetAudience: "freelance designers",
		Questions: []interview.Question{
			{Question: "How do you take notes today?", Purpose: "baseline behavior"},
		},
	}
}

func waitFor(t *testing.T, m *session.Manager, id string, done func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Snapshot(id)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if done(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for session condition")
	return session.Snapshot{}
}

func TestCreateDefaultPersonas(t *testing.T) {
	m := newManager(&scriptedBackend{})

	snap := m.Create(testContext(), nil, nil)
	if snap.Status != session.StatusIdle {
		t.Fatalf("status = %q", snap.Status)
	}
	if snap.ID == "" {
		t.Fatal("session ID not assigned")
	}
	if !strings.Contains(snap.Interviewee.Background, "freelance designers") {
		t.Fatalf("interviewee background = %q, want audience-derived", snap.Interviewee.Background)
	}
	if snap.Interviewer.Role != interview.RoleInterviewer {
		t.Fatalf("interviewer role = %q", snap.Interviewer.Role)
	}
}

func TestCreateCustomPersonaRoleEnforced(t *testing.T) {
	m := newManager(&scriptedBackend{})

	custom := &interview.Persona{Role: interview.RoleInterviewer, Background: "A skeptic"}
	snap := m.Create(testContext(), nil, custom)
	if snap.Interviewee.Role != interview.RoleInterviewee {
		t.Fatalf("interviewee role = %q, want forced to interviewee", snap.Interviewee.Role)
	}
	if snap.Interviewee.Background != "A skeptic" {
		t.Fatalf("background = %q", snap.Interviewee.Background)
	}
}

func TestStartRunCompletesAndSummarizes(t *testing.T) {
	fake := &scriptedBackend{responses: []string{
		"Welcome! How do you take notes today?",
		"Mostly paper. That's everything from me. [[STATE:COMPLETED]]",
		`{"keyFindings":["paper dominates"],"recommendations":["support quick capture"]}`,
	}}
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	if err := m.StartRun(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	final := waitFor(t, m, snap.ID, func(s session.Snapshot) bool {
		return s.Status == session.StatusCompleted && s.Insights != nil
	})
	if len(final.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(final.Messages))
	}
	if final.State != interview.StateCompleted {
		t.Fatalf("state = %q", final.State)
	}
	if final.Insights.KeyFindings[0] != "paper dominates" {
		t.Fatalf("insights = %+v", final.Insights)
	}
}

func TestStartRunWhileRunning(t *testing.T) {
	fake := newGatedBackend()
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	if err := m.StartRun(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	<-fake.entered
	if err := m.StartRun(context.Background(), snap.ID); !errors.Is(err, session.ErrAlreadyRunning) {
		t.Fatalf("second StartRun err = %v, want ErrAlreadyRunning", err)
	}

	// Unblock and finish the run.
	fake.feed <- "Hello. [[STATE:COMPLETED]]"
	waitFor(t, m, snap.ID, func(s session.Snapshot) bool {
		return s.Status != session.StatusRunning
	})
}

func TestCancelBetweenTurns(t *testing.T) {
	fake := newGatedBackend()
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	if err := m.StartRun(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	// Cancel while the first model call is in flight; it completes and the
	// flag is honored before the next turn.
	<-fake.entered
	if err := m.Cancel(snap.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	fake.feed <- "First question?"

	final := waitFor(t, m, snap.ID, func(s session.Snapshot) bool {
		return s.Status == session.StatusCancelled
	})
	if len(final.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(final.Messages))
	}
}

func TestRunFailureRecorded(t *testing.T) {
	// One response, then the backend runs dry mid-conversation.
	fake := &scriptedBackend{responses: []string{"Opening question?"}}
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	if err := m.StartRun(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	final := waitFor(t, m, snap.ID, func(s session.Snapshot) bool {
		return s.Status == session.StatusFailed
	})
	if final.Error == "" {
		t.Fatal("failed run should record its error")
	}
	if len(final.Messages) != 1 {
		t.Fatalf("partial transcript has %d messages, want 1", len(final.Messages))
	}
}

func TestManualTurnTaking(t *testing.T) {
	fake := &scriptedBackend{responses: []string{
		"Welcome! How do you take notes today?",
		"Interesting. What frustrates you about paper?",
	}}
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	// AI interviewer opens.
	after, err := m.NextTurn(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if len(after.Messages) != 1 || after.Messages[0].Role != interview.RoleInterviewer {
		t.Fatalf("after opening: %+v", after.Messages)
	}
	if after.Status != session.StatusIdle {
		t.Fatalf("status = %q, want idle between manual turns", after.Status)
	}

	// Human answers as the interviewee.
	after, err = m.AppendTurn(snap.ID, interview.RoleInterviewee, "I use paper notebooks.")
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if len(after.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(after.Messages))
	}

	// AI interviewer follows up.
	after, err = m.NextTurn(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if after.Messages[2].Role != interview.RoleInterviewer {
		t.Fatalf("third turn role = %q", after.Messages[2].Role)
	}
}

func TestNextTurnCompletion(t *testing.T) {
	fake := &scriptedBackend{responses: []string{"That's all I needed, thanks! [[STATE:COMPLETED]]"}}
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	after, err := m.NextTurn(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if after.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want completed", after.Status)
	}
	if after.State != interview.StateCompleted {
		t.Fatalf("state = %q", after.State)
	}
}

func TestAppendTurnValidation(t *testing.T) {
	m := newManager(&scriptedBackend{})
	snap := m.Create(testContext(), nil, nil)

	if _, err := m.AppendTurn(snap.ID, interview.RoleInterviewee, "   "); !errors.Is(err, session.ErrBlankTurn) {
		t.Fatalf("blank turn err = %v, want ErrBlankTurn", err)
	}
	if _, err := m.AppendTurn(snap.ID, "moderator", "hi"); !errors.Is(err, session.ErrUnknownRole) {
		t.Fatalf("unknown role err = %v, want ErrUnknownRole", err)
	}
	if _, err := m.AppendTurn("no-such-id", interview.RoleInterviewee, "hi"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("unknown session err = %v, want ErrNotFound", err)
	}
}

func TestSummarizeTooShort(t *testing.T) {
	m := newManager(&scriptedBackend{})
	snap := m.Create(testContext(), nil, nil)

	_, err := m.Summarize(context.Background(), snap.ID)
	if !errors.Is(err, session.ErrTranscriptTooShort) {
		t.Fatalf("err = %v, want ErrTranscriptTooShort", err)
	}
}

func TestSummarizeOnDemand(t *testing.T) {
	fake := &scriptedBackend{responses: []string{
		`{"keyFindings":["a"],"recommendations":["b"]}`,
	}}
	m := newManager(fake)
	snap := m.Create(testContext(), nil, nil)

	if _, err := m.AppendTurn(snap.ID, interview.RoleInterviewer, "Q?"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if _, err := m.AppendTurn(snap.ID, interview.RoleInterviewee, "A."); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	result, err := m.Summarize(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.KeyFindings[0] != "a" {
		t.Fatalf("result = %+v", result)
	}

	stored, err := m.Snapshot(snap.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if stored.Insights == nil || stored.Insights.Recommendations[0] != "b" {
		t.Fatalf("insights not stored on session: %+v", stored.Insights)
	}
}

func TestDelete(t *testing.T) {
	m := newManager(&scriptedBackend{})
	snap := m.Create(testContext(), nil, nil)

	if err := m.Delete(snap.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Snapshot(snap.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.Delete(snap.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	m := newManager(&scriptedBackend{})
	first := m.Create(testContext(), nil, nil)
	time.Sleep(2 * time.Millisecond)
	second := m.Create(testContext(), nil, nil)

	all := m.List()
	if len(all) != 2 {
		t.Fatalf("got %d sessions, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatal("sessions not ordered newest first")
	}
}
