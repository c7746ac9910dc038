// Package session manages the lifecycle of interview simulations: creation,
// background auto-runs, manual turn-taking, cancellation, and summarization.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/averdin/parley/internal/config"
	"github.com/averdin/parley/internal/insights"
	"github.com/averdin/parley/internal/interview"
)

var (
	// ErrNotFound reports an unknown session ID.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyRunning reports an operation that conflicts with an active run.
	ErrAlreadyRunning = errors.New("session is already running")

	// ErrTranscriptTooShort reports a summarize request over a transcript
	// below the configured minimum.
	ErrTranscriptTooShort = errors.New("transcript too short to summarize")

	// ErrBlankTurn reports an attempt to append an empty utterance.
	ErrBlankTurn = errors.New("turn content is blank")

	// ErrUnknownRole reports a turn authored for neither interview role.
	ErrUnknownRole = errors.New("unknown role")
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Session is one interview simulation. All mutable fields are guarded by mu;
// the cancelled flag is separate so a cancel request never blocks behind an
// in-flight model call.
type Session struct {
	ID          string
	Context     interview.Context
	Interviewer interview.Persona
	Interviewee interview.Persona

	mu         sync.Mutex
	status     Status
	state      interview.State
	transcript []interview.Turn
	insights   *interview.Insights
	lastError  string
	createdAt  time.Time
	updatedAt  time.Time

	cancelled atomic.Bool
}

// Snapshot is a point-in-time JSON view of a session.
type Snapshot struct {
	ID          string              `json:"id"`
	Status      Status              `json:"status"`
	State       interview.State     `json:"state"`
	Context     interview.Context   `json:"context"`
	Interviewer interview.Persona   `json:"interviewer"`
	Interviewee interview.Persona   `json:"interviewee"`
	Messages    []interview.Turn    `json:"messages"`
	Insights    *interview.Insights `json:"insights,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (s *Session) snapshotLocked() Snapshot {
	messages := make([]interview.Turn, len(s.transcript))
	copy(messages, s.transcript)

	var result *interview.Insights
	if s.insights != nil {
		clone := *s.insights
		result = &clone
	}

	return Snapshot{
		ID:          s.ID,
		Status:      s.status,
		State:       s.state,
		Context:     s.Context,
		Interviewer: s.Interviewer,
		Interviewee: s.Interviewee,
		Messages:    messages,
		Insights:    result,
		Error:       s.lastError,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
}

// Manager owns all sessions and the simulation machinery they share.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	engine     *interview.Engine
	runner     *interview.Runner
	summarizer *insights.Summarizer

	maxExchanges    int
	minInsightTurns int
}

// NewManager creates a session manager wired to the given simulation
// components.
func NewManager(engine *interview.Engine, runner *interview.Runner, summarizer *insights.Summarizer, cfg config.SimulationConfig) *Manager {
	maxExchanges := cfg.MaxExchanges
	if maxExchanges <= 0 {
		maxExchanges = interview.DefaultMaxExchanges
	}
	minInsightTurns := cfg.MinInsightTurns
	if minInsightTurns <= 0 {
		minInsightTurns = 2
	}
	return &Manager{
		sessions:        make(map[string]*Session),
		engine:          engine,
		runner:          runner,
		summarizer:      summarizer,
		maxExchanges:    maxExchanges,
		minInsightTurns: minInsightTurns,
	}
}

// Create registers a new idle session. Nil personas fall back to defaults
// derived from the interview context.
func (m *Manager) Create(ictx interview.Context, interviewer, interviewee *interview.Persona) Snapshot {
	now := time.Now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		Context:     ictx,
		Interviewer: interview.DefaultInterviewer(),
		Interviewee: interview.DefaultInterviewee(ictx),
		status:      StatusIdle,
		state:       interview.StateOngoing,
		createdAt:   now,
		updatedAt:   now,
	}
	if interviewer != nil {
		s.Interviewer = *interviewer
		s.Interviewer.Role = interview.RoleInterviewer
	}
	if interviewee != nil {
		s.Interviewee = *interviewee
		s.Interviewee.Role = interview.RoleInterviewee
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session created", "session", s.ID, "project", ictx.ProjectName)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Snapshot returns a point-in-time view of a session.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// List returns snapshots of all sessions, newest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		snapshots = append(snapshots, s.snapshotLocked())
		s.mu.Unlock()
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Delete removes a session. A running session is cancelled first; its
// goroutine finishes against its own session pointer.
func (m *Manager) Delete(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.cancelled.Store(true)

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	slog.Info("session deleted", "session", id)
	return nil
}

// StartRun launches the auto-run loop in the background. The provided context
// should outlive the triggering request; it bounds the run during shutdown.
// Turns generated so far are kept as a seed, so a manually started
// conversation can be handed over to the auto-run.
func (m *Manager) StartRun(ctx context.Context, id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.status = StatusRunning
	s.lastError = ""
	s.cancelled.Store(false)
	seed := make([]interview.Turn, len(s.transcript))
	copy(seed, s.transcript)
	s.mu.Unlock()

	go m.run(ctx, s, seed)
	return nil
}

func (m *Manager) run(ctx context.Context, s *Session, seed []interview.Turn) {
	opts := interview.RunOptions{
		MaxExchanges: m.maxExchanges,
		Cancelled:    s.cancelled.Load,
		OnTurn: func(turn interview.Turn, state interview.State) {
			s.mu.Lock()
			s.transcript = append(s.transcript, turn)
			s.state = state
			s.updatedAt = time.Now().UTC()
			s.mu.Unlock()
		},
	}

	_, finalState, err := m.runner.Run(ctx, s.Context, s.Interviewer, s.Interviewee, seed, opts)

	s.mu.Lock()
	s.state = finalState
	s.updatedAt = time.Now().UTC()
	switch {
	case errors.Is(err, interview.ErrCancelled):
		s.status = StatusCancelled
		slog.Info("session run cancelled", "session", s.ID, "turns", len(s.transcript))
	case err != nil:
		s.status = StatusFailed
		s.lastError = err.Error()
		slog.Error("session run failed", "session", s.ID, "error", err)
	case finalState == interview.StateCompleted:
		s.status = StatusCompleted
		slog.Info("session run completed", "session", s.ID, "turns", len(s.transcript))
	default:
		// Exchange cap reached without a completion marker.
		s.status = StatusCompleted
		slog.Warn("session run hit exchange cap", "session", s.ID, "turns", len(s.transcript))
	}
	shouldSummarize := s.status == StatusCompleted && len(s.transcript) >= m.minInsightTurns
	s.mu.Unlock()

	if shouldSummarize {
		if _, err := m.Summarize(ctx, s.ID); err != nil {
			slog.Error("auto-summarize failed", "session", s.ID, "error", err)
		}
	}
}

// Cancel flags a running session to stop. The flag is honored between turns;
// an in-flight model call completes first.
func (m *Manager) Cancel(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.cancelled.Store(true)
	slog.Info("session cancel requested", "session", id)
	return nil
}

// AppendTurn records a manually authored utterance, e.g. a human playing the
// interviewee against an AI interviewer.
func (m *Manager) AppendTurn(id string, role interview.Role, content string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if !role.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if strings.TrimSpace(content) == "" {
		return Snapshot{}, ErrBlankTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		return Snapshot{}, ErrAlreadyRunning
	}
	s.transcript = append(s.transcript, interview.Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.updatedAt = time.Now().UTC()
	return s.snapshotLocked(), nil
}

// NextTurn generates exactly one AI turn for whichever role speaks next and
// appends it to the transcript. The session is marked running for the
// duration of the model call.
func (m *Manager) NextTurn(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		return Snapshot{}, ErrAlreadyRunning
	}
	prior := s.status
	s.status = StatusRunning
	transcript := make([]interview.Turn, len(s.transcript))
	copy(transcript, s.transcript)
	s.mu.Unlock()

	role := interview.NextRole(transcript)
	persona := s.Interviewer
	if role == interview.RoleInterviewee {
		persona = s.Interviewee
	}
	result, err := m.engine.TakeTurn(ctx, s.Context, persona, transcript)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = time.Now().UTC()
	if err != nil {
		s.status = prior
		return Snapshot{}, fmt.Errorf("%s turn %d: %w", role, len(transcript)+1, err)
	}
	s.transcript = append(s.transcript, interview.Turn{
		Role:      role,
		Content:   result.Content,
		Timestamp: time.Now().UTC(),
	})
	s.state = result.State
	if result.State == interview.StateCompleted {
		s.status = StatusCompleted
	} else {
		s.status = StatusIdle
	}
	return s.snapshotLocked(), nil
}

// Summarize produces insights for a session's transcript and stores them on
// the session. It can be called on demand or by the auto-run on completion.
func (m *Manager) Summarize(ctx context.Context, id string) (interview.Insights, error) {
	s, err := m.get(id)
	if err != nil {
		return interview.Insights{}, err
	}

	s.mu.Lock()
	if len(s.transcript) < m.minInsightTurns {
		s.mu.Unlock()
		return interview.Insights{}, fmt.Errorf("%w: %d turns, need %d", ErrTranscriptTooShort, len(s.transcript), m.minInsightTurns)
	}
	transcript := make([]interview.Turn, len(s.transcript))
	copy(transcript, s.transcript)
	s.mu.Unlock()

	result, err := m.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return interview.Insights{}, err
	}

	s.mu.Lock()
	s.insights = &result
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	slog.Info("session summarized", "session", id, "findings", len(result.KeyFindings))
	return result, nil
}
