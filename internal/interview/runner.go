package interview

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxExchanges bounds a run when the model never emits the completion
// marker.
const DefaultMaxExchanges = 20

// ErrCancelled reports that a run stopped because the caller's cancellation
// flag was set. The transcript built so far is still returned.
var ErrCancelled = errors.New("simulation cancelled")

// RunOptions configures a full simulated interview run.
type RunOptions struct {
	// MaxExchanges caps interviewer/interviewee exchange pairs.
	// Zero means DefaultMaxExchanges.
	MaxExchanges int

	// OnTurn, if set, is invoked after each generated turn with the derived
	// conversation state.
	OnTurn func(Turn, State)

	// Cancelled, if set, is checked between turns, never during an in-flight
	// model call, so one already-dispatched call completes before the loop
	// honors cancellation.
	Cancelled func() bool
}

// Runner drives a whole interview: roles alternate, starting with the
// interviewer over an empty transcript, until either role's turn yields the
// completed state or the exchange cap is reached.
type Runner struct {
	engine *Engine
}

// NewRunner creates a runner over the given engine.
func NewRunner(engine *Engine) *Runner {
	return &Runner{engine: engine}
}

// Run executes the turn-taking loop starting from seed (usually empty) and
// returns the full transcript and the final state. Model calls are strictly
// sequential; each turn feeds the whole prior transcript back in.
func (r *Runner) Run(ctx context.Context, ictx Context, interviewer, interviewee Persona, seed []Turn, opts RunOptions) ([]Turn, State, error) {
	maxExchanges := opts.MaxExchanges
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	maxTurns := len(seed) + 2*maxExchanges

	personas := map[Role]Persona{
		RoleInterviewer: interviewer,
		RoleInterviewee: interviewee,
	}

	transcript := make([]Turn, len(seed))
	copy(transcript, seed)
	state := StateOngoing

	for len(transcript) < maxTurns {
		if opts.Cancelled != nil && opts.Cancelled() {
			return transcript, state, ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return transcript, state, err
		}

		role := NextRole(transcript)
		result, err := r.engine.TakeTurn(ctx, ictx, personas[role], transcript)
		if err != nil {
			return transcript, state, fmt.Errorf("%s turn %d: %w", role, len(transcript)+1, err)
		}

		turn := Turn{Role: role, Content: result.Content, Timestamp: time.Now().UTC()}
		transcript = append(transcript, turn)
		state = result.State

		if opts.OnTurn != nil {
			opts.OnTurn(turn, state)
		}
		if state == StateCompleted {
			break
		}
	}

	return transcript, state, nil
}
