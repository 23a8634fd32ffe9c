package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// State is a pipeline run's position in the stage sequence.
type State string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateNormalizing  State = "normalizing"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StatePlaying      State = "playing"
)

// nextState defines the strictly forward stage order. Playing completes back
// to Idle; there is no branching and no feedback loop.
var nextState = map[State]State{
	StateIdle:         StateCapturing,
	StateCapturing:    StateNormalizing,
	StateNormalizing:  StateTranscribing,
	StateTranscribing: StateGenerating,
	StateGenerating:   StateSynthesizing,
	StateSynthesizing: StatePlaying,
	StatePlaying:      StateIdle,
}

// Run is the state machine for one user interaction. A run advances only on
// stage success; any stage failure records the failed stage and returns the
// run to Idle without attempting later stages. Runs are never shared: each
// interaction owns its clip, transcript, reply, and synthesized audio.
type Run struct {
	ID      string
	state   State
	failed  State
	failure *Error
	Started time.Time
}

// NewRun creates a run in the Idle state.
func NewRun() *Run {
	return &Run{
		ID:      uuid.NewString(),
		state:   StateIdle,
		Started: time.Now(),
	}
}

// State returns the run's current state.
func (r *Run) State() State { return r.state }

// Advance moves the run to the next stage and returns the new state.
// Advancing a failed run is an error; a completed run restarts from Idle
// only by creating a new Run.
func (r *Run) Advance() (State, error) {
	if r.failure != nil {
		return r.state, Errf(KindConfig, "run %s already failed at %s", r.ID, r.failed)
	}
	next, ok := nextState[r.state]
	if !ok {
		return r.state, Errf(KindConfig, "no transition from state %q", r.state)
	}
	r.state = next
	return r.state, nil
}

// Fail marks the run failed at its current stage and returns it to Idle.
func (r *Run) Fail(err *Error) {
	r.failed = r.state
	r.failure = err
	r.state = StateIdle
}

// Finish completes a successful run, returning it to Idle.
func (r *Run) Finish() {
	r.state = StateIdle
}

// Failure reports the failed stage and error, if the run failed.
func (r *Run) Failure() (State, *Error, bool) {
	if r.failure == nil {
		return "", nil, false
	}
	return r.failed, r.failure, true
}
