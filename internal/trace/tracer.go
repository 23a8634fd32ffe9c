package trace

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const maxIOLen = 500

type traceMsg struct {
	kind string // "run_create", "run_update", "span"
	// run fields
	runID      string
	sessionID  string
	durationMs float64
	transcript string
	reply      string
	status     string
	// span fields
	span Span
}

// Tracer writes run traces asynchronously via a buffered channel so stage
// timing never waits on the database. All methods are nil-safe: a nil tracer
// is a no-op, which is how tracing is disabled.
type Tracer struct {
	store     *Store
	sessionID string
	ch        chan traceMsg
	done      chan struct{}
}

// NewTracer creates a tracer bound to a session. Call Close when the session
// ends to drain pending writes.
func NewTracer(store *Store, sessionID string) *Tracer {
	t := &Tracer{
		store:     store,
		sessionID: sessionID,
		ch:        make(chan traceMsg, 64),
		done:      make(chan struct{}),
	}
	go t.drain()
	return t
}

func (t *Tracer) drain() {
	defer close(t.done)
	for msg := range t.ch {
		t.handle(msg)
	}
}

func (t *Tracer) handle(m traceMsg) {
	var err error
	switch m.kind {
	case "run_create":
		err = t.store.CreateRun(m.runID, m.sessionID)
	case "run_update":
		err = t.store.UpdateRun(m.runID, m.durationMs, m.transcript, m.reply, m.status)
	case "span":
		err = t.store.CreateSpan(m.span)
	default:
		return
	}
	if err != nil {
		slog.Warn("trace write failed", "kind", m.kind, "error", err)
	}
}

// StartRun begins a new run and returns its ID.
func (t *Tracer) StartRun() string {
	if t == nil {
		return ""
	}
	id := uuid.NewString()
	t.ch <- traceMsg{kind: "run_create", runID: id, sessionID: t.sessionID}
	return id
}

// EndRun finalizes a run.
func (t *Tracer) EndRun(runID string, durationMs float64, transcript, reply, status string) {
	if t == nil {
		return
	}
	t.ch <- traceMsg{
		kind:       "run_update",
		runID:      runID,
		durationMs: durationMs,
		transcript: truncate(transcript, maxIOLen),
		reply:      truncate(reply, maxIOLen),
		status:     status,
	}
}

// RecordSpan records a completed stage span.
func (t *Tracer) RecordSpan(runID, name string, startedAt time.Time, durationMs float64, input, output, status, errMsg string) {
	if t == nil {
		return
	}
	t.ch <- traceMsg{
		kind: "span",
		span: Span{
			ID:         uuid.NewString(),
			RunID:      runID,
			Name:       name,
			StartedAt:  startedAt,
			DurationMs: durationMs,
			Input:      truncate(input, maxIOLen),
			Output:     truncate(output, maxIOLen),
			Status:     status,
			Error:      errMsg,
		},
	}
}

// Close drains pending writes and stops the background goroutine.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	close(t.ch)
	<-t.done
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
