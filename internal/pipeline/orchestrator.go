package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicegpt/assistant/internal/audio"
	"github.com/voicegpt/assistant/internal/metrics"
	"github.com/voicegpt/assistant/internal/trace"
)

// Player renders synthesized audio to the user. Local playback blocks until
// the audio finishes or ctx is cancelled; browser playback hands the bytes to
// the UI surface and returns immediately.
type Player interface {
	Play(ctx context.Context, audio SynthesizedAudio) error
}

// Event is a pipeline output pushed to the user-visible surface.
type Event struct {
	Type    string  `json:"type"`
	State   State   `json:"state,omitempty"`
	Stage   State   `json:"stage,omitempty"`
	Kind    Kind    `json:"kind,omitempty"`
	Text    string  `json:"text,omitempty"`
	Format  string  `json:"format,omitempty"`
	STTMs   float64 `json:"stt_ms,omitempty"`
	LLMMs   float64 `json:"llm_ms,omitempty"`
	TTSMs   float64 `json:"tts_ms,omitempty"`
	TotalMs float64 `json:"total_ms,omitempty"`
	Audio   []byte  `json:"-"`
}

// EventCallback is invoked for each pipeline event.
type EventCallback func(Event)

// Config holds the long-lived clients shared by every run in a session.
// Clients are constructed once at process start and injected here; nothing is
// cached process-wide.
type Config struct {
	STT       *STTRouter
	LLM       *LLMRouter
	TTS       *TTSRouter
	Player    Player
	VoiceID   string
	SessionID string
	Tracer    *trace.Tracer
}

// RunOptions select the backends and voice for one utterance. Empty fields
// fall back to the configured defaults.
type RunOptions struct {
	STTBackend string
	LLMBackend string
	TTSBackend string
	VoiceID    string
}

// Orchestrator sequences one recording through
// capture → normalize → transcribe → generate → synthesize → play.
// Stages execute strictly sequentially; the first stage error ends the run.
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator over the given shared clients.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Process runs one recording through the full pipeline, emitting state,
// transcript, reply, and metrics events along the way. A stage failure is
// surfaced as an error event and returned; the process stays alive and ready
// for the next capture. Cancelling ctx abandons the run without an error
// event.
func (o *Orchestrator) Process(ctx context.Context, recording []byte, opts RunOptions, onEvent EventCallback) error {
	metrics.RunsTotal.Inc()

	run := NewRun()
	runID := o.cfg.Tracer.StartRun()

	transcript := ""
	reply := ""

	fail := func(err error) error {
		if ctx.Err() != nil {
			return o.abandon(run, runID, transcript, reply, onEvent)
		}
		perr := AsError(err)
		stage := run.State()
		run.Fail(perr)
		metrics.RunsFailed.Inc()
		slog.Error("run failed", "session_id", o.cfg.SessionID, "run_id", run.ID, "stage", stage, "kind", perr.Kind, "error", perr.Err)
		onEvent(Event{Type: "error", Stage: stage, Kind: perr.Kind, Text: perr.Err.Error()})
		onEvent(Event{Type: "state", State: StateIdle})
		o.cfg.Tracer.EndRun(runID, sinceMs(run.Started), transcript, reply, "error")
		return perr
	}

	// Capturing: the surface already delivered the full recording; the state
	// records receipt before decode work begins.
	o.enter(run, onEvent)
	if len(recording) == 0 {
		return fail(Errf(KindAudioDecode, "capture produced no audio"))
	}
	clip := audio.Captured(recording)

	// Normalizing
	o.enter(run, onEvent)
	normStart := time.Now()
	normalized, err := audio.Normalize(clip)
	o.span(runID, "normalize", normStart, fmt.Sprintf("bytes=%d", len(recording)), fmt.Sprintf("rate=%d", normalized.SampleRate), err)
	if err != nil {
		return fail(err)
	}

	// Transcribing
	o.enter(run, onEvent)
	sttStart := time.Now()
	tr, err := o.cfg.STT.Transcribe(ctx, normalized, opts.STTBackend)
	sttOut := ""
	if tr != nil {
		sttOut = tr.Text
	}
	o.span(runID, "transcribe", sttStart, fmt.Sprintf("bytes=%d", len(normalized.Data)), sttOut, err)
	if err != nil {
		return fail(err)
	}
	transcript = tr.Text
	slog.Info("transcript", "session_id", o.cfg.SessionID, "run_id", run.ID, "text", transcript, "stt_ms", tr.LatencyMs)
	onEvent(Event{Type: "transcript", Text: transcript})

	// Generating
	o.enter(run, onEvent)
	llmStart := time.Now()
	rr, err := o.cfg.LLM.Converse(ctx, transcript, opts.LLMBackend)
	llmOut := ""
	if rr != nil {
		llmOut = rr.Text
	}
	o.span(runID, "generate", llmStart, transcript, llmOut, err)
	if err != nil {
		return fail(err)
	}
	reply = rr.Text
	slog.Info("reply", "session_id", o.cfg.SessionID, "run_id", run.ID, "text", reply, "llm_ms", rr.LatencyMs)
	onEvent(Event{Type: "reply", Text: reply})

	// Synthesizing
	o.enter(run, onEvent)
	voice := opts.VoiceID
	if voice == "" {
		voice = o.cfg.VoiceID
	}
	ttsStart := time.Now()
	sr, err := o.cfg.TTS.Synthesize(ctx, reply, voice, opts.TTSBackend)
	o.span(runID, "synthesize", ttsStart, reply, audioOf(sr), err)
	if err != nil {
		return fail(err)
	}

	// Playing
	o.enter(run, onEvent)
	playStart := time.Now()
	err = o.cfg.Player.Play(ctx, sr.Audio)
	o.span(runID, "play", playStart, audioOf(sr), "", err)
	if err != nil {
		return fail(err)
	}

	run.Finish()
	total := time.Since(run.Started)
	metrics.E2EDuration.Observe(total.Seconds())
	slog.Info("run done", "session_id", o.cfg.SessionID, "run_id", run.ID,
		"stt_ms", tr.LatencyMs, "llm_ms", rr.LatencyMs, "tts_ms", sr.LatencyMs, "total_ms", total.Milliseconds())

	onEvent(Event{
		Type:    "metrics",
		STTMs:   tr.LatencyMs,
		LLMMs:   rr.LatencyMs,
		TTSMs:   sr.LatencyMs,
		TotalMs: float64(total.Milliseconds()),
	})
	onEvent(Event{Type: "state", State: StateIdle})

	o.cfg.Tracer.EndRun(runID, float64(total.Milliseconds()), transcript, reply, "ok")
	return nil
}

// enter advances the run one stage and announces the new state.
func (o *Orchestrator) enter(run *Run, onEvent EventCallback) {
	state, err := run.Advance()
	if err != nil {
		// Unreachable with the fixed forward order; keep it loud if the
		// transition table ever changes.
		slog.Error("illegal transition", "run_id", run.ID, "error", err)
		return
	}
	onEvent(Event{Type: "state", State: state})
}

// abandon ends a run whose context was cancelled, e.g. the user started a new
// recording before playback finished. No error event: the run simply stops.
func (o *Orchestrator) abandon(run *Run, runID, transcript, reply string, onEvent EventCallback) error {
	metrics.RunsAbandoned.Inc()
	slog.Info("run abandoned", "session_id", o.cfg.SessionID, "run_id", run.ID, "stage", run.State())
	run.Finish()
	onEvent(Event{Type: "state", State: StateIdle})
	o.cfg.Tracer.EndRun(runID, sinceMs(run.Started), transcript, reply, "cancelled")
	return context.Canceled
}

func (o *Orchestrator) span(runID, name string, start time.Time, input, output string, err error) {
	status, errMsg := "ok", ""
	if err != nil {
		status, errMsg = "error", err.Error()
	}
	o.cfg.Tracer.RecordSpan(runID, name, start, sinceMs(start), input, output, status, errMsg)
}

func sinceMs(t time.Time) float64 { return float64(time.Since(t).Milliseconds()) }

func audioOf(r *SynthResult) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("audio_bytes=%d format=%s", len(r.Audio.Data), r.Audio.Format)
}
