package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicegpt/assistant/internal/metrics"
	"github.com/voicegpt/assistant/internal/pipeline"
	"github.com/voicegpt/assistant/internal/playback"
	"github.com/voicegpt/assistant/internal/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared backend clients for all capture sessions.
type HandlerConfig struct {
	STT           *pipeline.STTRouter
	LLM           *pipeline.LLMRouter
	TTS           *pipeline.TTSRouter
	TraceStore    *trace.Store
	LocalPlayer   pipeline.Player // non-nil selects local device playback
	VoiceID       string
	MaxConcurrent int
}

// Handler manages websocket capture sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a websocket handler with shared clients and a
// concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// sessionMetadata is the first text frame sent by the client. Every field is
// optional; empty fields use the configured defaults.
type sessionMetadata struct {
	STTBackend string `json:"stt_backend"`
	LLMBackend string `json:"llm_backend"`
	TTSBackend string `json:"tts_backend"`
	VoiceID    string `json:"voice_id"`
}

// ServeHTTP upgrades the connection and runs the capture session.
// Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	defer metrics.SessionsActive.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, rawMeta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read session metadata", "error", err)
		return
	}

	sessionID := uuid.NewString()
	slog.Info("session started", "session_id", sessionID,
		"stt", meta.STTBackend, "llm", meta.LLMBackend, "tts", meta.TTSBackend)

	var tracer *trace.Tracer
	if h.cfg.TraceStore != nil {
		if err = h.cfg.TraceStore.CreateSession(sessionID, string(rawMeta)); err != nil {
			slog.Warn("create trace session", "error", err)
		}
		tracer = trace.NewTracer(h.cfg.TraceStore, sessionID)
		defer func() {
			tracer.Close()
			if endErr := h.cfg.TraceStore.EndSession(sessionID); endErr != nil {
				slog.Warn("end trace session", "error", endErr)
			}
		}()
	}

	send := newEventSender(conn)

	player := h.cfg.LocalPlayer
	if player == nil {
		player = &playback.Browser{Emit: func(a pipeline.SynthesizedAudio) error {
			send(pipeline.Event{Type: "audio", Format: a.Format, Audio: a.Data})
			return nil
		}}
	}

	orch := pipeline.New(pipeline.Config{
		STT:       h.cfg.STT,
		LLM:       h.cfg.LLM,
		TTS:       h.cfg.TTS,
		Player:    player,
		VoiceID:   h.cfg.VoiceID,
		SessionID: sessionID,
		Tracer:    tracer,
	})

	opts := pipeline.RunOptions{
		STTBackend: meta.STTBackend,
		LLMBackend: meta.LLMBackend,
		TTSBackend: meta.TTSBackend,
		VoiceID:    meta.VoiceID,
	}

	h.processFrames(ctx, conn, orch, opts, send)

	slog.Info("session ended", "session_id", sessionID)
}

// processFrames reads frames in a loop. Each binary frame is one complete
// recording (the capture control sends it on stop) and starts an independent
// run. A new recording cancels the previous run, so an in-flight playback
// stops polling and releases the player.
func (h *Handler) processFrames(ctx context.Context, conn *websocket.Conn, orch *pipeline.Orchestrator, opts pipeline.RunOptions, send pipeline.EventCallback) {
	var wg sync.WaitGroup
	var cancelRun context.CancelFunc

	defer func() {
		if cancelRun != nil {
			cancelRun()
		}
		wg.Wait()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "error", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		if cancelRun != nil {
			cancelRun()
		}
		runCtx, cancel := context.WithCancel(ctx)
		cancelRun = cancel

		wg.Add(1)
		go func(recording []byte) {
			defer wg.Done()
			// Stage failures are already surfaced as error events.
			_ = orch.Process(runCtx, recording, opts, send)
		}(data)
	}
}

// newEventSender serializes pipeline events onto the connection. Audio bytes
// go out as a binary frame immediately before the describing JSON event.
func newEventSender(conn *websocket.Conn) pipeline.EventCallback {
	var mu sync.Mutex
	return func(ev pipeline.Event) {
		mu.Lock()
		defer mu.Unlock()

		if ev.Audio != nil {
			if err := conn.WriteMessage(websocket.BinaryMessage, ev.Audio); err != nil {
				slog.Error("write audio frame", "error", err)
			}
		}

		jsonBytes, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Error("write event", "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn) (*sessionMetadata, []byte, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, nil, err
	}
	var meta sessionMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, nil, err
	}
	return &meta, data, nil
}
