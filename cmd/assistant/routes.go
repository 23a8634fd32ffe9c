package main

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicegpt/assistant/internal/backends"
	"github.com/voicegpt/assistant/internal/pipeline"
	"github.com/voicegpt/assistant/internal/playback"
	"github.com/voicegpt/assistant/internal/trace"
)

type deps struct {
	stt        *pipeline.STTRouter
	llm        *pipeline.LLMRouter
	tts        *pipeline.TTSRouter
	registry   *backends.Registry
	wsHandler  http.Handler
	traceStore *trace.Store
	voiceID    string
}

func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/talk", d.wsHandler)
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/backends", d.handleBackends)
	mux.HandleFunc("POST /api/runs", d.handleRun)
	if d.traceStore != nil {
		mux.HandleFunc("GET /api/sessions", d.handleSessions)
		mux.HandleFunc("GET /api/sessions/{id}", d.handleSession)
		mux.HandleFunc("GET /api/sessions/{id}/runs/{runID}", d.handleSessionRun)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d deps) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stt":    d.stt.Names(),
		"llm":    d.llm.Names(),
		"tts":    d.tts.Names(),
		"health": d.registry.Statuses(r.Context()),
	})
}

type runResponse struct {
	Transcript string  `json:"transcript"`
	Reply      string  `json:"reply"`
	Audio      string  `json:"audio,omitempty"`
	Format     string  `json:"format,omitempty"`
	STTMs      float64 `json:"stt_ms"`
	LLMMs      float64 `json:"llm_ms"`
	TTSMs      float64 `json:"tts_ms"`
	TotalMs    float64 `json:"total_ms"`
}

// handleRun executes a single turn over plain HTTP: multipart audio in,
// transcript, reply and synthesized speech out.
func (d deps) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing audio part"})
		return
	}
	defer file.Close()
	recording, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable audio part"})
		return
	}

	opts := pipeline.RunOptions{
		STTBackend: r.FormValue("stt_backend"),
		LLMBackend: r.FormValue("llm_backend"),
		TTSBackend: r.FormValue("tts_backend"),
		VoiceID:    r.FormValue("voice_id"),
	}

	buf := &playback.Buffer{}
	orch := pipeline.New(pipeline.Config{
		STT:       d.stt,
		LLM:       d.llm,
		TTS:       d.tts,
		Player:    buf,
		VoiceID:   d.voiceID,
		SessionID: "http",
	})

	var out runResponse
	var failure pipeline.Event
	err = orch.Process(r.Context(), recording, opts, func(ev pipeline.Event) {
		switch ev.Type {
		case "transcript":
			out.Transcript = ev.Text
		case "reply":
			out.Reply = ev.Text
		case "metrics":
			out.STTMs, out.LLMMs, out.TTSMs, out.TotalMs = ev.STTMs, ev.LLMMs, ev.TTSMs, ev.TotalMs
		case "error":
			failure = ev
		}
	})
	if err != nil {
		writeJSON(w, statusForKind(failure.Kind), map[string]string{
			"stage": string(failure.Stage),
			"kind":  string(failure.Kind),
			"error": failure.Text,
		})
		return
	}

	if clip, ok := buf.Last(); ok {
		out.Audio = base64.StdEncoding.EncodeToString(clip.Data)
		out.Format = clip.Format
	}
	writeJSON(w, http.StatusOK, out)
}

func statusForKind(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindAudioDecode, pipeline.KindEmptyTranscript:
		return http.StatusUnprocessableEntity
	case pipeline.KindConfig:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (d deps) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	sessions, total, err := d.traceStore.ListSessions(limit, offset)
	if err != nil {
		slog.Error("list sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": total})
}

func (d deps) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, runs, err := d.traceStore.GetSession(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		slog.Error("get session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "runs": runs})
}

func (d deps) handleSessionRun(w http.ResponseWriter, r *http.Request) {
	run, spans, err := d.traceStore.GetRun(r.PathValue("id"), r.PathValue("runID"))
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if err != nil {
		slog.Error("get run", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "spans": spans})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
