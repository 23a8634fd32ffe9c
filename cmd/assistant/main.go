package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicegpt/assistant/internal/backends"
	"github.com/voicegpt/assistant/internal/pipeline"
	"github.com/voicegpt/assistant/internal/playback"
	"github.com/voicegpt/assistant/internal/trace"
	"github.com/voicegpt/assistant/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	sttHTTP := pipeline.NewPooledHTTPClient(cfg.sttPoolSize, 60*time.Second)
	llmHTTP := pipeline.NewPooledHTTPClient(cfg.llmPoolSize, 120*time.Second)
	ttsHTTP := pipeline.NewPooledHTTPClient(cfg.ttsPoolSize, 60*time.Second)

	sttBackends := map[string]pipeline.Transcriber{
		"whisper-rest": pipeline.NewWhisperRESTClient(cfg.whisperURL, cfg.hfAPIKey, sttHTTP),
	}
	if cfg.whisperServerURL != "" {
		sttBackends["whisper-server"] = pipeline.NewWhisperServerClient(cfg.whisperServerURL, sttHTTP)
	}
	stt := pipeline.NewSTTRouter(sttBackends, "whisper-rest")

	llmBackends := map[string]pipeline.DialogueClient{
		"openrouter": pipeline.NewOpenRouterClient(cfg.openrouterURL, cfg.openrouterAPIKey, cfg.llmModel, cfg.llmMaxTokens, llmHTTP),
	}
	if cfg.openaiAPIKey != "" {
		llmBackends["openai"] = pipeline.NewOpenAIDialogueClient(cfg.openaiAPIKey, cfg.openaiModel, cfg.llmMaxTokens)
	}
	llm := pipeline.NewLLMRouter(llmBackends, "openrouter")

	ttsBackends := map[string]pipeline.Synthesizer{
		"murf": pipeline.NewMurfClient(cfg.murfURL, cfg.murfAPIKey, cfg.murfVoiceID, ttsHTTP),
	}
	if cfg.elevenlabsAPIKey != "" {
		ttsBackends["elevenlabs"] = pipeline.NewElevenLabsClient(cfg.elevenlabsAPIKey, cfg.elevenlabsVoiceID, cfg.elevenlabsModelID, ttsHTTP)
	}
	tts := pipeline.NewTTSRouter(ttsBackends, "murf")

	var traceStore *trace.Store
	if cfg.traceDBURL != "" {
		traceStore, err = trace.Open(cfg.traceDBURL)
		if err != nil {
			slog.Warn("trace store unavailable, continuing without tracing", "error", err)
			traceStore = nil
		}
	}

	var localPlayer pipeline.Player
	if cfg.playback == "local" {
		localPlayer = playback.NewLocal()
	}

	registry := backends.NewRegistry(registeredServices(cfg))

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		STT:           stt,
		LLM:           llm,
		TTS:           tts,
		TraceStore:    traceStore,
		LocalPlayer:   localPlayer,
		VoiceID:       cfg.murfVoiceID,
		MaxConcurrent: cfg.maxConcurrentSessions,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		stt:        stt,
		llm:        llm,
		tts:        tts,
		registry:   registry,
		wsHandler:  wsHandler,
		traceStore: traceStore,
		voiceID:    cfg.murfVoiceID,
	})

	srv := &http.Server{Addr: ":" + cfg.port, Handler: mux}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("assistant starting", "port", cfg.port, "playback", cfg.playback,
		"stt", stt.Names(), "llm", llm.Names(), "tts", tts.Names(), "tracing", traceStore != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server", "error", err)
		os.Exit(1)
	}

	if traceStore != nil {
		if err := traceStore.Close(); err != nil {
			slog.Error("trace close", "error", err)
		}
	}
	slog.Info("assistant stopped")
}

// registeredServices describes the configured backends for the health
// endpoint. Hosted APIs carry no health URL and report as not probed.
func registeredServices(cfg config) map[string]backends.Meta {
	services := map[string]backends.Meta{
		"whisper-rest": {Category: "stt"},
		"openrouter":   {Category: "llm"},
		"murf":         {Category: "tts"},
	}
	if cfg.whisperServerURL != "" {
		services["whisper-server"] = backends.Meta{Category: "stt", HealthURL: cfg.whisperServerURL + "/health"}
	}
	if cfg.openaiAPIKey != "" {
		services["openai"] = backends.Meta{Category: "llm"}
	}
	if cfg.elevenlabsAPIKey != "" {
		services["elevenlabs"] = backends.Meta{Category: "tts"}
	}
	return services
}
