package main

import (
	"errors"
	"fmt"

	"github.com/voicegpt/assistant/internal/env"
)

type config struct {
	port string

	// speech-to-text
	whisperURL       string
	whisperServerURL string
	hfAPIKey         string

	// dialogue
	openrouterURL    string
	openrouterAPIKey string
	llmModel         string
	llmMaxTokens     int
	openaiAPIKey     string
	openaiModel      string

	// speech synthesis
	murfURL           string
	murfAPIKey        string
	murfVoiceID       string
	elevenlabsAPIKey  string
	elevenlabsVoiceID string
	elevenlabsModelID string

	// runtime
	playback              string
	sttPoolSize           int
	llmPoolSize           int
	ttsPoolSize           int
	maxConcurrentSessions int
	traceDBURL            string
}

// loadConfig reads configuration from the environment. The three backend
// credentials are required; startup refuses to proceed without them.
func loadConfig() (config, error) {
	hfKey, hfErr := env.Require("HF_API_KEY")
	orKey, orErr := env.Require("OPENROUTER_API_KEY")
	murfKey, murfErr := env.Require("MURF_API_KEY")
	if err := errors.Join(hfErr, orErr, murfErr); err != nil {
		return config{}, err
	}

	cfg := config{
		port: env.Str("PORT", "8080"),

		whisperURL:       env.Str("WHISPER_API_URL", "https://router.huggingface.co/hf-inference/models/openai/whisper-large-v3"),
		whisperServerURL: env.Str("WHISPER_SERVER_URL", ""),
		hfAPIKey:         hfKey,

		openrouterURL:    env.Str("OPENROUTER_URL", "https://openrouter.ai/api/v1"),
		openrouterAPIKey: orKey,
		llmModel:         env.Str("LLM_MODEL", "openai/gpt-4o"),
		llmMaxTokens:     env.Int("LLM_MAX_TOKENS", 1000),
		openaiAPIKey:     env.Str("OPENAI_API_KEY", ""),
		openaiModel:      env.Str("OPENAI_MODEL", "gpt-4o"),

		murfURL:           env.Str("MURF_URL", "https://api.murf.ai"),
		murfAPIKey:        murfKey,
		murfVoiceID:       env.Str("MURF_VOICE_ID", "en-US-terrell"),
		elevenlabsAPIKey:  env.Str("ELEVENLABS_API_KEY", ""),
		elevenlabsVoiceID: env.Str("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		elevenlabsModelID: env.Str("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),

		playback:              env.Str("PLAYBACK", "browser"),
		sttPoolSize:           env.Int("STT_POOL_SIZE", 20),
		llmPoolSize:           env.Int("LLM_POOL_SIZE", 20),
		ttsPoolSize:           env.Int("TTS_POOL_SIZE", 20),
		maxConcurrentSessions: env.Int("MAX_CONCURRENT_SESSIONS", 100),
		traceDBURL:            env.Str("TRACE_DB_URL", ""),
	}

	if cfg.playback != "browser" && cfg.playback != "local" {
		return config{}, fmt.Errorf("PLAYBACK must be \"browser\" or \"local\", got %q", cfg.playback)
	}
	return cfg, nil
}
