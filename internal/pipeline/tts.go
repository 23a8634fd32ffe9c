package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicegpt/assistant/internal/metrics"
)

// SynthesizedAudio is one synthesized reply ready for playback.
type SynthesizedAudio struct {
	Data   []byte
	Format string
}

// SynthResult holds synthesized audio with timing.
type SynthResult struct {
	Audio     SynthesizedAudio
	LatencyMs float64
}

// Synthesizer produces audio from reply text. voiceID selects the voice; an
// empty voiceID uses the backend's default.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*SynthResult, error)
}

// TTSRouter dispatches to the correct synthesis backend by name.
type TTSRouter struct {
	*Router[Synthesizer]
}

// NewTTSRouter creates a router with registered synthesis backends.
func NewTTSRouter(backends map[string]Synthesizer, fallback string) *TTSRouter {
	return &TTSRouter{Router: NewRouter(backends, fallback)}
}

// Synthesize routes to the named backend and records stage latency.
func (r *TTSRouter) Synthesize(ctx context.Context, text, voiceID, backend string) (*SynthResult, error) {
	s, err := r.Pick(backend)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.Synthesize(ctx, text, voiceID)
	if err != nil {
		metrics.Errors.WithLabelValues("synthesize", string(AsError(err).Kind)).Inc()
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())
	return result, nil
}

// MurfClient generates speech through the Murf API. Generation returns a
// reference (URL) to the rendered asset; the bytes are fetched in a second
// round trip before the result is returned.
type MurfClient struct {
	url          string
	apiKey       string
	defaultVoice string
	client       *http.Client
}

// NewMurfClient creates a Murf synthesis client. url is the API base.
func NewMurfClient(url, apiKey, defaultVoice string, client *http.Client) *MurfClient {
	return &MurfClient{
		url:          url,
		apiKey:       apiKey,
		defaultVoice: defaultVoice,
		client:       client,
	}
}

type murfRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

type murfResponse struct {
	AudioFile string `json:"audioFile"`
}

// Synthesize generates speech and downloads the referenced asset.
func (m *MurfClient) Synthesize(ctx context.Context, text, voiceID string) (*SynthResult, error) {
	start := time.Now()

	voice := voiceID
	if voice == "" {
		voice = m.defaultVoice
	}

	assetURL, err := m.generate(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	data, err := m.fetchAsset(ctx, assetURL)
	if err != nil {
		return nil, err
	}

	return &SynthResult{
		Audio:     SynthesizedAudio{Data: data, Format: "mp3"},
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}

func (m *MurfClient) generate(ctx context.Context, text, voice string) (string, error) {
	body, err := json.Marshal(murfRequest{Text: text, VoiceID: voice})
	if err != nil {
		return "", Errf(KindSynthesis, "marshal murf request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.url+"/v1/speech/generate", bytes.NewReader(body))
	if err != nil {
		return "", Errf(KindSynthesis, "create murf request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", Errf(KindSynthesis, "murf generate: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", Errf(KindSynthesis, "murf status %d: %s", resp.StatusCode, snippet)
	}

	var payload murfResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", Errf(KindSynthesis, "decode murf response: %v", err)
	}
	if payload.AudioFile == "" {
		return "", Errf(KindSynthesis, "murf response has no audio file reference")
	}
	return payload.AudioFile, nil
}

func (m *MurfClient) fetchAsset(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, Errf(KindAssetFetch, "create asset request: %v", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, Errf(KindAssetFetch, "fetch audio asset: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errf(KindAssetFetch, "asset fetch status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errf(KindAssetFetch, "read audio asset: %v", err)
	}
	if len(data) == 0 {
		return nil, Errf(KindAssetFetch, "audio asset is empty")
	}
	return data, nil
}

// ElevenLabsClient is a synthesis backend that returns audio bytes directly,
// with no separate asset fetch.
type ElevenLabsClient struct {
	apiKey       string
	defaultVoice string
	modelID      string
	client       *http.Client
}

// NewElevenLabsClient creates an ElevenLabs synthesis client.
func NewElevenLabsClient(apiKey, defaultVoice, modelID string, client *http.Client) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:       apiKey,
		defaultVoice: defaultVoice,
		modelID:      modelID,
		client:       client,
	}
}

// Synthesize generates speech and returns the MP3 bytes.
func (e *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) (*SynthResult, error) {
	start := time.Now()

	voice := voiceID
	if voice == "" {
		voice = e.defaultVoice
	}

	body, err := json.Marshal(struct {
		Text    string `json:"text"`
		ModelID string `json:"model_id"`
	}{Text: text, ModelID: e.modelID})
	if err != nil {
		return nil, Errf(KindSynthesis, "marshal elevenlabs request: %v", err)
	}

	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", voice)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, Errf(KindSynthesis, "create elevenlabs request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, Errf(KindSynthesis, "elevenlabs request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errf(KindSynthesis, "elevenlabs status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errf(KindSynthesis, "read elevenlabs response: %v", err)
	}
	if len(data) == 0 {
		return nil, Errf(KindSynthesis, "elevenlabs returned no audio")
	}

	return &SynthResult{
		Audio:     SynthesizedAudio{Data: data, Format: "mp3"},
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}
