package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voicegpt/assistant/internal/audio"
	"github.com/voicegpt/assistant/internal/metrics"
)

// TranscriptResult holds recognized text with timing.
type TranscriptResult struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
}

// Transcriber converts a normalized clip to text. Implementations return the
// recognized text verbatim, with no post-processing.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (*TranscriptResult, error)
}

// STTRouter dispatches to the correct transcription backend by name.
type STTRouter struct {
	*Router[Transcriber]
}

// NewSTTRouter creates a router with registered transcription backends.
func NewSTTRouter(backends map[string]Transcriber, fallback string) *STTRouter {
	return &STTRouter{Router: NewRouter(backends, fallback)}
}

// Transcribe routes to the named backend and records stage latency.
func (r *STTRouter) Transcribe(ctx context.Context, clip audio.Clip, backend string) (*TranscriptResult, error) {
	t, err := r.Pick(backend)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := t.Transcribe(ctx, clip)
	if err != nil {
		metrics.Errors.WithLabelValues("transcribe", string(AsError(err).Kind)).Inc()
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())
	return result, nil
}

// sttResponse is the JSON body both whisper backends return. Text is a
// pointer so a missing field is distinguishable from an empty transcript.
type sttResponse struct {
	Text *string `json:"text"`
}

// WhisperRESTClient posts raw normalized audio bytes to a hosted whisper
// inference endpoint, identifying the codec via the Content-Type header.
type WhisperRESTClient struct {
	url         string
	apiKey      string
	contentType string
	client      *http.Client
}

// NewWhisperRESTClient creates a client for a hosted whisper REST endpoint.
func NewWhisperRESTClient(url, apiKey string, client *http.Client) *WhisperRESTClient {
	return &WhisperRESTClient{
		url:         url,
		apiKey:      apiKey,
		contentType: "audio/wav",
		client:      client,
	}
}

// Transcribe sends the clip bytes and returns the recognized text.
func (c *WhisperRESTClient) Transcribe(ctx context.Context, clip audio.Clip) (*TranscriptResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(clip.Data))
	if err != nil {
		return nil, Errf(KindNetwork, "create whisper request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", c.contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Errf(KindNetwork, "whisper request: %v", err)
	}
	defer resp.Body.Close()

	return decodeTranscript(resp, "whisper", start)
}

// WhisperServerClient sends audio as multipart WAV to a local whisper.cpp
// server's /inference endpoint. Interchangeable with the hosted REST backend.
type WhisperServerClient struct {
	url    string
	client *http.Client
}

// NewWhisperServerClient creates a client for a local whisper.cpp server.
func NewWhisperServerClient(url string, client *http.Client) *WhisperServerClient {
	return &WhisperServerClient{url: url, client: client}
}

// Transcribe sends the clip as a multipart WAV upload.
func (c *WhisperServerClient) Transcribe(ctx context.Context, clip audio.Clip) (*TranscriptResult, error) {
	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, Errf(KindBackend, "create form file: %v", err)
	}
	if _, err = part.Write(clip.Data); err != nil {
		return nil, Errf(KindBackend, "write wav data: %v", err)
	}
	if err = writer.Close(); err != nil {
		return nil, Errf(KindBackend, "close multipart writer: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/inference", &body)
	if err != nil {
		return nil, Errf(KindNetwork, "create whisper-server request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Errf(KindNetwork, "whisper-server request: %v", err)
	}
	defer resp.Body.Close()

	return decodeTranscript(resp, "whisper-server", start)
}

// decodeTranscript parses a whisper-style response body. A missing or empty
// text field on a success status is an empty-transcript failure, never an
// empty successful transcript.
func decodeTranscript(resp *http.Response, label string, start time.Time) (*TranscriptResult, error) {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, Errf(KindBackend, "%s status %d: %s", label, resp.StatusCode, snippet)
	}

	var payload sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, Errf(KindBackend, "decode %s response: %v", label, err)
	}
	if payload.Text == nil {
		return nil, Errf(KindEmptyTranscript, "%s response has no text field", label)
	}
	if *payload.Text == "" {
		return nil, Errf(KindEmptyTranscript, "%s returned an empty transcript", label)
	}

	return &TranscriptResult{
		Text:      *payload.Text,
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}
