package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voicegpt/assistant/internal/audio"
)

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %T (%v), want *Error", err, err)
	}
	return perr.Kind
}

func testClip() audio.Clip {
	return audio.Clip{
		Data:       audio.EncodeWAV(make([]int, 160), 1, 16000),
		SampleRate: 16000,
		Channels:   1,
		Encoding:   audio.EncodingMonoPCM,
	}
}

func TestWhisperRESTTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("Content-Type = %q, want %q", got, "audio/wav")
		}
		w.Write([]byte(`{"text":"turn on the lights"}`))
	}))
	defer srv.Close()

	c := NewWhisperRESTClient(srv.URL, "test-key", srv.Client())
	result, err := c.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "turn on the lights" {
		t.Errorf("text = %q, want %q", result.Text, "turn on the lights")
	}
}

func TestWhisperRESTMissingTextField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"warnings":["no speech detected"]}`))
	}))
	defer srv.Close()

	c := NewWhisperRESTClient(srv.URL, "k", srv.Client())
	_, err := c.Transcribe(context.Background(), testClip())
	if kind := kindOf(t, err); kind != KindEmptyTranscript {
		t.Errorf("kind = %q, want %q", kind, KindEmptyTranscript)
	}
}

func TestWhisperRESTEmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	c := NewWhisperRESTClient(srv.URL, "k", srv.Client())
	_, err := c.Transcribe(context.Background(), testClip())
	if kind := kindOf(t, err); kind != KindEmptyTranscript {
		t.Errorf("kind = %q, want %q", kind, KindEmptyTranscript)
	}
}

func TestWhisperRESTBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWhisperRESTClient(srv.URL, "k", srv.Client())
	_, err := c.Transcribe(context.Background(), testClip())
	if kind := kindOf(t, err); kind != KindBackend {
		t.Errorf("kind = %q, want %q", kind, KindBackend)
	}
}

func TestWhisperRESTUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWhisperRESTClient(url, "k", http.DefaultClient)
	_, err := c.Transcribe(context.Background(), testClip())
	if kind := kindOf(t, err); kind != KindNetwork {
		t.Errorf("kind = %q, want %q", kind, KindNetwork)
	}
}

func TestWhisperServerMultipartUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("filename = %q, want audio.wav", header.Filename)
		}
		w.Write([]byte(`{"text":"hello"}`))
	}))
	defer srv.Close()

	c := NewWhisperServerClient(srv.URL, srv.Client())
	result, err := c.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("text = %q, want %q", result.Text, "hello")
	}
}

func TestSTTRouterUnknownBackendUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"text":"routed"}`))
	}))
	defer srv.Close()

	router := NewSTTRouter(map[string]Transcriber{
		"whisper-rest": NewWhisperRESTClient(srv.URL, "k", srv.Client()),
	}, "whisper-rest")

	result, err := router.Transcribe(context.Background(), testClip(), "no-such-backend")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "routed" {
		t.Errorf("text = %q, want %q", result.Text, "routed")
	}
}
