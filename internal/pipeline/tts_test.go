package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// murfServers builds an asset host and a generate host that points to it.
func murfServers(t *testing.T, assetStatus int, assetBody []byte) (*httptest.Server, *httptest.Server, *[]murfRequest) {
	t.Helper()

	asset := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(assetStatus)
		w.Write(assetBody)
	}))
	t.Cleanup(asset.Close)

	var requests []murfRequest
	gen := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech/generate" {
			t.Errorf("path = %q, want /v1/speech/generate", r.URL.Path)
		}
		if key := r.Header.Get("api-key"); key != "murf-key" {
			t.Errorf("api-key = %q, want %q", key, "murf-key")
		}
		var req murfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode generate request: %v", err)
		}
		requests = append(requests, req)
		fmt.Fprintf(w, `{"audioFile":%q}`, asset.URL+"/render/out.mp3")
	}))
	t.Cleanup(gen.Close)

	return gen, asset, &requests
}

func TestMurfSynthesizeFetchesAsset(t *testing.T) {
	mp3 := []byte("ID3-fake-mp3-bytes")
	gen, _, requests := murfServers(t, http.StatusOK, mp3)

	c := NewMurfClient(gen.URL, "murf-key", "en-US-terrell", http.DefaultClient)
	result, err := c.Synthesize(context.Background(), "hello there", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if !bytes.Equal(result.Audio.Data, mp3) {
		t.Errorf("audio bytes = %q, want %q", result.Audio.Data, mp3)
	}
	if result.Audio.Format != "mp3" {
		t.Errorf("format = %q, want mp3", result.Audio.Format)
	}
	if len(*requests) != 1 {
		t.Fatalf("got %d generate calls, want 1", len(*requests))
	}
	if (*requests)[0].Text != "hello there" {
		t.Errorf("text = %q, want %q", (*requests)[0].Text, "hello there")
	}
	if (*requests)[0].VoiceID != "en-US-terrell" {
		t.Errorf("voiceId = %q, want default en-US-terrell", (*requests)[0].VoiceID)
	}
}

func TestMurfVoiceOverride(t *testing.T) {
	gen, _, requests := murfServers(t, http.StatusOK, []byte("mp3"))

	c := NewMurfClient(gen.URL, "murf-key", "en-US-terrell", http.DefaultClient)
	if _, err := c.Synthesize(context.Background(), "hi", "en-GB-ruby"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if (*requests)[0].VoiceID != "en-GB-ruby" {
		t.Errorf("voiceId = %q, want en-GB-ruby", (*requests)[0].VoiceID)
	}
}

func TestMurfGenerateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewMurfClient(srv.URL, "murf-key", "v", srv.Client())
	_, err := c.Synthesize(context.Background(), "hi", "")
	if kind := kindOf(t, err); kind != KindSynthesis {
		t.Errorf("kind = %q, want %q", kind, KindSynthesis)
	}
}

func TestMurfMissingAssetReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewMurfClient(srv.URL, "murf-key", "v", srv.Client())
	_, err := c.Synthesize(context.Background(), "hi", "")
	if kind := kindOf(t, err); kind != KindSynthesis {
		t.Errorf("kind = %q, want %q", kind, KindSynthesis)
	}
}

func TestMurfAssetFetchFailure(t *testing.T) {
	gen, _, _ := murfServers(t, http.StatusNotFound, []byte("gone"))

	c := NewMurfClient(gen.URL, "murf-key", "v", http.DefaultClient)
	_, err := c.Synthesize(context.Background(), "hi", "")
	if kind := kindOf(t, err); kind != KindAssetFetch {
		t.Errorf("kind = %q, want %q", kind, KindAssetFetch)
	}
}

func TestMurfEmptyAsset(t *testing.T) {
	gen, _, _ := murfServers(t, http.StatusOK, nil)

	c := NewMurfClient(gen.URL, "murf-key", "v", http.DefaultClient)
	_, err := c.Synthesize(context.Background(), "hi", "")
	if kind := kindOf(t, err); kind != KindAssetFetch {
		t.Errorf("kind = %q, want %q", kind, KindAssetFetch)
	}
}
