package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/voicegpt/assistant/internal/pipeline"
)

func playbackKind(t *testing.T, err error) pipeline.Kind {
	t.Helper()
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %T (%v), want *pipeline.Error", err, err)
	}
	return perr.Kind
}

func TestBrowserDeliversAudio(t *testing.T) {
	var delivered pipeline.SynthesizedAudio
	b := &Browser{Emit: func(a pipeline.SynthesizedAudio) error {
		delivered = a
		return nil
	}}

	in := pipeline.SynthesizedAudio{Data: []byte("mp3"), Format: "mp3"}
	if err := b.Play(context.Background(), in); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if string(delivered.Data) != "mp3" || delivered.Format != "mp3" {
		t.Errorf("delivered = %+v, want %+v", delivered, in)
	}
}

func TestBrowserRejectsEmptyAudio(t *testing.T) {
	b := &Browser{Emit: func(pipeline.SynthesizedAudio) error { return nil }}
	err := b.Play(context.Background(), pipeline.SynthesizedAudio{Format: "mp3"})
	if kind := playbackKind(t, err); kind != pipeline.KindPlayback {
		t.Errorf("kind = %q, want %q", kind, pipeline.KindPlayback)
	}
}

func TestBrowserWithoutSurface(t *testing.T) {
	b := &Browser{}
	err := b.Play(context.Background(), pipeline.SynthesizedAudio{Data: []byte("mp3")})
	if kind := playbackKind(t, err); kind != pipeline.KindPlayback {
		t.Errorf("kind = %q, want %q", kind, pipeline.KindPlayback)
	}
}

func TestBrowserWrapsEmitFailure(t *testing.T) {
	b := &Browser{Emit: func(pipeline.SynthesizedAudio) error {
		return errors.New("socket gone")
	}}
	err := b.Play(context.Background(), pipeline.SynthesizedAudio{Data: []byte("mp3")})
	if kind := playbackKind(t, err); kind != pipeline.KindPlayback {
		t.Errorf("kind = %q, want %q", kind, pipeline.KindPlayback)
	}
}

func TestBufferCollectsClips(t *testing.T) {
	buf := &Buffer{}
	if _, ok := buf.Last(); ok {
		t.Error("empty buffer reported a clip")
	}

	for i, data := range []string{"one", "two"} {
		err := buf.Play(context.Background(), pipeline.SynthesizedAudio{Data: []byte(data), Format: "mp3"})
		if err != nil {
			t.Fatalf("Play %d: %v", i, err)
		}
	}

	if buf.Count() != 2 {
		t.Errorf("Count() = %d, want 2", buf.Count())
	}
	last, ok := buf.Last()
	if !ok || string(last.Data) != "two" {
		t.Errorf("Last() = %q, want %q", last.Data, "two")
	}
}
