package playback

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/voicegpt/assistant/internal/pipeline"
)

// Local plays synthesized audio through the machine's output device and
// blocks until playback finishes. Completion is observed by polling the
// player on a short interval under the run's context, so an abandoned run
// stops waiting and releases the player without stopping mid-frame fades.
type Local struct {
	pollInterval time.Duration

	mu     sync.Mutex
	otoCtx *oto.Context
}

// NewLocal creates a local playback adapter. The audio device context is
// initialized lazily on first play.
func NewLocal() *Local {
	return &Local{pollInterval: 50 * time.Millisecond}
}

// Play decodes the MP3 audio and plays it to completion or cancellation.
func (l *Local) Play(ctx context.Context, a pipeline.SynthesizedAudio) error {
	if len(a.Data) == 0 {
		return pipeline.Errf(pipeline.KindPlayback, "no synthesized audio to play")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(a.Data))
	if err != nil {
		return pipeline.Errf(pipeline.KindPlayback, "decode %s audio: %v", a.Format, err)
	}

	otoCtx, err := l.context(dec.SampleRate())
	if err != nil {
		return pipeline.Errf(pipeline.KindPlayback, "open audio device: %v", err)
	}

	player := otoCtx.NewPlayer(dec)
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			// Abandoned run: stop waiting and release the player.
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// context returns the process-wide audio device context, creating it on
// first use. oto permits one context per process; its sample rate is fixed
// by the first clip played.
func (l *Local) context(sampleRate int) (*oto.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.otoCtx != nil {
		return l.otoCtx, nil
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2, // go-mp3 always emits 2-channel 16-bit LE
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	l.otoCtx = otoCtx
	return otoCtx, nil
}
