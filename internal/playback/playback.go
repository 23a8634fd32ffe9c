// Package playback provides the deployment-selected strategies for rendering
// synthesized audio: hand the bytes to the browser, play them on the local
// output device, or collect them in memory for one-shot HTTP callers.
package playback

import (
	"context"
	"sync"

	"github.com/voicegpt/assistant/internal/pipeline"
)

// Browser hands synthesized audio to the connected UI surface, which renders
// it as an in-page audio control. Non-blocking from the orchestrator's
// perspective: delivery is the websocket write.
type Browser struct {
	Emit func(audio pipeline.SynthesizedAudio) error
}

// Play delivers the audio to the UI.
func (b *Browser) Play(_ context.Context, a pipeline.SynthesizedAudio) error {
	if len(a.Data) == 0 {
		return pipeline.Errf(pipeline.KindPlayback, "no synthesized audio to present")
	}
	if b.Emit == nil {
		return pipeline.Errf(pipeline.KindPlayback, "no surface attached for playback")
	}
	if err := b.Emit(a); err != nil {
		return pipeline.Errf(pipeline.KindPlayback, "present audio: %v", err)
	}
	return nil
}

// Buffer collects synthesized audio in memory. Used by the one-shot HTTP
// endpoint, where the caller receives the bytes in the response instead of a
// playback device.
type Buffer struct {
	mu    sync.Mutex
	clips []pipeline.SynthesizedAudio
}

// Play records the audio.
func (b *Buffer) Play(_ context.Context, a pipeline.SynthesizedAudio) error {
	if len(a.Data) == 0 {
		return pipeline.Errf(pipeline.KindPlayback, "no synthesized audio to present")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clips = append(b.clips, a)
	return nil
}

// Last returns the most recently played audio, if any.
func (b *Buffer) Last() (pipeline.SynthesizedAudio, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clips) == 0 {
		return pipeline.SynthesizedAudio{}, false
	}
	return b.clips[len(b.clips)-1], true
}

// Count returns how many clips have been played into the buffer.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clips)
}
