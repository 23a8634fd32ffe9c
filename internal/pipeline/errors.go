package pipeline

import (
	"errors"
	"fmt"

	"github.com/voicegpt/assistant/internal/audio"
)

// Kind classifies a stage failure so the orchestrator can act on it without
// unwinding the call stack.
type Kind string

const (
	KindConfig          Kind = "config"
	KindAudioDecode     Kind = "audio_decode"
	KindNetwork         Kind = "network"
	KindBackend         Kind = "backend"
	KindEmptyTranscript Kind = "empty_transcript"
	KindSynthesis       Kind = "synthesis"
	KindAssetFetch      Kind = "asset_fetch"
	KindPlayback        Kind = "playback"
)

// Error is a tagged stage failure. Every stage error is terminal for the run
// that produced it; there is no retry anywhere in the pipeline.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a tagged error from a format string.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// AsError coerces any stage error into a tagged pipeline error. Audio decode
// failures keep their kind; anything untagged is a backend failure.
func AsError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	var derr *audio.DecodeError
	if errors.As(err, &derr) {
		return &Error{Kind: KindAudioDecode, Err: err}
	}
	return &Error{Kind: KindBackend, Err: err}
}
