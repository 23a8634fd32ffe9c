package audio

// Encoding tags the container/codec state of a clip's bytes.
type Encoding string

const (
	// EncodingCaptured is audio exactly as the capture surface recorded it
	// (a WAV container, any channel count and bit depth).
	EncodingCaptured Encoding = "captured"

	// EncodingMonoPCM is the normalized form consumed by transcription
	// backends: mono 16-bit PCM in a WAV container.
	EncodingMonoPCM Encoding = "mono-pcm-wav"
)

// Clip is one audio buffer moving through a pipeline run. A clip is owned by
// the run that produced it and is never shared between runs.
type Clip struct {
	Data       []byte
	SampleRate int
	Channels   int
	Encoding   Encoding
}

// Captured wraps raw recorded bytes as a captured clip. Sample rate and
// channel count are unknown until the normalizer decodes the container.
func Captured(data []byte) Clip {
	return Clip{Data: data, Encoding: EncodingCaptured}
}
