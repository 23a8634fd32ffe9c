package audio

import "math"

// Normalize converts a captured clip to the form transcription backends
// consume: mono 16-bit PCM WAV at the clip's original sample rate. Channels
// are collapsed by taking the arithmetic mean across channels at each frame;
// no resampling is performed. An already-normalized clip passes through
// unchanged.
func Normalize(clip Clip) (Clip, error) {
	if clip.Encoding == EncodingMonoPCM && clip.Channels == 1 {
		return clip, nil
	}

	samples, channels, rate, err := decodeWAV(clip.Data)
	if err != nil {
		return Clip{}, err
	}

	mono := samples
	if channels > 1 {
		mono = downmix(samples, channels)
	}

	return Clip{
		Data:       EncodeWAV(mono, 1, rate),
		SampleRate: rate,
		Channels:   1,
		Encoding:   EncodingMonoPCM,
	}, nil
}

// downmix averages interleaved channel samples into a mono signal.
// Frame count is preserved.
func downmix(samples []int, channels int) []int {
	frames := len(samples) / channels
	mono := make([]int, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += samples[f*channels+ch]
		}
		mono[f] = int(math.Round(float64(sum) / float64(channels)))
	}
	return mono
}
