package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/wav"
)

// DecodeError reports input bytes that are not a decodable audio container.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "audio decode failed"
	}
	return fmt.Sprintf("audio decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeWAV encodes interleaved 16-bit samples as a WAV byte slice.
func EncodeWAV(samples []int, channels, sampleRate int) []byte {
	dataLen := len(samples) * 2
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))            // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                            // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(clampInt16(s))))
	}

	return buf
}

func clampInt16(s int) int {
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}

// decodeWAV parses a WAV container into interleaved 16-bit samples.
func decodeWAV(data []byte) (samples []int, channels, sampleRate int, err error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, 0, 0, &DecodeError{Err: fmt.Errorf("not a valid WAV container")}
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, &DecodeError{Err: err}
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, 0, &DecodeError{Err: fmt.Errorf("missing format chunk")}
	}

	samples = rescaleTo16(buf.Data, buf.SourceBitDepth)
	return samples, buf.Format.NumChannels, buf.Format.SampleRate, nil
}

// rescaleTo16 converts samples at the source bit depth to 16-bit range.
func rescaleTo16(data []int, bitDepth int) []int {
	out := make([]int, len(data))
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		for i, s := range data {
			out[i] = (s - 128) << 8
		}
	case 24:
		for i, s := range data {
			out[i] = s >> 8
		}
	case 32:
		for i, s := range data {
			out[i] = s >> 16
		}
	default:
		copy(out, data)
	}
	return out
}
