// Package audio provides the in-memory audio buffer type shared by every
// pipeline stage, together with channel/sample-rate conversion and the WAV
// codec used at the system boundary.
package audio

import (
	"errors"
	"time"
)

// ErrEmptyBuffer is returned when an operation receives a buffer with no samples.
var ErrEmptyBuffer = errors.New("audio: empty buffer")

// Buffer holds decoded PCM audio as interleaved float64 samples in [-1, 1].
// Channels is 1 (mono) or 2 (stereo); stereo samples are interleaved L,R.
// Buffers are owned by a single caller per invocation — no pipeline stage
// retains a reference after returning.
type Buffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// NumFrames returns the number of sample frames (samples per channel).
func (b *Buffer) NumFrames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.NumFrames()) / float64(b.SampleRate) * float64(time.Second))
}

// Seconds returns the playback length in seconds.
func (b *Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumFrames()) / float64(b.SampleRate)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Samples:    make([]float64, len(b.Samples)),
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
	copy(out.Samples, b.Samples)
	return out
}

// Mono returns a mono view of the buffer. Stereo input is downmixed by
// averaging L and R per frame; mono input is returned unchanged (no copy).
func (b *Buffer) Mono() *Buffer {
	if b.Channels != 2 {
		return b
	}
	frames := b.NumFrames()
	out := make([]float64, frames)
	for i := range frames {
		out[i] = (b.Samples[i*2] + b.Samples[i*2+1]) / 2
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: 1}
}

// Stereo returns a stereo view of the buffer. Mono input is upmixed by
// duplicating each sample into the L and R slots; stereo input is returned
// unchanged (no copy).
func (b *Buffer) Stereo() *Buffer {
	if b.Channels == 2 {
		return b
	}
	out := make([]float64, len(b.Samples)*2)
	for i, s := range b.Samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: 2}
}

// Peak returns the maximum absolute sample value in the buffer, or 0 for an
// empty buffer.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	return peak
}
