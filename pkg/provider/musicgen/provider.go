// Package musicgen defines the Provider interface for text-to-music
// generation backends.
//
// The generator is an external collaborator: the pipeline hands it a prompt
// plus musical parameters and consumes an opaque waveform. Generation is
// slow, CPU/GPU-bound work — any at-most-one-inference-at-a-time policy
// belongs to the backend, not to this interface.
package musicgen

import "context"

// Request carries the prompt and musical parameters for one generation call.
type Request struct {
	// Prompt is the style description built from the decided controls.
	Prompt string

	// DurationSeconds is the requested length of the generated bed.
	DurationSeconds int

	// Seed makes generation reproducible. Backends that cannot honour a
	// seed may ignore it.
	Seed int64

	// TempoBPM and Key are forwarded as generation hints.
	TempoBPM int
	Key      string
}

// Provider is the abstraction over any music generation backend. The result
// is encoded WAV (generators typically emit 32 kHz stereo; the mixer
// resamples as needed).
type Provider interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}
