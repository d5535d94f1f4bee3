// Package asr defines the Provider interface for speech-to-text backends.
//
// The transcription service is an external collaborator: the pipeline hands
// it encoded audio and consumes an opaque (transcript, segments) result. The
// interface is batch, not streaming — a composition request already holds the
// complete recording, so there is nothing to gain from partial results.
//
// Implementations must be safe for concurrent use. Whether a backend permits
// more than one concurrent inference is the backend's own policy and is not
// modelled here.
package asr

import (
	"context"

	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe submits a complete WAV recording and returns the transcript
	// with its ordered, timestamped segments. An empty recording or one with
	// no detectable speech yields an empty transcript, not an error.
	Transcribe(ctx context.Context, wavData []byte) (types.Transcript, error)
}
