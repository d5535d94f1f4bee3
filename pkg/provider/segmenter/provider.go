// Package segmenter defines the Provider interface for script segmentation
// backends.
//
// Splitting a transcript into musically distinct sections is delegated to an
// external LLM collaborator; this core only consumes its opaque result. When
// no segmenter is configured (or the collaborator fails), the pipeline treats
// the whole recording as a single section.
package segmenter

import (
	"context"

	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// Provider is the abstraction over any script segmentation backend.
type Provider interface {
	// Split divides the transcript into ordered, non-overlapping sections.
	// The segments give the collaborator timing context. An empty transcript
	// yields zero sections, not an error.
	Split(ctx context.Context, transcript string, segments []types.Segment) ([]types.Section, error)
}
