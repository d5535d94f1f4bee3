// Package mock provides a test double for the segmenter package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/sonicmuse/sonicmuse/pkg/provider/segmenter"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// Compile-time assertion that Provider implements segmenter.Provider.
var _ segmenter.Provider = (*Provider)(nil)

// Provider is a mock implementation of segmenter.Provider.
type Provider struct {
	mu sync.Mutex

	// Sections is returned from every Split call.
	Sections []types.Section

	// Err, if non-nil, is returned as the error from Split.
	Err error

	// Calls records the transcript of every Split invocation.
	Calls []string
}

// Split records the call and returns Sections, Err.
func (p *Provider) Split(_ context.Context, transcript string, _ []types.Segment) ([]types.Section, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, transcript)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Sections, nil
}
