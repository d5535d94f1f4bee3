// Package mock provides a test double for the asr package interfaces.
//
// Use Provider to return a fixed transcript and to inspect what audio the
// caller submitted.
package mock

import (
	"context"
	"sync"

	"github.com/sonicmuse/sonicmuse/pkg/provider/asr"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned from every Transcribe call.
	Transcript types.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records the audio payload of every Transcribe invocation.
	Calls [][]byte
}

// Transcribe records the call and returns Transcript, Err.
func (p *Provider) Transcribe(_ context.Context, wavData []byte) (types.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(wavData))
	copy(cp, wavData)
	p.Calls = append(p.Calls, cp)
	if p.Err != nil {
		return types.Transcript{}, p.Err
	}
	return p.Transcript, nil
}

// CallCount returns how many times Transcribe was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
