// Package mock provides a test double for the musicgen package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
)

// Compile-time assertion that Provider implements musicgen.Provider.
var _ musicgen.Provider = (*Provider)(nil)

// Provider is a mock implementation of musicgen.Provider.
type Provider struct {
	mu sync.Mutex

	// WAV is returned from every Generate call. If GenerateFunc is set it
	// takes precedence.
	WAV []byte

	// GenerateFunc, when non-nil, fully controls the response per request.
	GenerateFunc func(req musicgen.Request) ([]byte, error)

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// Calls records every Generate invocation.
	Calls []musicgen.Request
}

// Generate records the call and returns per the configured fields.
func (p *Provider) Generate(_ context.Context, req musicgen.Request) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	fn := p.GenerateFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.WAV, nil
}

// CallCount returns how many times Generate was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
