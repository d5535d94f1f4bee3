package resilience

import (
	"context"

	"github.com/sonicmuse/sonicmuse/pkg/provider/asr"
	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// Compile-time assertions that the groups satisfy the provider interfaces.
var (
	_ asr.Provider      = (*ASRGroup)(nil)
	_ musicgen.Provider = (*MusicGenGroup)(nil)
)

// ASRGroup is an [asr.Provider] that fails over between transcription
// backends. The pipeline uses it exactly like a single provider.
type ASRGroup struct {
	group *FallbackGroup[asr.Provider]
}

// NewASRGroup wraps primary in a failover group.
func NewASRGroup(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRGroup {
	return &ASRGroup{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional transcription backend.
func (g *ASRGroup) AddFallback(name string, p asr.Provider) {
	g.group.AddFallback(name, p)
}

// Transcribe implements asr.Provider with failover.
func (g *ASRGroup) Transcribe(ctx context.Context, wavData []byte) (types.Transcript, error) {
	return ExecuteWithResult(g.group, func(p asr.Provider) (types.Transcript, error) {
		return p.Transcribe(ctx, wavData)
	})
}

// MusicGenGroup is a [musicgen.Provider] that fails over between generation
// backends.
type MusicGenGroup struct {
	group *FallbackGroup[musicgen.Provider]
}

// NewMusicGenGroup wraps primary in a failover group.
func NewMusicGenGroup(primary musicgen.Provider, primaryName string, cfg FallbackConfig) *MusicGenGroup {
	return &MusicGenGroup{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional generation backend.
func (g *MusicGenGroup) AddFallback(name string, p musicgen.Provider) {
	g.group.AddFallback(name, p)
}

// Generate implements musicgen.Provider with failover.
func (g *MusicGenGroup) Generate(ctx context.Context, req musicgen.Request) ([]byte, error) {
	return ExecuteWithResult(g.group, func(p musicgen.Provider) ([]byte, error) {
		return p.Generate(ctx, req)
	})
}
