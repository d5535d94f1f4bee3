// Package app wires all SonicMuse subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithASR, WithMusicGen, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sonicmuse/sonicmuse/internal/compose"
	"github.com/sonicmuse/sonicmuse/internal/config"
	"github.com/sonicmuse/sonicmuse/internal/health"
	"github.com/sonicmuse/sonicmuse/internal/jobstore"
	"github.com/sonicmuse/sonicmuse/internal/observe"
	"github.com/sonicmuse/sonicmuse/internal/resilience"
	"github.com/sonicmuse/sonicmuse/internal/server"
	"github.com/sonicmuse/sonicmuse/pkg/provider/asr"
	"github.com/sonicmuse/sonicmuse/pkg/provider/asr/whisper"
	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen/audiocraft"
	"github.com/sonicmuse/sonicmuse/pkg/provider/segmenter"
	"github.com/sonicmuse/sonicmuse/pkg/provider/segmenter/openai"
)

// shutdownTimeout bounds the graceful HTTP drain on context cancellation.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	// Collaborators — injected via options or built from config in New.
	asrProvider asr.Provider
	genProvider musicgen.Provider
	segProvider segmenter.Provider
	store       jobstore.Store

	pipeline *compose.Pipeline
	server   *server.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithASR injects a transcription backend instead of creating one from config.
func WithASR(p asr.Provider) Option {
	return func(a *App) { a.asrProvider = p }
}

// WithMusicGen injects a generation backend instead of creating one from config.
func WithMusicGen(p musicgen.Provider) Option {
	return func(a *App) { a.genProvider = p }
}

// WithSegmenter injects a segmentation backend instead of creating one from config.
func WithSegmenter(p segmenter.Provider) Option {
	return func(a *App) { a.segProvider = p }
}

// WithStore injects a job store instead of creating one from config.
func WithStore(s jobstore.Store) Option {
	return func(a *App) { a.store = s }
}

// New creates an App by wiring all subsystems together: providers with
// failover groups, the job store, the pipeline, and the HTTP server.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initProviders(); err != nil {
		return nil, fmt.Errorf("app: init providers: %w", err)
	}
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	metrics := observe.DefaultMetrics()

	pipelineOpts := []compose.Option{compose.WithMetrics(metrics)}
	if a.segProvider != nil {
		pipelineOpts = append(pipelineOpts, compose.WithSegmenter(a.segProvider))
	}
	a.pipeline = compose.New(a.asrProvider, a.genProvider, compose.Config{
		DurationSeconds: cfg.Generation.DurationSeconds,
		Seed:            cfg.Generation.Seed,
		MixParams:       cfg.Mix,
	}, pipelineOpts...)

	a.server = server.New(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		MixParams:  cfg.Mix,
		RetainJobs: cfg.Store.RetainJobs,
	}, a.pipeline,
		server.WithStore(a.store),
		server.WithHealth(health.New(a.healthCheckers()...)),
		server.WithMetrics(metrics),
	)

	return a, nil
}

// initProviders builds the ASR, musicgen, and segmenter backends from config,
// wrapping ASR and musicgen in failover groups when fallbacks are declared.
func (a *App) initProviders() error {
	if a.asrProvider == nil {
		p, err := a.buildASRChain(a.cfg.Providers.ASR)
		if err != nil {
			return err
		}
		a.asrProvider = p
	}

	if a.genProvider == nil {
		p, err := a.buildMusicGenChain(a.cfg.Providers.MusicGen)
		if err != nil {
			return err
		}
		a.genProvider = p
	}

	if a.segProvider == nil && a.cfg.Providers.Segmenter.Name != "" {
		p, err := buildSegmenter(a.cfg.Providers.Segmenter)
		if err != nil {
			return err
		}
		a.segProvider = p
	}

	return nil
}

// buildASRChain builds the primary ASR backend plus any declared fallbacks
// behind a failover group.
func (a *App) buildASRChain(entry config.ProviderEntry) (asr.Provider, error) {
	primary, err := a.buildASR(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	group := resilience.NewASRGroup(primary, entry.Name, resilience.FallbackConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		p, err := a.buildASR(*fb)
		if err != nil {
			return nil, err
		}
		group.AddFallback(fb.Name, p)
	}
	return group, nil
}

// buildASR constructs a single ASR backend.
func (a *App) buildASR(entry config.ProviderEntry) (asr.Provider, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)

	case "whisper-native":
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		p, err := whisper.NewNative(entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil

	case "":
		return nil, fmt.Errorf("providers.asr.name is required")

	default:
		return nil, fmt.Errorf("unknown asr backend %q", entry.Name)
	}
}

// buildMusicGenChain builds the primary generation backend plus any declared
// fallbacks behind a failover group.
func (a *App) buildMusicGenChain(entry config.ProviderEntry) (musicgen.Provider, error) {
	primary, err := buildMusicGen(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	group := resilience.NewMusicGenGroup(primary, entry.Name, resilience.FallbackConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		p, err := buildMusicGen(*fb)
		if err != nil {
			return nil, err
		}
		group.AddFallback(fb.Name, p)
	}
	return group, nil
}

// buildMusicGen constructs a single generation backend.
func buildMusicGen(entry config.ProviderEntry) (musicgen.Provider, error) {
	switch entry.Name {
	case "audiocraft":
		return audiocraft.New(entry.BaseURL)
	case "":
		return nil, fmt.Errorf("providers.musicgen.name is required")
	default:
		return nil, fmt.Errorf("unknown musicgen backend %q", entry.Name)
	}
}

// buildSegmenter constructs the optional segmentation backend.
func buildSegmenter(entry config.ProviderEntry) (segmenter.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown segmenter backend %q", entry.Name)
	}
}

// initStore sets up the job store: Postgres when a DSN is configured, an
// in-memory store otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	if dsn := a.cfg.Store.PostgresDSN; dsn != "" {
		store, err := jobstore.NewPostgres(ctx, dsn)
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		slog.Info("job store connected", "backend", "postgres")
		return nil
	}

	a.store = jobstore.NewMemory()
	slog.Info("job store in memory, history lost on restart")
	return nil
}

// healthCheckers builds the readiness checker list from the configuration.
func (a *App) healthCheckers() []health.Checker {
	var checkers []health.Checker
	if url := a.cfg.Providers.ASR.BaseURL; url != "" {
		checkers = append(checkers, health.EndpointChecker("asr", url, http.DefaultClient))
	}
	if url := a.cfg.Providers.MusicGen.BaseURL; url != "" {
		checkers = append(checkers, health.EndpointChecker("musicgen", url, http.DefaultClient))
	}
	if p, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.StoreChecker(p))
	}
	return checkers
}

// Pipeline exposes the composed pipeline for CLI use.
func (a *App) Pipeline() *compose.Pipeline { return a.pipeline }

// Run serves the HTTP API and blocks until ctx is cancelled or the listener
// fails. On cancellation the server is drained gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(drainCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	<-errCh
	return ctx.Err()
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
