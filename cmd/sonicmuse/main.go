// Command sonicmuse serves the speech-to-music composition API and offers a
// few offline subcommands for working with WAV files directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/sonicmuse/sonicmuse/internal/app"
	"github.com/sonicmuse/sonicmuse/internal/config"
	"github.com/sonicmuse/sonicmuse/internal/observe"
	"github.com/sonicmuse/sonicmuse/pkg/audio"
	"github.com/sonicmuse/sonicmuse/pkg/mix"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Config  string           `short:"c" default:"config.yaml" type:"path" help:"Path to the YAML configuration file."`
	Version kong.VersionFlag `short:"v" help:"Show version information."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the composition server (default)."`
	Analyze AnalyzeCmd `cmd:"" help:"Transcribe and score a WAV file, printing the derived controls as JSON."`
	Compose ComposeCmd `cmd:"" help:"Run the full pipeline on a WAV file and write the mixed result."`
	Mix     MixCmd     `cmd:"" help:"Duck a music bed under a dialogue recording."`
}

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("sonicmuse"),
		kong.Description("Derives music from the mood of spoken audio."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	if err := kctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "sonicmuse: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the YAML config, pointing at the example file when the
// path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", path)
	}
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	return cfg, nil
}

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct{}

func (*ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("sonicmuse starting",
		"version", version,
		"config", cli.Config,
		"listen_addr", cfg.Server.ListenAddr,
	)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	slog.Info("goodbye")
	return nil
}

// AnalyzeCmd transcribes a recording and prints the analysis as JSON.
type AnalyzeCmd struct {
	File string `arg:"" type:"existingfile" help:"WAV file to analyze."`
}

func (c *AnalyzeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownQuietly(application)

	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	analysis, err := application.Pipeline().Analyze(ctx, data)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

// ComposeCmd runs transcription, scoring, generation, and mixing end to end.
type ComposeCmd struct {
	File   string `arg:"" type:"existingfile" help:"WAV file with the dialogue."`
	Output string `short:"o" default:"composed.wav" help:"Path for the mixed WAV output."`
}

func (c *ComposeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownQuietly(application)

	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	start := time.Now()
	composition, err := application.Pipeline().Compose(ctx, data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(c.Output, composition.Mixed, 0o644); err != nil {
		return err
	}
	slog.Info("composition written",
		"output", c.Output,
		"sections", len(composition.Sections),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// MixCmd ducks a music bed under dialogue without any remote backend.
type MixCmd struct {
	Dialogue string  `arg:"" type:"existingfile" help:"WAV file with the dialogue."`
	Music    string  `arg:"" type:"existingfile" help:"WAV file with the music bed."`
	Output   string  `short:"o" default:"mixed.wav" help:"Path for the mixed WAV output."`
	BgDB     float64 `name:"bg-db" default:"-18" help:"Music bed level in dBFS."`
	Ducking  float64 `default:"0.3" help:"Ducking amount under speech, 0 to 1."`
}

func (c *MixCmd) Run(*CLI) error {
	dialogue, err := os.ReadFile(c.Dialogue)
	if err != nil {
		return err
	}
	music, err := os.ReadFile(c.Music)
	if err != nil {
		return err
	}

	params := mix.DefaultParams()
	params.BackgroundDB = c.BgDB
	params.Ducking = c.Ducking

	mixed, err := mix.Mix(dialogue, music, params)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Output, mixed, 0o644); err != nil {
		return err
	}

	buf, err := audio.DecodeWAV(mixed)
	if err == nil {
		fmt.Printf("wrote %s (%.1fs)\n", c.Output, buf.Seconds())
	} else {
		fmt.Printf("wrote %s\n", c.Output)
	}
	return nil
}

func shutdownQuietly(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		slog.Warn("shutdown error", "err", err)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
