package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists known backend names per collaborator kind.
// Used by [Validate] to warn about unrecognised names.
var ValidBackendNames = map[string][]string{
	"asr":       {"whisper", "whisper-native"},
	"musicgen":  {"audiocraft"},
	"segmenter": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for omitted
// sections, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateBackendName("asr", cfg.Providers.ASR.Name)
	validateBackendName("musicgen", cfg.Providers.MusicGen.Name)
	validateBackendName("segmenter", cfg.Providers.Segmenter.Name)

	if cfg.Providers.ASR.Name == "" {
		slog.Warn("no ASR backend configured; the server will refuse to start")
	}
	if cfg.Providers.MusicGen.Name == "" {
		slog.Warn("no music generation backend configured; the server will refuse to start")
	}

	if cfg.Mix.Ducking < 0 || cfg.Mix.Ducking > 1 {
		errs = append(errs, fmt.Errorf("mix.ducking_amount %v is out of range [0, 1]", cfg.Mix.Ducking))
	}
	if cfg.Mix.CrossfadeMS < 0 {
		errs = append(errs, fmt.Errorf("mix.crossfade_ms %d must not be negative", cfg.Mix.CrossfadeMS))
	}
	if cfg.Mix.BackgroundDB > 0 {
		slog.Warn("mix.bg_db is positive; the music bed will sit above full scale before limiting",
			"bg_db", cfg.Mix.BackgroundDB)
	}

	if cfg.Generation.DurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("generation.duration_s %d must be positive", cfg.Generation.DurationSeconds))
	}

	return errors.Join(errs...)
}

// validateBackendName warns when a non-empty backend name is not in the known
// list. Unknown names are not fatal — a newer backend may simply not be
// listed here yet.
func validateBackendName(kind, name string) {
	if name == "" {
		return
	}
	if !slices.Contains(ValidBackendNames[kind], name) {
		slog.Warn("unrecognised backend name",
			"kind", kind,
			"name", name,
			"known", ValidBackendNames[kind])
	}
}
