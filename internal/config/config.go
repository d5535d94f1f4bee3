// Package config provides the configuration schema and loader for the
// SonicMuse composition server.
package config

import "github.com/sonicmuse/sonicmuse/pkg/mix"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for SonicMuse.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Mix        mix.Params       `yaml:"mix"`
	Store      StoreConfig      `yaml:"store"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which backend to use for each external
// collaborator.
type ProvidersConfig struct {
	ASR       ProviderEntry `yaml:"asr"`
	MusicGen  ProviderEntry `yaml:"musicgen"`
	Segmenter ProviderEntry `yaml:"segmenter"`
}

// ProviderEntry is the common configuration block shared by all collaborator
// kinds. Which fields are meaningful depends on the backend named in Name.
type ProviderEntry struct {
	// Name selects the backend implementation (e.g., "whisper",
	// "whisper-native", "audiocraft", "openai"). Empty disables the
	// collaborator where the pipeline permits it.
	Name string `yaml:"name"`

	// APIKey is the authentication key for hosted backends.
	APIKey string `yaml:"api_key"`

	// BaseURL is the endpoint of a self-hosted inference server.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the backend (e.g., "small", a
	// whisper.cpp model file path for the native backend, "gpt-4o-mini").
	Model string `yaml:"model"`

	// Language is the BCP-47 transcription language (ASR only).
	Language string `yaml:"language"`

	// Fallback optionally names a second backend tried when this one fails.
	Fallback *ProviderEntry `yaml:"fallback"`
}

// GenerationConfig holds defaults for music generation requests.
type GenerationConfig struct {
	// DurationSeconds is the default generated bed length.
	DurationSeconds int `yaml:"duration_s"`

	// Seed is the default generation seed.
	Seed int64 `yaml:"seed"`
}

// StoreConfig configures the optional composition history store.
type StoreConfig struct {
	// PostgresDSN enables the Postgres-backed job store when non-empty.
	// When empty, history is kept in memory and lost on restart.
	PostgresDSN string `yaml:"postgres_dsn"`

	// RetainJobs caps how many recent jobs the in-memory store keeps.
	RetainJobs int `yaml:"retain_jobs"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8000",
			LogLevel:   LogInfo,
		},
		Generation: GenerationConfig{
			DurationSeconds: 30,
			Seed:            42,
		},
		Mix: mix.DefaultParams(),
	}
}
