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

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":     {"whisper", "whisper-native", "openai"},
	"vad":     {"webrtc"},
	"facerec": {"http"},
	"audio":   {"malgo"},
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
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

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("facerec", cfg.Providers.FaceRec.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	// Audio capture format
	if cfg.Audio.SampleRate != 0 {
		switch cfg.Audio.SampleRate {
		case 8000, 16000, 32000, 48000:
		default:
			errs = append(errs, fmt.Errorf("audio.sample_rate %d is unsupported; valid values: 8000, 16000, 32000, 48000", cfg.Audio.SampleRate))
		}
	}
	if cfg.Audio.FrameMs != 0 {
		switch cfg.Audio.FrameMs {
		case 10, 20, 30:
		default:
			errs = append(errs, fmt.Errorf("audio.frame_ms %d is unsupported; valid values: 10, 20, 30", cfg.Audio.FrameMs))
		}
	}

	// Wake word
	if cfg.WakeWord.Phrase == "" {
		errs = append(errs, errors.New("wake_word.phrase is required"))
	}
	if cfg.WakeWord.ListenWindow < 0 {
		errs = append(errs, fmt.Errorf("wake_word.listen_window %v must not be negative", cfg.WakeWord.ListenWindow))
	}
	if cfg.WakeWord.Aggressiveness < 0 || cfg.WakeWord.Aggressiveness > 3 {
		errs = append(errs, fmt.Errorf("wake_word.aggressiveness %d is out of range [0, 3]", cfg.WakeWord.Aggressiveness))
	}

	// Registration
	if cfg.Registration.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("registration.max_attempts %d must not be negative", cfg.Registration.MaxAttempts))
	}
	if cfg.Registration.MaxAttempts == 0 {
		slog.Warn("registration.max_attempts is 0; dialog retry loops are unbounded")
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; faces and notes will not survive a restart")
	}
	if cfg.Storage.PostgresDSN != "" && cfg.Storage.EmbeddingDimensions <= 0 {
		slog.Warn("storage.embedding_dimensions is not set; defaulting to 128")
	}

	// Sync
	if cfg.Sync.Enabled && cfg.Sync.BaseURL == "" {
		errs = append(errs, errors.New("sync.base_url is required when sync.enabled is true"))
	}
	if cfg.Sync.Interval < 0 {
		errs = append(errs, fmt.Errorf("sync.interval %v must not be negative", cfg.Sync.Interval))
	}
	if cfg.Sync.RetryInterval < 0 {
		errs = append(errs, fmt.Errorf("sync.retry_interval %v must not be negative", cfg.Sync.RetryInterval))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
