// Command argus is the main entry point for the Argus face-recognition
// assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argus-ar/argus/internal/app"
	"github.com/argus-ar/argus/internal/config"
	"github.com/argus-ar/argus/internal/health"
	"github.com/argus-ar/argus/internal/observe"
	"github.com/argus-ar/argus/pkg/audio"
	malgoaudio "github.com/argus-ar/argus/pkg/audio/malgo"
	"github.com/argus-ar/argus/pkg/provider/facerec"
	"github.com/argus-ar/argus/pkg/provider/facerec/httprec"
	"github.com/argus-ar/argus/pkg/provider/stt"
	oaistt "github.com/argus-ar/argus/pkg/provider/stt/openai"
	"github.com/argus-ar/argus/pkg/provider/stt/whisper"
	"github.com/argus-ar/argus/pkg/provider/vad"
	"github.com/argus-ar/argus/pkg/provider/vad/webrtc"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "argus: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "argus: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("argus starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics provider must be up before any subsystem records a metric.
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "argus",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if cfg.Server.ListenAddr != "" {
		var checkers []health.Checker
		if pool := application.Pool(); pool != nil {
			checkers = append(checkers, health.DatabaseChecker(pool))
		}
		startHTTPServer(ctx, cfg.Server.ListenAddr, checkers...)
	}

	slog.Info("argus ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newLogger builds the process-wide text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// startHTTPServer serves the health probes and the Prometheus /metrics
// endpoint. It shuts itself down when ctx is cancelled.
func startHTTPServer(ctx context.Context, addr string, checkers ...health.Checker) {
	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("http server listening", "addr", addr)
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ──────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	// ── VAD ──────────────────────────────────────────────────────────────

	reg.RegisterVAD("webrtc", func(config.ProviderEntry) (vad.Engine, error) {
		return webrtc.New(), nil
	})

	// ── Face recognition ─────────────────────────────────────────────────

	reg.RegisterFaceRec("http", func(entry config.ProviderEntry) (facerec.Recognizer, error) {
		return httprec.New(entry.BaseURL)
	})

	// ── Audio capture ────────────────────────────────────────────────────

	reg.RegisterAudio("malgo", func(config.ProviderEntry) (audio.Platform, error) {
		return malgoaudio.New()
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.VAD.Name; name != "" {
		p, err := reg.CreateVAD(cfg.Providers.VAD)
		if err != nil {
			return nil, fmt.Errorf("create vad provider %q: %w", name, err)
		}
		ps.VAD = p
		slog.Info("provider created", "kind", "vad", "name", name)
	}

	if name := cfg.Providers.FaceRec.Name; name != "" {
		p, err := reg.CreateFaceRec(cfg.Providers.FaceRec)
		if err != nil {
			return nil, fmt.Errorf("create facerec provider %q: %w", name, err)
		}
		ps.FaceRec = p
		slog.Info("provider created", "kind", "facerec", "name", name)

		// The recognition server also owns the video device; point the
		// snapshot camera at the same endpoint.
		if name == "http" {
			cam, err := httprec.NewCamera(cfg.Providers.FaceRec.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("create snapshot camera: %w", err)
			}
			ps.Camera = cam
		}
	}
	if ps.FaceRec == nil {
		return nil, errors.New("providers.facerec is required")
	}
	if ps.Camera == nil {
		return nil, errors.New("no camera available for facerec provider")
	}

	if name := cfg.Providers.Audio.Name; name != "" {
		p, err := reg.CreateAudio(cfg.Providers.Audio)
		if err != nil {
			return nil, fmt.Errorf("create audio provider %q: %w", name, err)
		}
		ps.Audio = p
		slog.Info("provider created", "kind", "audio", "name", name)
	}

	return ps, nil
}

// optString reads a string value from a provider options map.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	if v, ok := opts[key].(string); ok {
		return v
	}
	return ""
}
