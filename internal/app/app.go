// Package app wires all Argus subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the recognition loop plus background goroutines,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithNoteStore,
// WithDisplay, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/argus-ar/argus/internal/config"
	"github.com/argus-ar/argus/internal/coordinate"
	"github.com/argus-ar/argus/internal/display"
	"github.com/argus-ar/argus/internal/facestore"
	"github.com/argus-ar/argus/internal/notestore"
	"github.com/argus-ar/argus/internal/observe"
	"github.com/argus-ar/argus/internal/scratch"
	"github.com/argus-ar/argus/internal/syncer"
	"github.com/argus-ar/argus/internal/voice"
	"github.com/argus-ar/argus/internal/wakeword"
	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/facerec"
	"github.com/argus-ar/argus/pkg/provider/stt"
	"github.com/argus-ar/argus/pkg/provider/vad"
)

// defaultEmbeddingDimensions matches dlib-style face encodings.
const defaultEmbeddingDimensions = 128

// Providers holds one interface value per provider slot, populated by
// main.go via the config registry.
type Providers struct {
	STT     stt.Transcriber
	VAD     vad.Engine
	Camera  facerec.Camera
	FaceRec facerec.Recognizer
	Audio   audio.Platform
}

// App owns all subsystem lifetimes and orchestrates the recognition and
// registration pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	disp    display.Display
	state   *coordinate.State
	metrics *observe.Metrics

	notes notestore.Store
	faces facestore.Store
	pool  *pgxpool.Pool

	session     audio.CaptureSession
	recorder    *voice.Recorder
	coordinator *coordinate.Coordinator
	uploader    *syncer.Uploader
	syncWorker  *syncer.Worker

	// voiceEnabled is false when no capture device could be opened. Face
	// recognition keeps running without the registration workflow.
	voiceEnabled bool

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDisplay injects a display instead of the log-backed console.
func WithDisplay(d display.Display) Option {
	return func(a *App) { a.disp = d }
}

// WithNoteStore injects a note store instead of creating one from config.
func WithNoteStore(s notestore.Store) Option {
	return func(a *App) { a.notes = s }
}

// WithFaceStore injects a face store instead of creating one from config.
func WithFaceStore(s facestore.Store) Option {
	return func(a *App) { a.faces = s }
}

// WithMetrics injects a metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		state:     coordinate.NewState(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.disp == nil {
		a.disp = display.NewConsole(slog.Default())
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}
	if err := a.initVoice(ctx); err != nil {
		return nil, fmt.Errorf("app: init voice: %w", err)
	}
	if err := a.initSync(); err != nil {
		return nil, fmt.Errorf("app: init sync: %w", err)
	}

	return a, nil
}

// initStorage connects the note and face stores. Without a DSN Argus runs
// on in-memory stores, losing all registrations on restart.
func (a *App) initStorage(ctx context.Context) error {
	if a.notes != nil && a.faces != nil {
		return nil // both injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, using in-memory storage")
		if a.notes == nil {
			a.notes = notestore.NewMemoryStore()
		}
		if a.faces == nil {
			a.faces = facestore.NewMemoryStore()
		}
		return nil
	}

	dims := a.cfg.Storage.EmbeddingDimensions
	if dims == 0 {
		dims = defaultEmbeddingDimensions
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	// Register pgvector types on every new connection so embedding columns
	// can be scanned into and inserted from pgvector.Vector values.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	if a.notes == nil {
		ns := notestore.NewPostgresStore(pool)
		if err := ns.Migrate(ctx); err != nil {
			return err
		}
		a.notes = ns
	}
	if a.faces == nil {
		fs, err := facestore.NewPostgresStore(pool, dims)
		if err != nil {
			return err
		}
		if err := fs.Migrate(ctx); err != nil {
			return err
		}
		a.faces = fs
	}
	return nil
}

// initVoice opens the capture device and builds the wake-word pipeline. An
// unavailable device disables the voice subsystem for this run; face
// recognition continues without it.
func (a *App) initVoice(ctx context.Context) error {
	if a.providers.Audio == nil || a.providers.STT == nil || a.providers.VAD == nil {
		slog.Warn("voice providers not configured, registration workflow disabled")
		return nil
	}

	capCfg := audio.DefaultCaptureConfig()
	if a.cfg.Audio.SampleRate != 0 {
		capCfg.SampleRate = a.cfg.Audio.SampleRate
	}
	if a.cfg.Audio.FrameMs != 0 {
		capCfg.FrameMs = a.cfg.Audio.FrameMs
	}

	sess, err := a.providers.Audio.Open(ctx, a.cfg.Audio.Device, capCfg)
	if err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			slog.Warn("no capture device available, registration workflow disabled", "error", err)
			return nil
		}
		return fmt.Errorf("open capture device: %w", err)
	}
	a.session = sess
	a.closers = append(a.closers, sess.Close)

	// 0 means unset, not the least aggressive VAD mode.
	aggressiveness := a.cfg.WakeWord.Aggressiveness
	if aggressiveness == 0 {
		aggressiveness = 3
	}
	vadSess, err := a.providers.VAD.NewSession(vad.Config{
		SampleRate:     capCfg.SampleRate,
		FrameSizeMs:    capCfg.FrameMs,
		Aggressiveness: aggressiveness,
	})
	if err != nil {
		return fmt.Errorf("create vad session: %w", err)
	}
	a.closers = append(a.closers, vadSess.Close)

	scratchStore, err := scratch.New(a.cfg.Registration.ScratchDir)
	if err != nil {
		return fmt.Errorf("create scratch store: %w", err)
	}

	transcriber := &observedTranscriber{inner: a.providers.STT, metrics: a.metrics}
	a.recorder = voice.NewRecorder(sess, transcriber, scratchStore,
		a.cfg.Registration.ClipDuration, a.cfg.Registration.ClipTimeout, slog.Default())

	detectorOpts := []wakeword.Option{}
	if a.cfg.WakeWord.ListenWindow != 0 {
		detectorOpts = append(detectorOpts, wakeword.WithListenWindow(a.cfg.WakeWord.ListenWindow))
	}
	if a.cfg.WakeWord.PhoneticMatch {
		detectorOpts = append(detectorOpts, wakeword.WithPhoneticMatch())
	}
	detector, err := wakeword.New(sess, vadSess, a.recorder, a.cfg.WakeWord.Phrase, detectorOpts...)
	if err != nil {
		return fmt.Errorf("create wake-word detector: %w", err)
	}

	a.coordinator = coordinate.New(a.state, &observedDetector{detector: detector, metrics: a.metrics}, a.disp)
	a.voiceEnabled = true
	return nil
}

// initSync builds the sync worker and uploader when sync is enabled.
func (a *App) initSync() error {
	if !a.cfg.Sync.Enabled {
		return nil
	}

	workerOpts := []syncer.Option{syncer.WithMetrics(a.metrics)}
	if a.cfg.Sync.Interval != 0 {
		workerOpts = append(workerOpts, syncer.WithInterval(a.cfg.Sync.Interval))
	}
	if a.cfg.Sync.RetryInterval != 0 {
		workerOpts = append(workerOpts, syncer.WithRetryInterval(a.cfg.Sync.RetryInterval))
	}
	worker, err := syncer.NewWorker(a.cfg.Sync.BaseURL, a.notes, workerOpts...)
	if err != nil {
		return err
	}
	a.syncWorker = worker

	uploader, err := syncer.NewUploader(a.cfg.Sync.BaseURL)
	if err != nil {
		return err
	}
	a.uploader = uploader
	return nil
}

// observedTranscriber wraps a transcriber to count every request by status.
type observedTranscriber struct {
	inner   stt.Transcriber
	metrics *observe.Metrics
}

func (t *observedTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	text, err := t.inner.Transcribe(ctx, pcm)
	status := observe.StatusOK
	switch {
	case errors.Is(err, stt.ErrNoSpeech):
		status = observe.StatusNoSpeech
	case err != nil:
		status = observe.StatusError
	}
	t.metrics.RecordTranscription(ctx, status)
	return text, err
}

// observedDetector wraps the wake-word detector to record the listen-window
// duration and accepted detections.
type observedDetector struct {
	detector *wakeword.Detector
	metrics  *observe.Metrics
}

func (d *observedDetector) Listen(ctx context.Context) (bool, error) {
	start := time.Now()
	detected, err := d.detector.Listen(ctx)
	d.metrics.RecordListenWindow(ctx, time.Since(start))
	if detected {
		d.metrics.RecordDetection(ctx)
	}
	return detected, err
}

// Run starts the recognition loop and the background goroutines, blocking
// until ctx is cancelled or a goroutine fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.voiceEnabled {
		// A failed voice subsystem never takes recognition down with it.
		g.Go(func() error {
			if err := a.coordinator.Run(ctx); err != nil {
				slog.Error("voice subsystem stopped for this session", "error", err)
			}
			return nil
		})
	}
	if a.syncWorker != nil {
		g.Go(func() error { return a.syncWorker.Run(ctx) })
	}
	g.Go(func() error { return a.runRecognition(ctx) })

	slog.Info("app running", "voice", a.voiceEnabled, "sync", a.syncWorker != nil)
	return g.Wait()
}

// runRecognition is the main frame loop: capture, recognise, enrich,
// publish, and hand detected registration requests to the dialog.
func (a *App) runRecognition(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := a.providers.Camera.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("app: capture frame: %w", err)
		}

		detections, err := a.providers.FaceRec.Recognize(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("recognition failed, skipping frame", "error", err)
			continue
		}

		a.identifyLocal(ctx, detections)
		a.enrich(ctx, detections)

		unknown := unknownDetections(detections)
		a.state.SetUnknownFaces(unknown)
		a.metrics.RecordUnknownFaces(ctx, len(unknown))
		a.disp.UpdateRecognition(detections)

		if err := a.handleRegistration(ctx); err != nil {
			return err
		}
	}
}

// identifyLocal resolves detections the recognition server reported as
// unknown against the local face store. Faces registered since the server
// last synced are recognised immediately instead of prompting again.
func (a *App) identifyLocal(ctx context.Context, detections []facerec.Detection) {
	for i := range detections {
		if detections[i].IsKnown() || len(detections[i].Encoding) == 0 {
			continue
		}
		m, found, err := a.faces.Identify(ctx, detections[i].Encoding)
		if err != nil {
			slog.Warn("local identification failed", "error", err)
			continue
		}
		if !found {
			continue
		}
		rec, ok, err := a.notes.GetByID(ctx, m.ID)
		if err != nil {
			slog.Warn("note lookup failed", "id", m.ID, "error", err)
			continue
		}
		if ok {
			detections[i].Name = rec.Name
		}
	}
}

// enrich fills in notes and category for known detections. Lookup failures
// leave the detection bare.
func (a *App) enrich(ctx context.Context, detections []facerec.Detection) {
	for i := range detections {
		if !detections[i].IsKnown() {
			continue
		}
		rec, found, err := a.notes.GetNotes(ctx, detections[i].Name)
		if err != nil {
			slog.Warn("note lookup failed", "name", detections[i].Name, "error", err)
			continue
		}
		if found {
			detections[i].Notes = rec.Notes
			detections[i].Category = rec.Category
		}
	}
}

func unknownDetections(detections []facerec.Detection) []facerec.Detection {
	var unknown []facerec.Detection
	for _, d := range detections {
		if !d.IsKnown() {
			unknown = append(unknown, d)
		}
	}
	return unknown
}

// Pool returns the PostgreSQL connection pool, or nil when Argus runs on
// in-memory storage.
func (a *App) Pool() *pgxpool.Pool { return a.pool }

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, the remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.providers.Camera != nil {
			if err := a.providers.Camera.Close(); err != nil {
				slog.Warn("camera close error", "error", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
