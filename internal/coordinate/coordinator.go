package coordinate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/argus-ar/argus/internal/display"
	"github.com/argus-ar/argus/pkg/audio"
)

// DefaultPollInterval is how often the coordinator re-evaluates whether the
// wake-word listener should run.
const DefaultPollInterval = 200 * time.Millisecond

// Detector runs one bounded listening window. Satisfied by
// wakeword.Detector.
type Detector interface {
	Listen(ctx context.Context) (detected bool, err error)
}

// Coordinator owns the background listening goroutine. Every poll tick it
// consults the shared state, keeps the display's listening indicator in
// sync, and runs a listening window when the conditions hold. A detection is
// handed to the main loop by flipping the state machine to Active; the
// coordinator itself never touches storage or runs dialogs.
type Coordinator struct {
	state    *State
	detector Detector
	disp     display.Display
	interval time.Duration
	log      *slog.Logger
}

// Option is a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithPollInterval overrides the poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Coordinator.
func New(state *State, detector Detector, disp display.Display, opts ...Option) *Coordinator {
	c := &Coordinator{
		state:    state,
		detector: detector,
		disp:     disp,
		interval: DefaultPollInterval,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run polls until ctx is cancelled. It returns nil on cancellation and an
// error only when the audio device becomes unusable; in that case the voice
// subsystem is done for the session while face recognition carries on.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Tracks the last broadcast value so the display only hears changes.
	var lastStatus, statusKnown bool

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		shouldListen := c.state.ShouldListen()

		// Broadcast outside the state lock; ShouldListen has already
		// released it.
		if !statusKnown || shouldListen != lastStatus {
			c.disp.UpdateStatus(shouldListen)
			lastStatus, statusKnown = shouldListen, true
		}

		if !shouldListen {
			continue
		}

		detected, err := c.detector.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, audio.ErrDeviceUnavailable) || errors.Is(err, audio.ErrSessionClosed) {
				c.log.Error("audio device unusable, stopping wake-word listening", "error", err)
				c.disp.UpdateStatus(false)
				return err
			}
			c.log.Warn("listening window failed", "error", err)
			continue
		}
		if !detected {
			continue
		}

		// The world may have changed during the blocking listen; the
		// transition re-validates under the lock.
		if c.state.BeginRegistration() {
			c.log.Info("wake word accepted, registration handed to main loop")
		} else {
			c.log.Info("wake word discarded, conditions no longer hold")
		}
	}
}
