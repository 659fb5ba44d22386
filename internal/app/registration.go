package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/argus-ar/argus/internal/dialog"
	"github.com/argus-ar/argus/internal/observe"
)

// uploadTimeout bounds the fire-and-forget upload of a committed
// registration.
const uploadTimeout = 30 * time.Second

// handleRegistration consumes a pending registration request, runs the voice
// dialog synchronously, and commits the result. Blocking the frame loop here
// is intentional: at most one registration runs at a time and recognition
// results would be stale anyway while the user is talking.
func (a *App) handleRegistration(ctx context.Context) error {
	req, ok, requested := a.state.ConsumeRequest()
	if !requested {
		return nil
	}

	if !ok {
		// The unknown face left between detection and pickup.
		slog.Info("registration request abandoned, no unknown face left")
		a.metrics.RecordRegistration(ctx, observe.OutcomeAbandoned)
		a.state.FinishRegistration()
		return nil
	}

	defer a.state.FinishRegistration()

	a.disp.StartRegistration(req.Box)
	dlg := dialog.New(a.recorder, a.disp, a.cfg.WakeWord.Phrase, a.cfg.Registration.MaxAttempts, slog.Default())

	rec, err := dlg.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, dialog.ErrAborted) {
			slog.Info("registration dialog aborted")
		} else {
			slog.Warn("registration dialog failed", "error", err)
		}
		a.metrics.RecordRegistration(ctx, observe.OutcomeAborted)
		return nil
	}

	if err := a.commit(ctx, rec, req.Encoding); err != nil {
		slog.Error("registration commit failed", "name", rec.Name, "error", err)
		a.disp.ShowNotification("Could not save " + rec.Name)
		a.metrics.RecordRegistration(ctx, observe.OutcomeAborted)
		return nil
	}

	a.metrics.RecordRegistration(ctx, observe.OutcomeCommitted)
	a.disp.ShowNotification("Registered " + rec.Name)

	if a.uploader != nil {
		go a.uploadAsync(rec)
	}
	return nil
}

// commit writes the dialog result and the face embedding to the stores.
func (a *App) commit(ctx context.Context, rec dialog.Record, encoding []float32) error {
	id, err := a.notes.StoreNotes(ctx, rec.Name, rec.Notes, rec.Category)
	if err != nil {
		return fmt.Errorf("store notes: %w", err)
	}
	if len(encoding) > 0 {
		if err := a.faces.AddFace(ctx, id, encoding); err != nil {
			return fmt.Errorf("store embedding: %w", err)
		}
	} else {
		slog.Warn("registration committed without an embedding", "name", rec.Name)
	}
	return nil
}

// uploadAsync pushes a committed registration to the sync server. Failures
// are logged only; the local commit stands either way.
func (a *App) uploadAsync(rec dialog.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	if _, err := a.uploader.Upload(ctx, rec.Name, rec.Notes, rec.Category); err != nil {
		slog.Warn("upload of new registration failed", "name", rec.Name, "error", err)
		a.metrics.RecordSyncFailure(ctx, observe.DirectionPush)
	}
}
