// Package dialog implements the voice-driven registration dialog: three
// fields captured in a fixed order, each spoken value confirmed or retried
// until the user accepts it.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/argus-ar/argus/internal/display"
	"github.com/argus-ar/argus/internal/voice"
	"github.com/argus-ar/argus/pkg/provider/stt"
)

// ErrAborted is returned by Run when the dialog could not complete: the
// name could not be captured or confirmed, or a retry bound was exhausted.
// Nothing is committed on abort.
var ErrAborted = errors.New("dialog: registration aborted")

// DefaultCategory is assigned when the user leaves the category empty.
const DefaultCategory = "Other"

// Field names, in capture order.
const (
	FieldName     = "name"
	FieldNotes    = "notes"
	FieldCategory = "category"
)

// Record is the outcome of a completed dialog. Immutable after Run returns.
type Record struct {
	Name     string
	Notes    string
	Category string
}

// Capturer records one utterance and returns its transcript. Satisfied by
// [voice.Recorder].
type Capturer interface {
	CaptureUtterance(ctx context.Context) (string, error)
}

// Dialog drives one registration conversation. A Dialog is single-use per
// Run call but may be reused sequentially; it must never run concurrently
// with itself.
type Dialog struct {
	cap         Capturer
	disp        display.Display
	wakePhrase  string
	maxAttempts int
	log         *slog.Logger
}

// New creates a Dialog. maxAttempts bounds both the capture and the
// confirmation retry loops per field; 0 means unbounded.
func New(capturer Capturer, disp display.Display, wakePhrase string, maxAttempts int, log *slog.Logger) *Dialog {
	if log == nil {
		log = slog.Default()
	}
	return &Dialog{
		cap:         capturer,
		disp:        disp,
		wakePhrase:  wakePhrase,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run executes the dialog: name, notes, category, each captured and
// confirmed in turn. On success the completed Record is returned. On abort
// (name unobtainable, retry bound exhausted, or context cancelled) it
// returns [ErrAborted] or the context error, shows an error notification,
// and guarantees the caller that nothing was accepted.
func (d *Dialog) Run(ctx context.Context) (Record, error) {
	name, err := d.obtainField(ctx, FieldName)
	if err != nil {
		d.disp.ShowNotification("Registration cancelled")
		return Record{}, err
	}

	notes, err := d.obtainField(ctx, FieldNotes)
	if err != nil {
		d.disp.ShowNotification("Registration cancelled")
		return Record{}, err
	}

	category, err := d.obtainField(ctx, FieldCategory)
	if err != nil {
		d.disp.ShowNotification("Registration cancelled")
		return Record{}, err
	}

	return Record{Name: name, Notes: notes, Category: category}, nil
}

// obtainField runs the capture loop for one field until a value is
// confirmed. A "no" answer during confirmation restarts the capture; an
// unrecognised answer re-asks the confirmation without recapturing.
func (d *Dialog) obtainField(ctx context.Context, field string) (string, error) {
	d.disp.NextRegistrationStep(field)

	for attempt := 0; d.maxAttempts == 0 || attempt < d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		value, err := d.captureValue(ctx, field)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			// Capture failed. The name is mandatory, so retry; for the
			// optional fields an unusable capture becomes the empty value.
			if field == FieldName {
				d.log.Warn("name capture failed, retrying", "error", err)
				continue
			}
			d.log.Warn("capture failed, treating as empty value", "field", field, "error", err)
			value = ""
		}

		if field == FieldCategory && value == "" {
			value = DefaultCategory
		}

		confirmed, err := d.confirm(ctx, field, value)
		if err != nil {
			return "", err
		}
		if confirmed {
			return value, nil
		}
		// User said no: recapture the field.
		d.log.Info("value rejected, recapturing", "field", field)
	}

	d.log.Warn("retry bound exhausted", "field", field, "max_attempts", d.maxAttempts)
	return "", ErrAborted
}

// captureValue records one utterance for the field and normalises it. An
// empty transcript is an error for the name and a legitimate empty value
// for notes.
func (d *Dialog) captureValue(ctx context.Context, field string) (string, error) {
	text, err := d.cap.CaptureUtterance(ctx)
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			if field == FieldName {
				return "", fmt.Errorf("dialog: no speech for %s: %w", field, err)
			}
			d.disp.UpdateVoiceFeedback("")
			return "", nil
		}
		return "", fmt.Errorf("dialog: capture %s: %w", field, err)
	}

	value := voice.StripPhrase(text, d.wakePhrase)
	d.disp.UpdateVoiceFeedback(value)
	if field == FieldName && value == "" {
		return "", errors.New("dialog: captured name is empty")
	}
	return value, nil
}

// confirm asks the user to accept value. It loops on unrecognised answers:
// "yes" accepts, "no" rejects (triggering a recapture), anything else
// re-asks. The loop shares the dialog's retry bound.
func (d *Dialog) confirm(ctx context.Context, field, value string) (bool, error) {
	for attempt := 0; d.maxAttempts == 0 || attempt < d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		d.disp.ShowInputConfirmation(field, value)

		answer, err := d.cap.CaptureUtterance(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			d.log.Warn("confirmation capture failed, asking again", "field", field, "error", err)
			continue
		}

		lower := strings.ToLower(answer)
		switch {
		case strings.Contains(lower, "yes"):
			return true, nil
		case strings.Contains(lower, "no"):
			return false, nil
		default:
			d.log.Info("confirmation not understood, asking again", "field", field, "answer", answer)
		}
	}

	d.log.Warn("confirmation retry bound exhausted", "field", field, "max_attempts", d.maxAttempts)
	return false, ErrAborted
}
