// Package display defines the UI contract for Argus. The concurrency core
// never renders anything itself; it drives whatever Display implementation
// was wired in, which keeps the overlay renderer, a headless console, and
// test doubles interchangeable.
//
// Implementations must expose narrow, idempotent operations only: the core
// may repeat a call (e.g. UpdateStatus with an unchanged value) and must not
// be able to observe rendering state.
package display

import "github.com/argus-ar/argus/pkg/provider/facerec"

// Display receives user-facing events from the recognition and registration
// flows. Implementations must be safe for concurrent use; the main loop and
// the coordinator goroutine both call into it.
type Display interface {
	// ShowNotification surfaces a transient message to the user.
	ShowNotification(text string)

	// ShowInputConfirmation presents a captured field value and asks the
	// user to confirm it verbally.
	ShowInputConfirmation(field, value string)

	// UpdateStatus reports whether the wake-word listener is currently
	// active. Called only on state changes.
	UpdateStatus(listening bool)

	// StartRegistration announces that the registration dialog has begun
	// for the face in the given box.
	StartRegistration(box facerec.Box)

	// NextRegistrationStep prompts the user for the next dialog field.
	NextRegistrationStep(field string)

	// UpdateVoiceFeedback shows the most recent transcription result while
	// a dialog is active.
	UpdateVoiceFeedback(transcript string)

	// UpdateRecognition publishes the detections of the latest camera
	// frame. Called every frame.
	UpdateRecognition(detections []facerec.Detection)
}

// Console is a log-backed Display for headless operation.
type Console struct {
	log Logger
}

// Logger is the subset of slog.Logger the console needs.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// NewConsole creates a console display writing through log.
func NewConsole(log Logger) *Console {
	return &Console{log: log}
}

func (c *Console) ShowNotification(text string) {
	c.log.Info("notification", "text", text)
}

func (c *Console) ShowInputConfirmation(field, value string) {
	c.log.Info("confirm input", "field", field, "value", value)
}

func (c *Console) UpdateStatus(listening bool) {
	c.log.Info("listening status changed", "listening", listening)
}

func (c *Console) StartRegistration(box facerec.Box) {
	c.log.Info("registration started", "box", box)
}

func (c *Console) NextRegistrationStep(field string) {
	c.log.Info("registration step", "field", field)
}

func (c *Console) UpdateVoiceFeedback(transcript string) {
	c.log.Info("voice feedback", "transcript", transcript)
}

func (c *Console) UpdateRecognition(detections []facerec.Detection) {
	c.log.Debug("recognition update", "faces", len(detections))
}

// Compile-time interface check.
var _ Display = (*Console)(nil)
