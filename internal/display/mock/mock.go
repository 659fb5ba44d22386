// Package mock provides a call-recording test double for display.Display.
package mock

import (
	"sync"

	"github.com/argus-ar/argus/internal/display"
	"github.com/argus-ar/argus/pkg/provider/facerec"
)

// ConfirmationCall records a single ShowInputConfirmation invocation.
type ConfirmationCall struct {
	Field string
	Value string
}

// Display records every call it receives. All fields are guarded by the
// embedded mutex; use the accessor methods from concurrent tests.
type Display struct {
	mu sync.Mutex

	Notifications      []string
	Confirmations      []ConfirmationCall
	StatusUpdates      []bool
	RegistrationBoxes  []facerec.Box
	Steps              []string
	VoiceFeedback      []string
	RecognitionUpdates [][]facerec.Detection
}

// New creates an empty recording Display.
func New() *Display { return &Display{} }

func (d *Display) ShowNotification(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Notifications = append(d.Notifications, text)
}

func (d *Display) ShowInputConfirmation(field, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Confirmations = append(d.Confirmations, ConfirmationCall{Field: field, Value: value})
}

func (d *Display) UpdateStatus(listening bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.StatusUpdates = append(d.StatusUpdates, listening)
}

func (d *Display) StartRegistration(box facerec.Box) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.RegistrationBoxes = append(d.RegistrationBoxes, box)
}

func (d *Display) NextRegistrationStep(field string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Steps = append(d.Steps, field)
}

func (d *Display) UpdateVoiceFeedback(transcript string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.VoiceFeedback = append(d.VoiceFeedback, transcript)
}

func (d *Display) UpdateRecognition(detections []facerec.Detection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]facerec.Detection, len(detections))
	copy(cp, detections)
	d.RecognitionUpdates = append(d.RecognitionUpdates, cp)
}

// LastStatus returns the most recent UpdateStatus value, or false if none.
func (d *Display) LastStatus() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.StatusUpdates) == 0 {
		return false
	}
	return d.StatusUpdates[len(d.StatusUpdates)-1]
}

// StatusHistory returns a copy of all UpdateStatus values.
func (d *Display) StatusHistory() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]bool, len(d.StatusUpdates))
	copy(out, d.StatusUpdates)
	return out
}

// NotificationCount returns how many notifications were shown.
func (d *Display) NotificationCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Notifications)
}

// Compile-time interface check.
var _ display.Display = (*Display)(nil)
