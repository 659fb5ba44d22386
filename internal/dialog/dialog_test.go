package dialog

import (
	"context"
	"errors"
	"testing"

	dispmock "github.com/argus-ar/argus/internal/display/mock"
	"github.com/argus-ar/argus/pkg/provider/stt"
)

// scriptedCapturer replays utterances in order. An exhausted script returns
// stt.ErrNoSpeech, like a user who stopped answering.
type scriptedCapturer struct {
	steps []capStep
	next  int
	calls int
}

type capStep struct {
	text string
	err  error
}

func say(text string) capStep { return capStep{text: text} }
func silence() capStep        { return capStep{err: stt.ErrNoSpeech} }
func fail(err error) capStep  { return capStep{err: err} }

func (c *scriptedCapturer) CaptureUtterance(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.calls++
	if c.next >= len(c.steps) {
		return "", stt.ErrNoSpeech
	}
	s := c.steps[c.next]
	c.next++
	return s.text, s.err
}

const wakePhrase = "register new face"

func newDialog(c Capturer, disp *dispmock.Display, maxAttempts int) *Dialog {
	return New(c, disp, wakePhrase, maxAttempts, nil)
}

func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("Ada Lovelace"), say("yes"),
		say("works in the analytical engine lab"), say("yes"),
		say("Colleague"), say("yes"),
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Record{Name: "Ada Lovelace", Notes: "works in the analytical engine lab", Category: "Colleague"}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
	if len(disp.Steps) != 3 || disp.Steps[0] != FieldName || disp.Steps[1] != FieldNotes || disp.Steps[2] != FieldCategory {
		t.Errorf("field order = %v", disp.Steps)
	}
}

func TestRun_EmptyOptionalFieldsGetDefaults(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("Ada"), say("yes"),
		silence(), say("yes"), // notes: nothing said, empty is a value
		silence(), say("yes"), // category: nothing said, defaults
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Notes != "" {
		t.Errorf("notes = %q, want empty", rec.Notes)
	}
	if rec.Category != DefaultCategory {
		t.Errorf("category = %q, want %q", rec.Category, DefaultCategory)
	}
	// The default still passes through confirmation.
	found := false
	for _, c := range disp.Confirmations {
		if c.Field == FieldCategory && c.Value == DefaultCategory {
			found = true
		}
	}
	if !found {
		t.Errorf("category default was not confirmed: %v", disp.Confirmations)
	}
}

func TestRun_NoAnswerRestartsCapture(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("Adam"), say("no"), // rejected
		say("Ada"), say("yes"), // corrected
		silence(), say("yes"),
		silence(), say("yes"),
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Name != "Ada" {
		t.Errorf("name = %q, want the recaptured value", rec.Name)
	}
}

func TestRun_UnrecognisedAnswerReasksWithoutRecapturing(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("Ada"), say("ehm what"), say("yes"),
		silence(), say("yes"),
		silence(), say("yes"),
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Name != "Ada" {
		t.Errorf("name = %q", rec.Name)
	}

	// The name must have been captured once but confirmed twice.
	nameConfirms := 0
	for _, c := range disp.Confirmations {
		if c.Field == FieldName {
			nameConfirms++
			if c.Value != "Ada" {
				t.Errorf("re-asked confirmation changed the value to %q", c.Value)
			}
		}
	}
	if nameConfirms != 2 {
		t.Errorf("name confirmations = %d, want 2", nameConfirms)
	}
}

func TestRun_NameNeverCaptured_Aborts(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{} // silence forever
	disp := dispmock.New()

	_, err := newDialog(answers, disp, 2).Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("want ErrAborted, got %v", err)
	}
	if disp.NotificationCount() == 0 {
		t.Error("abort should surface an error notification")
	}
}

func TestRun_ConfirmationExhausted_Aborts(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("Ada"), say("banana"), say("potato"),
	}}
	disp := dispmock.New()

	_, err := newDialog(answers, disp, 2).Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("want ErrAborted, got %v", err)
	}
}

func TestRun_StripsWakePhraseFromValues(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		say("register new face Ada"), say("yes"),
		silence(), say("yes"),
		silence(), say("yes"),
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Name != "Ada" {
		t.Errorf("wake phrase should be stripped, name = %q", rec.Name)
	}
}

func TestRun_CaptureFailureRetriesName(t *testing.T) {
	t.Parallel()

	answers := &scriptedCapturer{steps: []capStep{
		fail(errors.New("backend down")),
		say("Ada"), say("yes"),
		silence(), say("yes"),
		silence(), say("yes"),
	}}
	disp := dispmock.New()

	rec, err := newDialog(answers, disp, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Name != "Ada" {
		t.Errorf("name = %q", rec.Name)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	answers := &scriptedCapturer{steps: []capStep{say("Ada")}}
	_, err := newDialog(answers, dispmock.New(), 0).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
