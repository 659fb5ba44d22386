package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/argus-ar/argus/internal/config"
	"github.com/argus-ar/argus/internal/coordinate"
	dispmock "github.com/argus-ar/argus/internal/display/mock"
	"github.com/argus-ar/argus/internal/facestore"
	"github.com/argus-ar/argus/internal/notestore"
	"github.com/argus-ar/argus/internal/observe"
	"github.com/argus-ar/argus/internal/scratch"
	"github.com/argus-ar/argus/internal/voice"
	"github.com/argus-ar/argus/pkg/audio"
	audiomock "github.com/argus-ar/argus/pkg/audio/mock"
	"github.com/argus-ar/argus/pkg/provider/facerec"
	facemock "github.com/argus-ar/argus/pkg/provider/facerec/mock"
	sttmock "github.com/argus-ar/argus/pkg/provider/stt/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testConfig() *config.Config {
	return &config.Config{
		WakeWord: config.WakeWordConfig{Phrase: "register face"},
		Registration: config.RegistrationConfig{
			MaxAttempts:  3,
			ClipDuration: 30 * time.Millisecond,
			ClipTimeout:  100 * time.Millisecond,
		},
	}
}

// testRecorder builds a voice recorder over a scripted microphone and
// transcriber. Each 30 ms clip consumes exactly one frame.
func testRecorder(t *testing.T, transcriber *sttmock.Transcriber, frames int) *voice.Recorder {
	t.Helper()

	cfg := audio.DefaultCaptureConfig()
	pcm := make([]byte, cfg.FrameBytes())
	steps := make([]audiomock.Step, frames)
	for i := range steps {
		steps[i] = audiomock.FrameStep(pcm)
	}
	sess := audiomock.NewSession(cfg, steps...)

	store, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatalf("scratch.New: %v", err)
	}
	return voice.NewRecorder(sess, transcriber, store, 30*time.Millisecond, 100*time.Millisecond, slog.Default())
}

func unknownFace() facerec.Detection {
	return facerec.Detection{
		Box:      facerec.Box{Top: 10, Right: 20, Bottom: 30, Left: 5},
		Name:     facerec.Unknown,
		Encoding: []float32{0.1, 0.2, 0.3},
	}
}

func newTestApp(t *testing.T, providers *Providers) (*App, *dispmock.Display) {
	t.Helper()
	disp := dispmock.New()
	a := &App{
		cfg:       testConfig(),
		providers: providers,
		state:     coordinate.NewState(),
		disp:      disp,
		metrics:   testMetrics(t),
		notes:     notestore.NewMemoryStore(),
		faces:     facestore.NewMemoryStore(),
	}
	return a, disp
}

func TestHandleRegistration_NothingPending(t *testing.T) {
	t.Parallel()

	a, disp := newTestApp(t, &Providers{})
	if err := a.handleRegistration(context.Background()); err != nil {
		t.Fatalf("handleRegistration: %v", err)
	}
	if disp.NotificationCount() != 0 {
		t.Error("no notifications expected without a pending request")
	}
}

func TestHandleRegistration_AbandonedRequestResets(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &Providers{})
	a.state.SetUnknownFaces([]facerec.Detection{unknownFace()})
	if !a.state.BeginRegistration() {
		t.Fatal("BeginRegistration should succeed")
	}
	// The face leaves before the main loop picks the request up.
	a.state.SetUnknownFaces(nil)

	if err := a.handleRegistration(context.Background()); err != nil {
		t.Fatalf("handleRegistration: %v", err)
	}
	if a.state.RegistrationInProgress() {
		t.Error("abandoned request must reset the state machine")
	}
	if !a.state.ListeningEnabled() {
		t.Error("listening must be re-enabled after an abandoned request")
	}
}

func TestHandleRegistration_CommitsDialogResult(t *testing.T) {
	t.Parallel()

	a, disp := newTestApp(t, &Providers{})
	transcriber := sttmock.New(
		sttmock.Text("Ada"), sttmock.Text("yes"),
		sttmock.Text("works upstairs"), sttmock.Text("yes"),
		sttmock.Text("Colleague"), sttmock.Text("yes"),
	)
	a.recorder = testRecorder(t, transcriber, 10)

	a.state.SetUnknownFaces([]facerec.Detection{unknownFace()})
	if !a.state.BeginRegistration() {
		t.Fatal("BeginRegistration should succeed")
	}

	if err := a.handleRegistration(context.Background()); err != nil {
		t.Fatalf("handleRegistration: %v", err)
	}

	rec, found, err := a.notes.GetNotes(context.Background(), "Ada")
	if err != nil || !found {
		t.Fatalf("GetNotes: found=%v err=%v", found, err)
	}
	if rec.Notes != "works upstairs" || rec.Category != "Colleague" {
		t.Errorf("record = %+v", rec)
	}

	m, found, err := a.faces.Identify(context.Background(), []float32{0.1, 0.2, 0.3})
	if err != nil || !found {
		t.Fatalf("Identify: found=%v err=%v", found, err)
	}
	if m.ID != rec.ID {
		t.Errorf("embedding stored under record %d, want %d", m.ID, rec.ID)
	}

	if a.state.RegistrationInProgress() {
		t.Error("state must reset after a committed registration")
	}
	if len(disp.RegistrationBoxes) != 1 {
		t.Errorf("StartRegistration calls = %d, want 1", len(disp.RegistrationBoxes))
	}
}

func TestHandleRegistration_AbortLeavesStoresUntouched(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &Providers{})
	// Silence for every prompt: the name capture exhausts its attempts.
	transcriber := sttmock.New()
	a.recorder = testRecorder(t, transcriber, 20)

	a.state.SetUnknownFaces([]facerec.Detection{unknownFace()})
	if !a.state.BeginRegistration() {
		t.Fatal("BeginRegistration should succeed")
	}

	if err := a.handleRegistration(context.Background()); err != nil {
		t.Fatalf("handleRegistration: %v", err)
	}

	if _, found, _ := a.notes.GetID(context.Background(), "Ada"); found {
		t.Error("aborted dialog must not write to the note store")
	}
	if _, found, _ := a.faces.Identify(context.Background(), []float32{0.1, 0.2, 0.3}); found {
		t.Error("aborted dialog must not write to the face store")
	}
	if a.state.RegistrationInProgress() {
		t.Error("state must reset after an aborted registration")
	}
}

func TestRunRecognition_PublishesAndEnriches(t *testing.T) {
	t.Parallel()

	known := facerec.Detection{Name: "Ada", Encoding: []float32{1}}
	providers := &Providers{
		Camera:  facemock.NewCamera([]byte("jpeg")),
		FaceRec: facemock.NewRecognizer(facemock.Faces(known, unknownFace())),
	}
	a, disp := newTestApp(t, providers)
	if _, err := a.notes.StoreNotes(context.Background(), "Ada", "works upstairs", "Colleague"); err != nil {
		t.Fatalf("StoreNotes: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.runRecognition(ctx); err != nil {
		t.Fatalf("runRecognition: %v", err)
	}

	updates := disp.RecognitionUpdates
	if len(updates) == 0 {
		t.Fatal("no recognition updates published")
	}
	first := updates[0]
	if len(first) != 2 {
		t.Fatalf("detections = %d, want 2", len(first))
	}
	if first[0].Notes != "works upstairs" || first[0].Category != "Colleague" {
		t.Errorf("known detection not enriched: %+v", first[0])
	}
	if first[1].Notes != "" {
		t.Errorf("unknown detection should stay bare: %+v", first[1])
	}
}

func TestRunRecognition_LocalIdentifyResolvesRegistered(t *testing.T) {
	t.Parallel()

	// The recognition server still reports the face as unknown, but its
	// embedding was committed locally.
	providers := &Providers{
		Camera:  facemock.NewCamera([]byte("jpeg")),
		FaceRec: facemock.NewRecognizer(facemock.Faces(unknownFace())),
	}
	a, disp := newTestApp(t, providers)

	id, err := a.notes.StoreNotes(context.Background(), "Ada", "works upstairs", "Colleague")
	if err != nil {
		t.Fatalf("StoreNotes: %v", err)
	}
	if err := a.faces.AddFace(context.Background(), id, unknownFace().Encoding); err != nil {
		t.Fatalf("AddFace: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.runRecognition(ctx); err != nil {
		t.Fatalf("runRecognition: %v", err)
	}

	updates := disp.RecognitionUpdates
	if len(updates) == 0 {
		t.Fatal("no recognition updates published")
	}
	first := updates[0]
	if len(first) != 1 {
		t.Fatalf("detections = %d, want 1", len(first))
	}
	if first[0].Name != "Ada" {
		t.Errorf("name = %q, want locally identified Ada", first[0].Name)
	}
	if first[0].Notes != "works upstairs" || first[0].Category != "Colleague" {
		t.Errorf("resolved detection not enriched: %+v", first[0])
	}
	if a.state.ShouldListen() {
		t.Error("a locally identified face must not keep listening enabled")
	}
}

func TestObservedTranscriber_CountsByStatus(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	tr := sttmock.New(
		sttmock.Text("hello"),
		sttmock.NoSpeech(),
		sttmock.Err(errors.New("backend down")),
	)
	obs := &observedTranscriber{inner: tr, metrics: m}

	ctx := context.Background()
	pcm := make([]byte, 960)
	for i := 0; i < 3; i++ {
		_, _ = obs.Transcribe(ctx, pcm)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "argus.transcription.requests" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("metric is not a sum")
			}
			for _, dp := range sum.DataPoints {
				for _, kv := range dp.Attributes.ToSlice() {
					if string(kv.Key) == "status" {
						got[kv.Value.AsString()] += dp.Value
					}
				}
			}
		}
	}
	want := map[string]int64{
		observe.StatusOK:       1,
		observe.StatusNoSpeech: 1,
		observe.StatusError:    1,
	}
	for status, n := range want {
		if got[status] != n {
			t.Errorf("status %q count = %d, want %d", status, got[status], n)
		}
	}
}

func TestRunRecognition_RecognizeErrorSkipsFrame(t *testing.T) {
	t.Parallel()

	providers := &Providers{
		Camera: facemock.NewCamera([]byte("jpeg")),
		FaceRec: facemock.NewRecognizer(
			facemock.Err(context.DeadlineExceeded),
			facemock.Faces(unknownFace()),
		),
	}
	a, disp := newTestApp(t, providers)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.runRecognition(ctx); err != nil {
		t.Fatalf("runRecognition: %v", err)
	}
	if len(disp.RecognitionUpdates) == 0 {
		t.Error("loop should recover after a failed recognition")
	}
}

func TestRunRecognition_TracksUnknownFaces(t *testing.T) {
	t.Parallel()

	providers := &Providers{
		Camera:  facemock.NewCamera([]byte("jpeg")),
		FaceRec: facemock.NewRecognizer(facemock.Faces(unknownFace())),
	}
	a, _ := newTestApp(t, providers)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.runRecognition(ctx); err != nil {
		t.Fatalf("runRecognition: %v", err)
	}
	if !a.state.ShouldListen() {
		t.Error("an unknown face in frame should enable listening")
	}
}

func TestNew_InMemoryStorageWithoutDSN(t *testing.T) {
	t.Parallel()

	providers := &Providers{
		Camera:  facemock.NewCamera([]byte("jpeg")),
		FaceRec: facemock.NewRecognizer(),
	}
	a, err := New(context.Background(), testConfig(), providers, WithMetrics(testMetrics(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.notes == nil || a.faces == nil {
		t.Fatal("stores must be populated")
	}
	if a.voiceEnabled {
		t.Error("voice should be disabled without audio providers")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	providers := &Providers{Camera: facemock.NewCamera()}
	a, _ := newTestApp(t, providers)

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	cam := providers.Camera.(*facemock.Camera)
	if cam.CloseCallCount != 1 {
		t.Errorf("camera closed %d times, want once", cam.CloseCallCount)
	}
}
