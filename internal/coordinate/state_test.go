package coordinate

import (
	"sync"
	"testing"

	"github.com/argus-ar/argus/pkg/provider/facerec"
)

func unknownFace(enc ...float32) facerec.Detection {
	return facerec.Detection{
		Box:      facerec.Box{Top: 1, Right: 2, Bottom: 3, Left: 4},
		Name:     facerec.Unknown,
		Encoding: enc,
	}
}

func TestNewState_Idle(t *testing.T) {
	t.Parallel()

	s := NewState()
	if !s.ListeningEnabled() {
		t.Error("listening should start enabled")
	}
	if s.RegistrationInProgress() {
		t.Error("no registration should be in progress")
	}
	if s.ShouldListen() {
		t.Error("no unknown faces yet, should not listen")
	}
}

func TestShouldListen_RequiresUnknownFace(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})
	if !s.ShouldListen() {
		t.Error("unknown face present, should listen")
	}
	s.SetUnknownFaces(nil)
	if s.ShouldListen() {
		t.Error("unknown face gone, should not listen")
	}
}

func TestBeginRegistration_TransitionsToActive(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})

	if !s.BeginRegistration() {
		t.Fatal("transition should succeed")
	}
	if s.ListeningEnabled() {
		t.Error("listening must be disabled while registering")
	}
	if !s.RegistrationInProgress() {
		t.Error("registration should be in progress")
	}
	if s.ShouldListen() {
		t.Error("must not listen while registering")
	}
}

func TestBeginRegistration_RejectedWithoutUnknownFace(t *testing.T) {
	t.Parallel()

	s := NewState()
	if s.BeginRegistration() {
		t.Fatal("no unknown face, transition must be rejected")
	}
	if s.RegistrationInProgress() {
		t.Error("rejected transition must not change state")
	}
}

func TestBeginRegistration_RejectedWhileActive(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})
	if !s.BeginRegistration() {
		t.Fatal("first transition should succeed")
	}
	if s.BeginRegistration() {
		t.Fatal("second transition must be rejected while active")
	}
}

func TestConsumeRequest_SnapshotsFirstUnknownFace(t *testing.T) {
	t.Parallel()

	s := NewState()
	first := unknownFace(0.1, 0.2)
	s.SetUnknownFaces([]facerec.Detection{first, unknownFace(0.9)})
	s.BeginRegistration()

	req, ok, requested := s.ConsumeRequest()
	if !requested || !ok {
		t.Fatalf("requested=%v ok=%v, want both true", requested, ok)
	}
	if req.Box != first.Box {
		t.Errorf("box = %+v", req.Box)
	}
	if len(req.Encoding) != 2 || req.Encoding[0] != 0.1 {
		t.Errorf("encoding = %v", req.Encoding)
	}

	// The request is consumed at most once.
	if _, _, again := s.ConsumeRequest(); again {
		t.Error("second consume should find no pending request")
	}
}

func TestConsumeRequest_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewState()
	face := unknownFace(0.5)
	s.SetUnknownFaces([]facerec.Detection{face})
	s.BeginRegistration()

	req, _, _ := s.ConsumeRequest()
	face.Encoding[0] = 99
	if req.Encoding[0] != 0.5 {
		t.Error("request must hold a snapshot, not a shared slice")
	}
}

func TestConsumeRequest_AbandonedWhenFaceLeft(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})
	s.BeginRegistration()

	// Face leaves the frame between detection and handoff.
	s.SetUnknownFaces(nil)

	_, ok, requested := s.ConsumeRequest()
	if !requested {
		t.Fatal("a request was pending")
	}
	if ok {
		t.Fatal("no face remains, handoff must be abandoned")
	}
}

func TestConsumeRequest_NothingPending(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})

	if _, _, requested := s.ConsumeRequest(); requested {
		t.Error("no wake word was detected, nothing should be pending")
	}
}

func TestFinishRegistration_ReturnsToIdle(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})
	s.BeginRegistration()
	s.FinishRegistration()

	if s.RegistrationInProgress() {
		t.Error("registration should be finished")
	}
	if !s.ListeningEnabled() {
		t.Error("listening should be re-enabled")
	}
	if !s.ShouldListen() {
		t.Error("unknown face still present, should listen again")
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetUnknownFaces([]facerec.Detection{unknownFace(0.1)})
				if s.BeginRegistration() {
					s.ConsumeRequest()
					s.FinishRegistration()
				}
				s.ShouldListen()
			}
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, the invariants must hold at rest.
	if s.RegistrationInProgress() && s.ListeningEnabled() {
		t.Error("invariant violated: listening while registering")
	}
}
