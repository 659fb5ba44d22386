// Package mock provides test doubles for the facerec package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/argus-ar/argus/pkg/provider/facerec"
)

// Camera is a mock implementation of facerec.Camera that replays a scripted
// sequence of frames. Once the script is exhausted the last frame is
// repeated, mimicking a camera pointed at a static scene.
type Camera struct {
	mu sync.Mutex

	frames [][]byte
	next   int

	// CaptureErr, if non-nil, is returned by every Capture call.
	CaptureErr error

	// CaptureCalls counts Capture invocations.
	CaptureCalls int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewCamera creates a Camera that replays frames in order.
func NewCamera(frames ...[]byte) *Camera {
	return &Camera{frames: frames}
}

// Capture returns the next scripted frame.
func (c *Camera) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.CaptureCalls++

	if c.CaptureErr != nil {
		return nil, c.CaptureErr
	}
	if len(c.frames) == 0 {
		return nil, nil
	}
	if c.next >= len(c.frames) {
		return c.frames[len(c.frames)-1], nil
	}
	f := c.frames[c.next]
	c.next++
	return f, nil
}

// Close records the call.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCallCount++
	return nil
}

// Compile-time interface check.
var _ facerec.Camera = (*Camera)(nil)

// RecognizeResult is a single scripted Recognize outcome.
type RecognizeResult struct {
	Faces []facerec.Detection
	Err   error
}

// Recognizer is a mock implementation of facerec.Recognizer that replays a
// scripted sequence of results. Once the script is exhausted the last result
// is repeated.
type Recognizer struct {
	mu sync.Mutex

	results []RecognizeResult
	next    int

	// RecognizeCalls counts Recognize invocations.
	RecognizeCalls int
}

// NewRecognizer creates a Recognizer that replays results in order.
func NewRecognizer(results ...RecognizeResult) *Recognizer {
	return &Recognizer{results: results}
}

// Faces scripts a successful recognition returning the given detections.
func Faces(faces ...facerec.Detection) RecognizeResult {
	return RecognizeResult{Faces: faces}
}

// Err scripts a failed recognition.
func Err(err error) RecognizeResult { return RecognizeResult{Err: err} }

// Recognize returns the next scripted result.
func (r *Recognizer) Recognize(ctx context.Context, frame []byte) ([]facerec.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecognizeCalls++

	if len(r.results) == 0 {
		return nil, nil
	}
	idx := r.next
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	} else {
		r.next++
	}
	res := r.results[idx]
	return res.Faces, res.Err
}

// Compile-time interface check.
var _ facerec.Recognizer = (*Recognizer)(nil)
