// Package audio defines the interfaces and types for microphone capture
// within Argus.
//
// The two primary abstractions are:
//
//   - [Platform] — enumerates capture devices and opens a [CaptureSession].
//   - [CaptureSession] — an open microphone stream delivering fixed-size
//     PCM16 frames one at a time.
//
// Implementations are provided by backend-specific adapter packages (e.g.,
// audio/malgo for the miniaudio backend, audio/mock for tests). The
// interfaces are intentionally narrow so the wake-word detector and the
// registration dialog stay decoupled from the capture backend.
//
// This package lives under pkg/ because external code (alternative capture
// backends) is expected to implement [Platform] and [CaptureSession].
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrDeviceUnavailable is returned by [Platform.Open] when no usable input
// device exists — neither the configured device nor a system default.
var ErrDeviceUnavailable = errors.New("audio: no input device available")

// ErrReadTimeout is returned by [CaptureSession.ReadFrame] when no frame
// arrived within the supplied timeout. It is a non-fatal condition: callers
// should log and continue reading.
var ErrReadTimeout = errors.New("audio: frame read timed out")

// ErrOverflow is returned by [CaptureSession.ReadFrame] when the capture
// backend dropped frames because the caller fell behind. Like
// [ErrReadTimeout] it is non-fatal; the next read resumes with live audio.
var ErrOverflow = errors.New("audio: capture buffer overflow, frames dropped")

// ErrSessionClosed is returned by [CaptureSession.ReadFrame] after Close.
var ErrSessionClosed = errors.New("audio: capture session is closed")

// CaptureConfig describes the fixed audio format of a capture session.
// The zero value is not usable; use [DefaultCaptureConfig] as a starting
// point.
type CaptureConfig struct {
	// SampleRate is the capture sample rate in Hz. STT backends and the
	// WebRTC VAD both expect 16000.
	SampleRate int

	// Channels is the channel count. Mono (1) is required by the VAD and
	// by every supported transcription backend.
	Channels int

	// FrameMs is the duration of a single frame in milliseconds. The WebRTC
	// VAD accepts 10, 20, or 30 ms frames.
	FrameMs int
}

// DefaultCaptureConfig returns the standard Argus capture format:
// 30 ms mono PCM16 frames at 16 kHz.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1, FrameMs: 30}
}

// FrameBytes returns the size in bytes of one frame of 16-bit PCM at this
// configuration.
func (c CaptureConfig) FrameBytes() int {
	return c.SampleRate * c.Channels * c.FrameMs / 1000 * 2
}

// Frame is a single fixed-duration chunk of PCM16 mono audio read from a
// capture session. The Data slice is owned by the receiver and is never
// mutated after ReadFrame returns.
type Frame struct {
	// Data is raw 16-bit signed little-endian PCM.
	Data []byte

	// Timestamp marks when the frame was captured, relative to session start.
	Timestamp time.Duration
}

// CaptureSession represents an open microphone stream.
//
// A CaptureSession is obtained from [Platform.Open]. A session must not be
// shared between goroutines; the wake-word detector and the registration
// dialog each open their reads strictly sequentially. Close is idempotent
// and must be called on every exit path, including error paths.
type CaptureSession interface {
	// ReadFrame returns the next fixed-size frame. It blocks until a frame
	// is available, the timeout elapses ([ErrReadTimeout]), frames were
	// dropped ([ErrOverflow]), ctx is cancelled, or the session is closed.
	ReadFrame(ctx context.Context, timeout time.Duration) (Frame, error)

	// Config returns the capture format the session was opened with.
	Config() CaptureConfig

	// Close stops the stream and releases the device. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// Platform enumerates capture devices and opens sessions.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Devices lists the names of the available capture devices.
	Devices() ([]string, error)

	// Open selects a capture device whose name contains deviceName
	// (case-insensitive substring). An empty deviceName, or no match,
	// selects the system default input device. Open returns
	// [ErrDeviceUnavailable] when no input device exists at all.
	Open(ctx context.Context, deviceName string, cfg CaptureConfig) (CaptureSession, error)

	// Close releases backend resources. Sessions opened from this platform
	// must be closed first.
	Close() error
}
