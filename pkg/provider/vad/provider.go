// Package vad defines the Engine interface for Voice Activity Detection backends.
//
// A VAD engine wraps a frame-level speech classifier (e.g., WebRTC VAD) and
// surfaces it as a stateful, per-stream session. Each session maintains its
// own internal state so that multiple concurrent audio streams can be
// processed independently.
//
// VAD is synchronous by design: IsSpeech returns immediately with a
// classification, making it suitable for low-latency pipeline stages that
// gate transcription input.
//
// Implementations must be safe for concurrent use across different sessions.
// A single SessionHandle should not be shared across goroutines unless the
// implementation explicitly documents thread safety for that type.
package vad

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to IsSpeech. Common values: 8000, 16000, 48000.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds. Most
	// VAD models operate on fixed frame sizes (10, 20, or 30 ms). IsSpeech
	// returns an error if the supplied frame does not match this size.
	FrameSizeMs int

	// Aggressiveness controls how strictly non-speech is filtered, from 0
	// (least aggressive, most frames pass as speech) to 3 (most aggressive).
	// Higher values reduce false positives at the cost of clipping quiet
	// speech. Typical for wake-word gating: 3.
	Aggressiveness int
}

// SessionHandle represents an active VAD session for a single audio stream.
// It is an interface so that test code can supply mock implementations
// without a live engine.
//
// A SessionHandle should not be shared between goroutines unless the
// implementation explicitly guarantees concurrent safety.
type SessionHandle interface {
	// IsSpeech classifies a single audio frame. The frame must be raw
	// little-endian 16-bit PCM at the SampleRate and FrameSizeMs configured
	// when the session was created. Returns an error if the frame size is
	// wrong or the engine encounters an internal failure.
	//
	// This method is designed to be called synchronously in the audio
	// pipeline loop; it must not block.
	IsSpeech(frame []byte) (bool, error)

	// Reset clears accumulated detection state without closing the session.
	// Use this when the audio stream is interrupted or restarted.
	Reset()

	// Close releases all resources associated with the session. After Close,
	// IsSpeech must return an error. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// Engine is the factory for VAD sessions. It is the top-level interface
// implemented by each VAD backend.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewSession simultaneously to create independent sessions.
type Engine interface {
	// NewSession creates a new VAD session with the given configuration. The
	// session is immediately ready to accept audio frames.
	//
	// Returns an error if the configuration is invalid (unsupported sample
	// rate, frame size, or aggressiveness out of range) or if the engine
	// cannot allocate resources for the session.
	NewSession(cfg Config) (SessionHandle, error)
}
