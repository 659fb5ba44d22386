// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// Argus transcribes complete speech segments, not live streams: the
// voice-activity segmenter accumulates one utterance, and the whole
// utterance is submitted as a single batch request. The central abstraction
// is therefore a one-shot Transcribe call rather than a streaming session.
//
// A backend distinguishes three outcomes:
//
//   - text was recognised — returned as a non-empty string;
//   - the audio contained no recognisable speech — [ErrNoSpeech], which is
//     an expected outcome and not a failure;
//   - the request itself failed — any other error.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by Transcribe when the backend processed the audio
// successfully but recognised no words. Callers treat this as "not
// understood" and continue, never as an error condition.
var ErrNoSpeech = errors.New("stt: no speech recognised")

// Transcriber is the abstraction over any batch transcription backend.
//
// Transcribe submits one utterance of raw 16-bit signed little-endian mono
// PCM at the sample rate agreed at construction time (16 kHz throughout
// Argus) and returns the recognised text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}
