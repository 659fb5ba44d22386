package audio

import (
	"context"
	"errors"
	"time"
)

// FrameReadTimeout bounds a single ReadFrame poll so a stalled device cannot
// pin a caller past its own deadline. RecordClip and the wake-word listener
// both poll with this bound.
const FrameReadTimeout = 500 * time.Millisecond

// RecordClip reads frames from sess until duration worth of audio has been
// collected or timeout elapses, whichever comes first. The returned PCM may
// be shorter than requested — including empty — when the deadline expires
// early; callers must treat a short clip as a normal outcome, not a failure.
//
// Transient read conditions ([ErrReadTimeout], [ErrOverflow]) are skipped.
// RecordClip returns an error only when ctx is cancelled or the session is
// closed underneath it.
func RecordClip(ctx context.Context, sess CaptureSession, duration, timeout time.Duration) ([]byte, error) {
	cfg := sess.Config()
	want := int(duration.Milliseconds()) / cfg.FrameMs * cfg.FrameBytes()

	deadline := time.Now().Add(timeout)
	pcm := make([]byte, 0, want)

	for len(pcm) < want {
		if err := ctx.Err(); err != nil {
			return pcm, err
		}
		if time.Now().After(deadline) {
			break
		}

		frame, err := sess.ReadFrame(ctx, FrameReadTimeout)
		switch {
		case err == nil:
			pcm = append(pcm, frame.Data...)
		case errors.Is(err, ErrReadTimeout), errors.Is(err, ErrOverflow):
			continue
		default:
			return pcm, err
		}
	}
	return pcm, nil
}
