// Package wakeword turns a live microphone stream into wake-phrase
// detections. Frames are classified by a VAD session, folded into speech
// segments by [Segmenter], and each completed segment is transcribed and
// matched against the configured phrase.
package wakeword

// Segmenter folds per-frame speech classifications into contiguous speech
// segments. It is a two-state machine: while in silence, speech frames open
// a new segment; while in speech, the first silence frame closes the segment
// and emits it.
//
// At most one segment is emitted per maximal run of speech frames. A
// Segmenter is not safe for concurrent use; the detector owns one per
// listening window.
type Segmenter struct {
	buf      []byte
	inSpeech bool
}

// Push feeds one frame with its classification. When the frame closes a
// speech run, the accumulated segment is returned; otherwise nil.
func (s *Segmenter) Push(frame []byte, speech bool) []byte {
	if speech {
		s.inSpeech = true
		s.buf = append(s.buf, frame...)
		return nil
	}
	if !s.inSpeech {
		return nil
	}
	return s.emit()
}

// Flush emits any in-progress segment. Used when the listening window
// expires mid-utterance so trailing speech is not lost.
func (s *Segmenter) Flush() []byte {
	if !s.inSpeech {
		return nil
	}
	return s.emit()
}

// Reset discards all accumulated state.
func (s *Segmenter) Reset() {
	s.buf = nil
	s.inSpeech = false
}

func (s *Segmenter) emit() []byte {
	seg := s.buf
	s.buf = nil
	s.inSpeech = false
	if len(seg) == 0 {
		return nil
	}
	return seg
}
