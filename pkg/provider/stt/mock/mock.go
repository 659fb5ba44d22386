// Package mock provides a scripted test double for stt.Transcriber.
package mock

import (
	"context"
	"sync"

	"github.com/argus-ar/argus/pkg/provider/stt"
)

// Result is a single scripted Transcribe outcome.
type Result struct {
	Text string
	Err  error
}

// Text scripts a successful transcription.
func Text(s string) Result { return Result{Text: s} }

// Err scripts a failed transcription.
func Err(err error) Result { return Result{Err: err} }

// NoSpeech scripts an utterance with no recognisable speech.
func NoSpeech() Result { return Result{Err: stt.ErrNoSpeech} }

// Transcriber is a mock implementation of stt.Transcriber that replays a
// scripted sequence of results. Once the script is exhausted every call
// returns [stt.ErrNoSpeech].
type Transcriber struct {
	mu sync.Mutex

	results []Result
	next    int

	// Calls records the PCM length of every Transcribe invocation.
	Calls []int
}

// New creates a Transcriber that replays results in order.
func New(results ...Result) *Transcriber {
	return &Transcriber{results: results}
}

// Transcribe returns the next scripted result.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, len(pcm))

	if t.next >= len(t.results) {
		return "", stt.ErrNoSpeech
	}
	r := t.results[t.next]
	t.next++
	return r.Text, r.Err
}

// CallCount returns the number of Transcribe invocations so far.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Append adds further results to the script.
func (t *Transcriber) Append(results ...Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, results...)
}

// Compile-time interface check.
var _ stt.Transcriber = (*Transcriber)(nil)
