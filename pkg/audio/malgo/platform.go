// Package malgo implements the audio capture Platform on top of the
// miniaudio library via github.com/gen2brain/malgo.
//
// Frames delivered by the miniaudio data callback arrive in backend-chosen
// chunk sizes; the session re-slices them into the fixed frame size from
// [audio.CaptureConfig] so that downstream consumers (the WebRTC VAD in
// particular) always see exact frame boundaries.
package malgo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mal "github.com/gen2brain/malgo"

	"github.com/argus-ar/argus/pkg/audio"
)

// frameQueueDepth is the number of complete frames buffered between the
// miniaudio callback and ReadFrame. At 30 ms per frame this is roughly two
// seconds of slack before frames are dropped.
const frameQueueDepth = 64

// Compile-time interface checks.
var (
	_ audio.Platform       = (*Platform)(nil)
	_ audio.CaptureSession = (*session)(nil)
)

// Platform is an [audio.Platform] backed by miniaudio.
type Platform struct {
	ctx *mal.AllocatedContext
}

// New initialises a miniaudio context. The caller must call Close when the
// platform is no longer needed.
func New() (*Platform, error) {
	ctx, err := mal.InitContext(nil, mal.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: init context: %w", err)
	}
	return &Platform{ctx: ctx}, nil
}

// Devices lists the names of all capture devices known to the backend.
func (p *Platform) Devices() ([]string, error) {
	infos, err := p.ctx.Devices(mal.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo: enumerate devices: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, d := range infos {
		names = append(names, d.Name())
	}
	return names, nil
}

// Open selects a capture device by case-insensitive substring match against
// deviceName, falling back to the system default when deviceName is empty or
// unmatched. It returns [audio.ErrDeviceUnavailable] when the backend reports
// no capture devices at all.
func (p *Platform) Open(ctx context.Context, deviceName string, cfg audio.CaptureConfig) (audio.CaptureSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := p.ctx.Devices(mal.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo: enumerate devices: %w", err)
	}
	if len(infos) == 0 {
		return nil, audio.ErrDeviceUnavailable
	}

	deviceConfig := mal.DefaultDeviceConfig(mal.Capture)
	deviceConfig.Capture.Format = mal.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(cfg.FrameMs)

	// Substring match; no match falls through to the backend default.
	if deviceName != "" {
		needle := strings.ToLower(deviceName)
		for _, d := range infos {
			if strings.Contains(strings.ToLower(d.Name()), needle) {
				id := d.ID
				deviceConfig.Capture.DeviceID = id.Pointer()
				break
			}
		}
	}

	s := &session{
		cfg:     cfg,
		frames:  make(chan audio.Frame, frameQueueDepth),
		started: time.Now(),
	}

	callbacks := mal.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			s.push(data)
		},
	}

	dev, err := mal.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo: init device: %w", err)
	}
	s.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("malgo: start device: %w", err)
	}
	return s, nil
}

// Close releases the miniaudio context.
func (p *Platform) Close() error {
	if err := p.ctx.Uninit(); err != nil {
		p.ctx.Free()
		return fmt.Errorf("malgo: uninit context: %w", err)
	}
	p.ctx.Free()
	return nil
}

// session is a live capture stream. The miniaudio data callback re-slices
// incoming audio into exact frames and queues them; ReadFrame drains the
// queue.
type session struct {
	cfg     audio.CaptureConfig
	device  *mal.Device
	frames  chan audio.Frame
	started time.Time

	mu       sync.Mutex
	pending  []byte // partial frame carried between callbacks
	dropped  bool   // frames were discarded since the last ReadFrame
	closed   bool
	closeErr error
	once     sync.Once
}

// push is called from the miniaudio callback thread. It must never block.
func (s *session) push(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.pending = append(s.pending, data...)
	frameBytes := s.cfg.FrameBytes()
	for len(s.pending) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, s.pending[:frameBytes])
		s.pending = s.pending[frameBytes:]

		select {
		case s.frames <- audio.Frame{Data: frame, Timestamp: time.Since(s.started)}:
		default:
			s.dropped = true
		}
	}
}

// ReadFrame returns the next queued frame. A backlog drop since the previous
// read surfaces once as [audio.ErrOverflow] before live frames resume.
func (s *session) ReadFrame(ctx context.Context, timeout time.Duration) (audio.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return audio.Frame{}, audio.ErrSessionClosed
	}
	if s.dropped {
		s.dropped = false
		s.mu.Unlock()
		return audio.Frame{}, audio.ErrOverflow
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-s.frames:
		if !ok {
			return audio.Frame{}, audio.ErrSessionClosed
		}
		return frame, nil
	case <-timer.C:
		return audio.Frame{}, audio.ErrReadTimeout
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

// Config returns the capture format the session was opened with.
func (s *session) Config() audio.CaptureConfig { return s.cfg }

// Close stops the stream and releases the device. Safe to call repeatedly.
func (s *session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.device != nil {
			if err := s.device.Stop(); err != nil && !errors.Is(err, mal.ErrDeviceNotStarted) {
				s.closeErr = fmt.Errorf("malgo: stop device: %w", err)
			}
			s.device.Uninit()
		}
		close(s.frames)
	})
	return s.closeErr
}
