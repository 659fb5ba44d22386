package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/facerec"
	"github.com/argus-ar/argus/pkg/provider/stt"
	"github.com/argus-ar/argus/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	stt     map[string]func(ProviderEntry) (stt.Transcriber, error)
	vad     map[string]func(ProviderEntry) (vad.Engine, error)
	facerec map[string]func(ProviderEntry) (facerec.Recognizer, error)
	audio   map[string]func(ProviderEntry) (audio.Platform, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:     make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		vad:     make(map[string]func(ProviderEntry) (vad.Engine, error)),
		facerec: make(map[string]func(ProviderEntry) (facerec.Recognizer, error)),
		audio:   make(map[string]func(ProviderEntry) (audio.Platform, error)),
	}
}

// RegisterSTT registers a transcription provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterVAD registers a VAD engine factory under name.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterFaceRec registers a face recognizer factory under name.
func (r *Registry) RegisterFaceRec(name string, factory func(ProviderEntry) (facerec.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facerec[name] = factory
}

// RegisterAudio registers an audio platform factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateSTT instantiates a transcription provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVAD instantiates a VAD engine using the factory registered under entry.Name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateFaceRec instantiates a face recognizer using the factory registered under entry.Name.
func (r *Registry) CreateFaceRec(entry ProviderEntry) (facerec.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.facerec[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: facerec/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio platform using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Platform, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
