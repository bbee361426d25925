// Package playbacktest provides an in-memory Loader whose sounds complete on demand.
package playbacktest

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/dicebox/internal/app/playback"
)

// Sound is a fake playback.Sound.
type Sound struct {
	mu      sync.Mutex
	path    string
	onEnd   func()
	playing bool
	closed  bool
}

// Path returns the path the sound was loaded from.
func (s *Sound) Path() string {
	return s.path
}

func (s *Sound) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sound closed")
	}
	s.onEnd = onEnd
	s.playing = true
	return nil
}

func (s *Sound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *Sound) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.playing = false
	return nil
}

// Playing reports whether the sound is sounding.
func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Closed reports whether the sound was released.
func (s *Sound) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Complete delivers the completion signal of the last Play.
func (s *Sound) Complete() {
	s.mu.Lock()
	onEnd := s.onEnd
	s.playing = false
	s.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

// Loader hands out Sounds and records them in load order.
type Loader struct {
	mu     sync.Mutex
	sounds []*Sound
	fail   map[string]error
}

// NewLoader creates an empty fake loader.
func NewLoader() *Loader {
	return &Loader{fail: make(map[string]error)}
}

// Fail makes every later Load of path return err.
func (l *Loader) Fail(path string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail[path] = err
}

func (l *Loader) Load(_ context.Context, path string) (playback.Sound, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.fail[path]; ok {
		return nil, err
	}
	s := &Sound{path: path}
	l.sounds = append(l.sounds, s)
	return s, nil
}

// Sounds returns every sound loaded so far.
func (l *Loader) Sounds() []*Sound {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Sound(nil), l.sounds...)
}

// Playing returns the sound currently sounding, if any.
func (l *Loader) Playing() (*Sound, bool) {
	for _, s := range l.Sounds() {
		if s.Playing() {
			return s, true
		}
	}
	return nil, false
}
