package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/osa030/dicebox/internal/app/playback"
)

// SilentSettings configures the headless backend, which decodes files but
// only keeps time: a sound completes once its decoded length has elapsed.
type SilentSettings struct {
	SampleRate int     `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	Speed      float64 `mapstructure:"speed" default:"1" validate:"gt=0,lte=1000"`
}

func newSilentLoader(root string, s SilentSettings) *Loader {
	return &Loader{
		root:       root,
		sampleRate: beep.SampleRate(s.SampleRate),
		quality:    1,
		newSound: func(buf *beep.Buffer) playback.Sound {
			return newSilentSound(buf.Format().SampleRate.D(buf.Len()), s.Speed)
		},
	}
}

// silentSound reports completion after its (scaled) length.
type silentSound struct {
	mu       sync.Mutex
	length   time.Duration
	timer    *time.Timer
	released bool
}

func newSilentSound(length time.Duration, speed float64) *silentSound {
	return &silentSound{length: time.Duration(float64(length) / speed)}
}

func (s *silentSound) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}
	s.stopLocked()

	var t *time.Timer
	t = time.AfterFunc(s.length, func() {
		s.mu.Lock()
		current := s.timer == t
		if current {
			s.timer = nil
		}
		s.mu.Unlock()
		if current && onEnd != nil {
			onEnd()
		}
	})
	s.timer = t
	return nil
}

func (s *silentSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *silentSound) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.released = true
	return nil
}

// stopLocked must be called with lock held.
func (s *silentSound) stopLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
}
