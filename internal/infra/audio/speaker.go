package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/app/playback"
)

// SpeakerSettings configures the sound card backend.
type SpeakerSettings struct {
	SampleRate      int `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs        int `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	ResampleQuality int `mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
}

// The speaker is a process-wide device.
var speakerOnce sync.Once

func newSpeakerLoader(root string, s SpeakerSettings) (*Loader, error) {
	sr := beep.SampleRate(s.SampleRate)

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(sr, sr.N(time.Duration(s.BufferMs)*time.Millisecond))
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "failed to initialize speaker")
	}
	zlog.Info().Msgf("audio: speaker ready: sample_rate=%d buffer_ms=%d", s.SampleRate, s.BufferMs)

	return &Loader{
		root:       root,
		sampleRate: sr,
		quality:    s.ResampleQuality,
		newSound:   func(buf *beep.Buffer) playback.Sound { return &speakerSound{buf: buf} },
		close:      speaker.Close,
	}, nil
}

// speakerSound plays a decoded buffer through the speaker mixer.
type speakerSound struct {
	mu   sync.Mutex
	buf  *beep.Buffer
	ctrl *beep.Ctrl
	done *atomic.Bool
}

func (s *speakerSound) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return ErrReleased
	}
	s.stopLocked()

	done := &atomic.Bool{}
	ctrl := &beep.Ctrl{Streamer: s.buf.Streamer(0, s.buf.Len())}
	s.ctrl = ctrl
	s.done = done

	// Callbacks run on the speaker goroutine with the speaker locked;
	// onEnd may start the next sound, so it runs elsewhere.
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		if done.CompareAndSwap(false, true) && onEnd != nil {
			go onEnd()
		}
	})))
	return nil
}

func (s *speakerSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *speakerSound) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.buf = nil
	return nil
}

// stopLocked silences the current play, suppressing its completion.
// Must be called with lock held.
func (s *speakerSound) stopLocked() {
	if s.ctrl == nil {
		return
	}
	s.done.Store(true)
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	s.ctrl = nil
	s.done = nil
}
