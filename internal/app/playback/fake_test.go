package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

// fakeSound records calls and lets tests deliver its completion signal.
type fakeSound struct {
	mu      sync.Mutex
	path    string
	onEnd   func()
	playing bool
	plays   int
	stops   int
	closed  bool
	playErr error
}

func (s *fakeSound) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.onEnd = onEnd
	s.playing = true
	s.plays++
	return nil
}

func (s *fakeSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.stops++
}

func (s *fakeSound) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// complete delivers the completion signal as the audio backend would,
// even if the sound was stopped in the meantime.
func (s *fakeSound) complete() {
	s.mu.Lock()
	onEnd := s.onEnd
	s.playing = false
	s.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

func (s *fakeSound) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeLoader hands out fakeSounds and remembers them in load order.
type fakeLoader struct {
	mu      sync.Mutex
	sounds  []*fakeSound
	failOn  map[string]error
	playErr map[string]error
	onLoad  func(path string)
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		failOn:  make(map[string]error),
		playErr: make(map[string]error),
	}
}

func (l *fakeLoader) Load(_ context.Context, path string) (Sound, error) {
	if l.onLoad != nil {
		l.onLoad(path)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.failOn[path]; ok {
		return nil, err
	}
	s := &fakeSound{path: path, playErr: l.playErr[path]}
	l.sounds = append(l.sounds, s)
	return s, nil
}

func (l *fakeLoader) sound(i int) *fakeSound {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sounds[i]
}

func (l *fakeLoader) loaded() []*fakeSound {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*fakeSound, len(l.sounds))
	copy(out, l.sounds)
	return out
}

var errDecode = errors.New("decode failed")

// drain collects every buffered event.
func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

// trace renders events compactly, e.g. "start0", "stop0", "complete".
func trace(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		switch ev.Type {
		case EventItemStarted:
			out = append(out, fmt.Sprintf("start%d", ev.Index))
		case EventItemStopped:
			out = append(out, fmt.Sprintf("stop%d", ev.Index))
		case EventSequenceComplete:
			out = append(out, "complete")
		case EventSequenceFailed:
			out = append(out, fmt.Sprintf("failed%d", ev.Index))
		case EventSoundStarted:
			out = append(out, "sound_start:"+ev.Key)
		case EventSoundStopped:
			out = append(out, "sound_stop:"+ev.Key)
		}
	}
	return out
}
