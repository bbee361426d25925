package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// SinglePlayer plays one standalone sound at a time, identified by a key.
type SinglePlayer struct {
	mu sync.Mutex

	loader Loader
	group  *Exclusive

	key        string
	sound      Sound
	generation uint64

	eventCh chan Event
	closed  bool
}

// NewSinglePlayer creates a standalone player and joins it to group.
func NewSinglePlayer(loader Loader, group *Exclusive, eventBuffer int) *SinglePlayer {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	if group == nil {
		group = NewExclusive()
	}
	p := &SinglePlayer{
		loader:  loader,
		group:   group,
		eventCh: make(chan Event, eventBuffer),
	}
	group.Join(p)
	return p
}

// Events returns the event channel.
func (p *SinglePlayer) Events() <-chan Event {
	return p.eventCh
}

// PlayOne toggles the sound for key: if it is the one sounding it is
// stopped, otherwise the resource at path is loaded and, once loaded,
// every other sound in the group is stopped and it is started.
// It reports whether key is now playing.
func (p *SinglePlayer) PlayOne(ctx context.Context, key, path string) (bool, error) {
	if current, ok := p.Playing(); ok && current == key {
		p.Stop()
		return false, nil
	}

	snd, err := p.loader.Load(ctx, path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load sound %s", key)
	}

	err = p.group.Claim(p, func() error {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			return ErrClosed
		}
		if p.sound != nil {
			p.generation++
			p.sound.Stop()
			p.releaseLocked()
		}

		p.generation++
		gen := p.generation
		if err := snd.Play(func() { p.onEnd(gen) }); err != nil {
			return errors.Wrapf(err, "failed to play sound %s", key)
		}

		p.key = key
		p.sound = snd
		p.sendEventLocked(Event{Type: EventSoundStarted, Key: key, State: StatePlaying})
		return nil
	})
	if err != nil {
		_ = snd.Close()
		return false, err
	}

	zlog.Debug().Msgf("playback: sound started: key=%s path=%s", key, path)
	return true, nil
}

// Stop halts and releases the sounding standalone sound, if any.
func (p *SinglePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sound == nil {
		return
	}
	p.generation++
	p.sound.Stop()
	p.releaseLocked()
}

// Playing returns the key of the sounding standalone sound.
func (p *SinglePlayer) Playing() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sound == nil {
		return "", false
	}
	return p.key, true
}

// Close stops any sound and closes the event channel.
func (p *SinglePlayer) Close() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.eventCh)
}

func (p *SinglePlayer) onEnd(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation || p.sound == nil {
		zlog.Debug().Msgf("playback: stale sound completion ignored: key=%s", p.key)
		return
	}
	p.generation++
	p.releaseLocked()
}

// releaseLocked closes the current sound and emits EventSoundStopped.
// Must be called with lock held.
func (p *SinglePlayer) releaseLocked() {
	key := p.key
	if err := p.sound.Close(); err != nil {
		zlog.Warn().Err(err).Msgf("playback: failed to release sound %s", key)
	}
	p.sound = nil
	p.key = ""
	p.sendEventLocked(Event{Type: EventSoundStopped, Key: key, State: StateIdle})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (p *SinglePlayer) sendEventLocked(ev Event) {
	if p.closed {
		return
	}
	select {
	case p.eventCh <- ev:
	default:
		zlog.Warn().Msgf("playback: event dropped: type=%s key=%s", ev.Type, ev.Key)
	}
}
