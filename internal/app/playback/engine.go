package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/domain/fragment"
)

// Config holds engine configuration.
type Config struct {
	Collection  string // Collection the queue fragments are loaded from
	Extension   string // Audio file extension
	EventBuffer int    // Capacity of the event channel
}

const defaultEventBuffer = 64

// item is one continuation record of the queue: when the sound at index
// ends, playback continues at next (-1 terminates the sequence).
type item struct {
	index int
	id    fragment.ID
	sound Sound
	next  int
}

// Engine plays a selection back-to-back, each fragment starting when the
// previous one reports completion.
type Engine struct {
	mu      sync.Mutex
	buildMu sync.Mutex

	loader Loader
	group  *Exclusive
	config Config

	queue   []item
	state   State
	current int

	// generation invalidates completion callbacks armed before the last
	// stop, completion or rebuild.
	generation uint64

	eventCh chan Event
	closed  bool
}

// NewEngine creates a new sequential playback engine and joins it to group.
// A nil group gives the engine a group of its own.
func NewEngine(loader Loader, group *Exclusive, config Config) *Engine {
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if group == nil {
		group = NewExclusive()
	}
	e := &Engine{
		loader:  loader,
		group:   group,
		config:  config,
		state:   StateIdle,
		current: -1,
		eventCh: make(chan Event, config.EventBuffer),
	}
	group.Join(e)
	return e
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Build replaces the queue with one loaded from sel.
// Playback is stopped and the previous queue released before anything new is loaded.
// On a load failure every handle loaded so far is released and the queue stays empty.
func (e *Engine) Build(ctx context.Context, sel fragment.Selection) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.stopLocked()
	old := e.queue
	e.queue = nil
	e.generation++
	e.mu.Unlock()

	releaseItems(old)

	queue := make([]item, 0, len(sel))
	for i, id := range sel {
		path := id.Path(e.config.Collection, e.config.Extension)
		snd, err := e.loader.Load(ctx, path)
		if err != nil {
			releaseItems(queue)
			return errors.Wrapf(err, "failed to load fragment %s (position %d)", id, i+1)
		}
		next := i + 1
		if next == len(sel) {
			next = -1
		}
		queue = append(queue, item{index: i, id: id, sound: snd, next: next})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		releaseItems(queue)
		return ErrClosed
	}
	e.queue = queue

	zlog.Debug().Msgf("playback: queue built: items=%d ids=%v", len(queue), sel)
	return nil
}

// Start begins playback at the first queue item after silencing every
// other member of the exclusive group. Starting while playing is a no-op.
func (e *Engine) Start() error {
	return e.group.Claim(e, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.closed {
			return ErrClosed
		}
		if e.state == StatePlaying {
			return nil
		}
		if len(e.queue) == 0 {
			return ErrQueueEmpty
		}

		zlog.Info().Msgf("playback: sequence started: items=%d", len(e.queue))
		return e.startLocked(0)
	})
}

// Stop halts the sounding item and returns to idle without playing the rest.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// stopLocked halts the sounding item, if any.
// Must be called with lock held.
func (e *Engine) stopLocked() {
	if e.state != StatePlaying {
		return
	}

	it := e.queue[e.current]
	e.generation++
	it.sound.Stop()

	e.state = StateIdle
	e.current = -1
	e.sendEventLocked(Event{Type: EventItemStopped, Index: it.index, ID: it.id, State: e.state})

	zlog.Info().Msgf("playback: sequence stopped: at=%d id=%s", it.index, it.id)
}

// Toggle starts playback when idle and stops it when playing.
// It returns the state after the call.
func (e *Engine) Toggle() (State, error) {
	if e.State() == StatePlaying {
		e.Stop()
		return StateIdle, nil
	}
	if err := e.Start(); err != nil {
		return StateIdle, err
	}
	return e.State(), nil
}

// State returns the current playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the index of the sounding item.
func (e *Engine) Current() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return -1, false
	}
	return e.current, true
}

// Selection returns the fragment IDs of the live queue.
func (e *Engine) Selection() fragment.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := make(fragment.Selection, len(e.queue))
	for i, it := range e.queue {
		sel[i] = it.id
	}
	return sel
}

// Len returns the number of items in the queue.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Close stops playback, releases the queue and closes the event channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stopLocked()
	e.closed = true
	e.generation++
	releaseItems(e.queue)
	e.queue = nil
	close(e.eventCh)
}

// startLocked starts the item at idx.
// Must be called with lock held.
func (e *Engine) startLocked(idx int) error {
	it := e.queue[idx]
	gen := e.generation
	if err := it.sound.Play(func() { e.onItemEnd(gen, idx) }); err != nil {
		return errors.Wrapf(err, "failed to play fragment %s", it.id)
	}

	e.state = StatePlaying
	e.current = idx
	e.sendEventLocked(Event{Type: EventItemStarted, Index: idx, ID: it.id, State: e.state})
	return nil
}

// onItemEnd is the completion continuation of the item at idx.
func (e *Engine) onItemEnd(gen uint64, idx int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || e.state != StatePlaying || e.current != idx {
		zlog.Debug().Msgf("playback: stale completion ignored: index=%d", idx)
		return
	}

	it := e.queue[idx]
	e.sendEventLocked(Event{Type: EventItemStopped, Index: idx, ID: it.id, State: e.state})

	if it.next < 0 {
		e.finishLocked()
		e.sendEventLocked(Event{Type: EventSequenceComplete, Index: idx, State: e.state})
		zlog.Info().Msg("playback: sequence complete")
		return
	}

	if err := e.startLocked(it.next); err != nil {
		e.finishLocked()
		e.sendEventLocked(Event{Type: EventSequenceFailed, Index: it.next, ID: e.queue[it.next].id, State: e.state, Err: err})
		zlog.Error().Err(err).Msgf("playback: sequence aborted: at=%d", it.next)
	}
}

// finishLocked returns to idle and disarms outstanding completions.
// Must be called with lock held.
func (e *Engine) finishLocked() {
	e.state = StateIdle
	e.current = -1
	e.generation++
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (e *Engine) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
	default:
		zlog.Warn().Msgf("playback: event dropped: type=%s index=%d", ev.Type, ev.Index)
	}
}

func releaseItems(items []item) {
	for _, it := range items {
		if err := it.sound.Close(); err != nil {
			zlog.Warn().Err(err).Msgf("playback: failed to release fragment %s", it.id)
		}
	}
}
