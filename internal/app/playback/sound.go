package playback

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrQueueEmpty = errors.New("queue is empty")
	ErrClosed     = errors.New("player is closed")
)

// Sound is a loaded, playable audio handle.
type Sound interface {
	// Play starts the sound from its beginning. onEnd is invoked once, on a
	// goroutine other than the caller's, when the sound finishes by itself.
	// It is not invoked for a sound halted with Stop.
	Play(onEnd func()) error
	// Stop halts the sound immediately.
	Stop()
	// Close releases the handle.
	Close() error
}

// Loader loads sounds from resource paths.
type Loader interface {
	Load(ctx context.Context, path string) (Sound, error)
}
