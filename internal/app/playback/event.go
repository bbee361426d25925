package playback

import "github.com/osa030/dicebox/internal/domain/fragment"

// EventType represents a playback event type.
type EventType int

const (
	EventItemStarted      EventType = iota // Queue item started sounding
	EventItemStopped                       // Queue item ended or was stopped
	EventSequenceComplete                  // Last queue item ended naturally
	EventSequenceFailed                    // A queue item could not be started mid-sequence
	EventSoundStarted                      // Standalone sound started
	EventSoundStopped                      // Standalone sound ended or was stopped
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemStarted:
		return "item_started"
	case EventItemStopped:
		return "item_stopped"
	case EventSequenceComplete:
		return "sequence_complete"
	case EventSequenceFailed:
		return "sequence_failed"
	case EventSoundStarted:
		return "sound_started"
	case EventSoundStopped:
		return "sound_stopped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Index int         // Queue position (item events only)
	ID    fragment.ID // Fragment of the queue item (item events only)
	Key   string      // Standalone sound key (sound events only)
	State State       // Playback state after the event
	Err   error       // Cause of EventSequenceFailed
}
