// Package playback provides sequential and single-sound playback over loaded audio handles.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing sounding
	StatePlaying              // A queue item or a standalone sound is sounding
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
