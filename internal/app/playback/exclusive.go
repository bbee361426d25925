package playback

import "sync"

// Stopper is anything in the exclusive group that can be silenced.
type Stopper interface {
	Stop()
}

// Exclusive keeps at most one audible source active across its members.
type Exclusive struct {
	mu      sync.Mutex
	members []Stopper

	// audible serialises every transition that makes a member sound.
	audible sync.Mutex
}

// NewExclusive creates an empty exclusive group.
func NewExclusive() *Exclusive {
	return &Exclusive{}
}

// Join adds a member to the group.
func (x *Exclusive) Join(m Stopper) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.members = append(x.members, m)
}

// StopOthers stops every member except self.
// Members are stopped without holding the group lock.
func (x *Exclusive) StopOthers(self Stopper) {
	for _, m := range x.snapshot() {
		if m != self {
			m.Stop()
		}
	}
}

// Claim silences every member except self and runs start while no other
// member can claim the group. start must not call back into the group.
func (x *Exclusive) Claim(self Stopper, start func() error) error {
	x.audible.Lock()
	defer x.audible.Unlock()

	x.StopOthers(self)
	return start()
}

// StopAll stops every member.
func (x *Exclusive) StopAll() {
	x.audible.Lock()
	defer x.audible.Unlock()

	for _, m := range x.snapshot() {
		m.Stop()
	}
}

func (x *Exclusive) snapshot() []Stopper {
	x.mu.Lock()
	defer x.mu.Unlock()
	members := make([]Stopper, len(x.members))
	copy(members, x.members)
	return members
}
