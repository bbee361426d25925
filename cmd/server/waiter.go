package main

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/dicebox/internal/app/notification"
)

// finishWaiter is a notification stream that reports the end of a sequence:
// nil once the play control reads finishedLabel, an error on a failure.
type finishWaiter struct {
	finishedLabel string
	once          sync.Once
	done          chan error
}

func newFinishWaiter(finishedLabel string) *finishWaiter {
	return &finishWaiter{
		finishedLabel: finishedLabel,
		done:          make(chan error, 1),
	}
}

func (w *finishWaiter) Send(n *notification.Notification) error {
	switch {
	case n.Type == notification.TypePlayLabel && n.Label == w.finishedLabel:
		w.finish(nil)
	case n.Type == notification.TypeError:
		w.finish(errors.Newf("playback failed: %s", n.Message))
	}
	return nil
}

func (w *finishWaiter) finish(err error) {
	w.once.Do(func() { w.done <- err })
}
