package game

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/dicebox/internal/app/notification"
	"github.com/osa030/dicebox/internal/app/playback"
	"github.com/osa030/dicebox/internal/app/playback/playbacktest"
	"github.com/osa030/dicebox/internal/domain/fragment"
	"github.com/osa030/dicebox/internal/infra/config"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func newTestManager(t *testing.T, labels ...string) (*Manager, *playbacktest.Loader) {
	t.Helper()
	cfg := config.Default()
	cfg.Game.Positions = 4
	cfg.Game.Labels = []string{"a", "b", "c"}
	cfg.Game.Enabled = labels
	cfg.Game.Seed = 3

	loader := playbacktest.NewLoader()
	m, err := NewManager(cfg, loader)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, loader
}

// completeSequence delivers the completion of every queue item in turn.
func completeSequence(t *testing.T, loader *playbacktest.Loader, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s, ok := loader.Playing()
		require.True(t, ok, "item %d not sounding", i)
		s.Complete()
	}
}

func TestManager_Start(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	st := m.Status()
	assert.Len(t, st.Selection, 4)
	for i, id := range st.Selection {
		assert.Contains(t, []string{"a", "b"}, id[:1])
		assert.Equal(t, i+1, int(id[2]-'0'))
	}
	assert.Equal(t, []string{"a", "b"}, st.Enabled)
	assert.Equal(t, "Play Minuetto", st.PlayLabel)
	assert.False(t, st.PlayDisabled)
	assert.False(t, st.RandomiseDisabled)
	assert.Equal(t, "idle", st.State)
	assert.Len(t, st.Pieces, 3)
	assert.Len(t, loader.Sounds(), 4)
	assert.Equal(t, "randomiser/"+st.Selection[0]+".mp3", loader.Sounds()[0].Path())
}

func TestManager_PlayLabels(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	label, err := m.TogglePlay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stop Minuetto", label)

	first := m.Status().Selection[0]
	assert.Eventually(t, func() bool { return m.Status().IsPlaying(first) }, waitFor, tick)

	completeSequence(t, loader, 4)

	assert.Eventually(t, func() bool { return m.PlayLabel() == "Play Again!" }, waitFor, tick)
	assert.Eventually(t, func() bool { return len(m.Status().PlayingCells) == 0 }, waitFor, tick)
	assert.Equal(t, "idle", m.Status().State)

	label, err = m.TogglePlay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stop Minuetto", label)

	label, err = m.TogglePlay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Play Minuetto", label)
	assert.Equal(t, "idle", m.Status().State)
}

func TestManager_RandomiseResetsLabel(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	_, err := m.TogglePlay(context.Background())
	require.NoError(t, err)
	completeSequence(t, loader, 4)
	assert.Eventually(t, func() bool { return m.PlayLabel() == "Play Again!" }, waitFor, tick)

	require.NoError(t, m.Randomise(context.Background()))
	assert.Equal(t, "Play Minuetto", m.PlayLabel())
	for _, s := range loader.Sounds()[:4] {
		assert.True(t, s.Closed())
	}
}

func TestManager_SetEnabledGroupsStopsImmediately(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	_, err := m.TogglePlay(context.Background())
	require.NoError(t, err)
	s, ok := loader.Playing()
	require.True(t, ok)

	require.NoError(t, m.SetEnabledGroups(context.Background(), []string{"C"}))

	assert.False(t, s.Playing())
	st := m.Status()
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, "Play Minuetto", st.PlayLabel)
	assert.Equal(t, []string{"c"}, st.Enabled)
	assert.Equal(t, []string{"c01", "c02", "c03", "c04"}, st.Selection)
	assert.True(t, st.RandomiseDisabled)
	assert.False(t, st.PlayDisabled)

	// Late completion of the interrupted item is ignored.
	s.Complete()
	_, ok = loader.Playing()
	assert.False(t, ok)

	assert.True(t, errors.Is(m.Randomise(context.Background()), ErrRandomiseDisabled))
}

func TestManager_NoGroups(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, m.SetEnabledGroups(context.Background(), nil))

	st := m.Status()
	assert.True(t, st.PlayDisabled)
	assert.True(t, st.RandomiseDisabled)
	assert.Empty(t, st.Selection)
	for _, s := range loader.Sounds() {
		assert.True(t, s.Closed())
	}

	_, err := m.TogglePlay(context.Background())
	assert.True(t, errors.Is(err, ErrPlayDisabled))
	assert.True(t, errors.Is(m.Randomise(context.Background()), ErrRandomiseDisabled))

	_, err = m.PlayCell(context.Background(), "a01")
	assert.True(t, errors.Is(err, ErrUnknownCell))
}

func TestManager_UnknownGroup(t *testing.T) {
	m, _ := newTestManager(t, "a")
	err := m.SetEnabledGroups(context.Background(), []string{"a", "z"})
	assert.True(t, errors.Is(err, ErrUnknownGroup))

	_, err = NewManager(&config.Config{Game: config.GameConfig{Labels: []string{"a"}, Enabled: []string{"q"}}}, playbacktest.NewLoader())
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestManager_PlayCellInterruptsSequence(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	_, err := m.TogglePlay(context.Background())
	require.NoError(t, err)
	first := m.Status().Selection[0]

	playing, err := m.PlayCell(context.Background(), "B04")
	require.NoError(t, err)
	assert.True(t, playing)

	assert.Equal(t, "idle", m.Status().State)
	assert.Equal(t, "Play Minuetto", m.PlayLabel())

	s, ok := loader.Playing()
	require.True(t, ok)
	assert.Equal(t, "cells/b04.mp3", s.Path())

	assert.Eventually(t, func() bool {
		st := m.Status()
		return st.IsPlaying("b04") && !st.IsPlaying(first)
	}, waitFor, tick)

	playing, err = m.PlayCell(context.Background(), "b04")
	require.NoError(t, err)
	assert.False(t, playing)
	assert.Eventually(t, func() bool { return len(m.Status().PlayingCells) == 0 }, waitFor, tick)
}

func TestManager_PlayCellRejected(t *testing.T) {
	m, _ := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	tests := []struct {
		cell      string
		malformed bool
	}{
		{cell: "c01"},
		{cell: "a05"},
		{cell: "a00", malformed: true},
		{cell: "zz", malformed: true},
		{cell: "", malformed: true},
	}
	for _, tt := range tests {
		_, err := m.PlayCell(context.Background(), tt.cell)
		assert.True(t, errors.Is(err, ErrUnknownCell), tt.cell)
		assert.Equal(t, tt.malformed, errors.Is(err, fragment.ErrInvalidID), tt.cell)
	}
}

// blockingStream never completes a send until released.
type blockingStream struct {
	release chan struct{}
}

func (s *blockingStream) Send(*notification.Notification) error {
	<-s.release
	return nil
}

func TestManager_SlowSubscriberDoesNotStallView(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	stream := &blockingStream{release: make(chan struct{})}
	t.Cleanup(func() { close(stream.release) })
	m.GetNotificationManager().Subscribe(stream)

	_, err := m.TogglePlay(context.Background())
	require.NoError(t, err)
	completeSequence(t, loader, 4)

	// Every send to the subscriber times out after 500ms; the view must not wait on them.
	assert.Eventually(t, func() bool {
		st := m.Status()
		return st.PlayLabel == "Play Again!" && len(st.PlayingCells) == 0
	}, 300*time.Millisecond, tick)
}

func TestManager_PlayPiece(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))

	playing, err := m.PlayPiece(context.Background(), "C")
	require.NoError(t, err)
	assert.True(t, playing)

	s, ok := loader.Playing()
	require.True(t, ok)
	assert.Equal(t, "full/minuettoC.mp3", s.Path())

	assert.Eventually(t, func() bool {
		for _, p := range m.Status().Pieces {
			if p.Label == "c" {
				return p.Playing && p.ButtonLabel == "Stop Minuetto C"
			}
		}
		return false
	}, waitFor, tick)

	s.Complete()
	assert.Eventually(t, func() bool {
		for _, p := range m.Status().Pieces {
			if p.Playing {
				return false
			}
		}
		return true
	}, waitFor, tick)

	_, err = m.PlayPiece(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrUnknownPiece))
}

func TestManager_LoadFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Game.Positions = 2
	cfg.Game.Labels = []string{"a"}

	loader := playbacktest.NewLoader()
	loader.Fail("randomiser/a02.mp3", errors.New("corrupt mp3"))
	m, err := NewManager(cfg, loader)
	require.NoError(t, err)
	defer m.Close()

	require.Error(t, m.Start(context.Background()))

	st := m.Status()
	assert.Empty(t, st.Selection)
	assert.Equal(t, "Unable to play", st.LastError)

	_, err = m.TogglePlay(context.Background())
	assert.True(t, errors.Is(err, playback.ErrQueueEmpty))
	assert.Equal(t, "idle", m.Status().State)
	assert.Equal(t, "Play Minuetto", m.PlayLabel())
}

func TestManager_Close(t *testing.T) {
	m, loader := newTestManager(t, "a", "b")
	require.NoError(t, m.Start(context.Background()))
	_, err := m.TogglePlay(context.Background())
	require.NoError(t, err)

	m.Close()
	m.Close()

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
	for _, s := range loader.Sounds() {
		assert.True(t, s.Closed())
	}
}
