// Package game provides the dice game manager: it wires the selection
// generator to the playback engine and keeps the view model that clients render.
package game

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/app/notification"
	"github.com/osa030/dicebox/internal/app/playback"
	"github.com/osa030/dicebox/internal/app/selection"
	"github.com/osa030/dicebox/internal/domain/fragment"
	"github.com/osa030/dicebox/internal/domain/piece"
	"github.com/osa030/dicebox/internal/infra/config"
)

var (
	ErrPlayDisabled      = errors.New("no groups enabled")
	ErrRandomiseDisabled = errors.New("randomise needs at least two enabled groups")
	ErrUnknownCell       = errors.New("cell is not on the grid")
	ErrUnknownPiece      = errors.New("unknown piece")
	ErrUnknownGroup      = errors.New("unknown group")
)

const (
	cellKeyPrefix  = "cell:"
	pieceKeyPrefix = "piece:"
)

// Manager manages one dice game.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config    *config.Config
	labels    []fragment.Label
	positions int

	// Components
	generator    *selection.Generator
	group        *playback.Exclusive
	engine       *playback.Engine
	single       *playback.SinglePlayer
	notification *notification.Manager
	pieces       []piece.Piece

	// View model
	sessionID    string
	enabled      []fragment.Label
	selection    fragment.Selection
	playLabel    string
	playingCells map[fragment.ID]bool
	playingPiece fragment.Label
	lastError    string

	// Channels
	notifyCh chan notification.Notification
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

const defaultNotifyBuffer = 64

// NewManager creates a new game manager.
func NewManager(cfg *config.Config, loader playback.Loader) (*Manager, error) {
	labels := fragment.NormalizeLabels(cfg.Game.Labels)
	if len(labels) == 0 {
		return nil, errors.New("no labels configured")
	}

	ctx, cancel := context.WithCancel(context.Background())

	group := playback.NewExclusive()
	m := &Manager{
		config:    cfg,
		labels:    labels,
		positions: cfg.Game.Positions,
		generator: selection.NewGenerator(cfg.Game.Seed),
		group:     group,
		engine: playback.NewEngine(loader, group, playback.Config{
			Collection:  cfg.Assets.Randomiser,
			Extension:   cfg.Assets.Extension,
			EventBuffer: cfg.Game.EventBuffer,
		}),
		single:       playback.NewSinglePlayer(loader, group, cfg.Game.EventBuffer),
		notification: notification.NewManager(),
		pieces:       piece.Originals(labels, cfg.Assets.Full, cfg.Assets.Extension),

		sessionID:    uuid.New().String(),
		playLabel:    cfg.Messages.Play,
		playingCells: make(map[fragment.ID]bool),

		notifyCh: make(chan notification.Notification, notifyBuffer(cfg.Game.EventBuffer)),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	enabled, err := m.checkGroups(cfg.EnabledLabels())
	if err != nil {
		cancel()
		return nil, err
	}
	m.enabled = enabled

	return m, nil
}

// Start builds the initial selection and starts consuming playback events.
func (m *Manager) Start(ctx context.Context) error {
	go m.eventLoop()
	go m.notifyLoop()

	m.mu.RLock()
	enabled := len(m.enabled)
	m.mu.RUnlock()

	zlog.Info().Msgf("game: starting: session_id=%s positions=%d groups=%d", m.sessionID, m.positions, enabled)
	if enabled == 0 {
		return nil
	}
	return m.regenerate(ctx)
}

// Done returns a channel closed when the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Randomise draws and builds a new selection. Any sound is stopped first.
func (m *Manager) Randomise(ctx context.Context) error {
	m.mu.RLock()
	enabled := len(m.enabled)
	m.mu.RUnlock()

	if enabled < 2 {
		return ErrRandomiseDisabled
	}
	return m.regenerate(ctx)
}

// TogglePlay starts the sequence when idle and stops it when playing.
// It returns the play control label after the call.
func (m *Manager) TogglePlay(ctx context.Context) (string, error) {
	m.mu.RLock()
	enabled := len(m.enabled)
	m.mu.RUnlock()

	if enabled == 0 {
		return "", ErrPlayDisabled
	}

	state, err := m.engine.Toggle()
	if err != nil {
		m.setPlayLabel(m.config.Messages.Play)
		m.reportError(err)
		return m.PlayLabel(), errors.Wrap(err, "failed to start sequence")
	}

	if state == playback.StatePlaying {
		m.setPlayLabel(m.config.Messages.Stop)
	} else {
		m.setPlayLabel(m.config.Messages.Play)
	}
	return m.PlayLabel(), nil
}

// PlayCell toggles the preview sound of one grid cell.
// It reports whether the cell is now playing.
func (m *Manager) PlayCell(ctx context.Context, cell string) (bool, error) {
	label, pos, err := fragment.ParseID(cell)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "cell %q", cell), ErrUnknownCell)
	}
	id := fragment.NewID(label, pos)

	m.mu.RLock()
	onGrid := int(pos) <= m.positions && containsLabel(m.enabled, label)
	m.mu.RUnlock()
	if !onGrid {
		return false, errors.Wrapf(ErrUnknownCell, "%s", id)
	}

	return m.playSingle(ctx, cellKeyPrefix+string(id), id.Path(m.config.Assets.Cells, m.config.Assets.Extension))
}

// PlayPiece toggles the full pre-recorded piece of a label.
// It reports whether the piece is now playing.
func (m *Manager) PlayPiece(ctx context.Context, label string) (bool, error) {
	p, ok := piece.Find(m.pieces, fragment.Label(strings.ToLower(label)))
	if !ok {
		return false, errors.Wrapf(ErrUnknownPiece, "%q", label)
	}
	return m.playSingle(ctx, p.Key(), p.Path)
}

// SetEnabledGroups replaces the enabled groups. Playback stops immediately;
// with at least one group left a new selection is drawn and built.
func (m *Manager) SetEnabledGroups(ctx context.Context, groups []string) error {
	enabled, err := m.checkGroups(groups)
	if err != nil {
		return err
	}

	m.group.StopAll()

	m.mu.Lock()
	m.enabled = enabled
	m.playLabel = m.config.Messages.Play
	m.mu.Unlock()

	zlog.Info().Msgf("game: groups changed: enabled=%v", enabled)
	m.notify(notification.Notification{
		Type:   notification.TypeGroups,
		Groups: labelStrings(enabled),
		Label:  m.config.Messages.Play,
	})

	if len(enabled) == 0 {
		if err := m.engine.Build(ctx, nil); err != nil {
			return errors.Wrap(err, "failed to release queue")
		}
		m.mu.Lock()
		m.selection = nil
		m.mu.Unlock()
		return nil
	}
	return m.regenerate(ctx)
}

// Status returns a snapshot of the view model.
func (m *Manager) Status() *Status {
	state := m.engine.State()
	current, _ := m.engine.Current()

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &Status{
		SessionID:         m.sessionID,
		Positions:         m.positions,
		Labels:            labelStrings(m.labels),
		Enabled:           labelStrings(m.enabled),
		Selection:         m.selection.IDs(),
		PlayLabel:         m.playLabel,
		PlayDisabled:      len(m.enabled) == 0,
		RandomiseDisabled: len(m.enabled) < 2,
		State:             state.String(),
		Current:           current,
		LastError:         m.lastError,
	}
	for id := range m.playingCells {
		st.PlayingCells = append(st.PlayingCells, string(id))
	}
	sortStrings(st.PlayingCells)

	for _, p := range m.pieces {
		ps := PieceStatus{Label: string(p.Label), Name: p.Name, ButtonLabel: p.Name}
		if p.Label == m.playingPiece {
			ps.Playing = true
			ps.ButtonLabel = m.config.Messages.StopPiece + " " + p.Name
		}
		st.Pieces = append(st.Pieces, ps)
	}
	return st
}

// PlayLabel returns the current play control label.
func (m *Manager) PlayLabel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playLabel
}

// Pieces returns the full pieces of every configured label.
func (m *Manager) Pieces() []piece.Piece {
	return append([]piece.Piece(nil), m.pieces...)
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Close stops all sound and releases every resource.
func (m *Manager) Close() {
	m.once.Do(func() {
		m.cancel()
		m.engine.Close()
		m.single.Close()
		m.notification.Close()
		close(m.done)
	})
}

// regenerate stops all sound, draws a selection from the enabled groups and
// rebuilds the queue from it.
func (m *Manager) regenerate(ctx context.Context) error {
	m.group.StopAll()

	m.mu.Lock()
	pool := fragment.NewPool(m.positions, m.enabled)
	m.playLabel = m.config.Messages.Play
	m.mu.Unlock()

	sel, err := m.generator.Generate(pool)
	if err != nil {
		return errors.Wrap(err, "failed to generate selection")
	}

	if err := m.engine.Build(ctx, sel); err != nil {
		m.mu.Lock()
		m.selection = nil
		m.mu.Unlock()
		m.reportError(err)
		return errors.Wrap(err, "failed to build queue")
	}

	m.mu.Lock()
	m.selection = sel
	m.lastError = ""
	label := m.playLabel
	m.mu.Unlock()

	zlog.Info().Msgf("game: new selection: ids=%v", sel)
	m.notify(notification.Notification{
		Type:      notification.TypeSelection,
		Selection: sel.IDs(),
		Label:     label,
	})
	return nil
}

// playSingle plays a standalone sound. A running sequence is interrupted,
// which resets the play control label.
func (m *Manager) playSingle(ctx context.Context, key, path string) (bool, error) {
	interrupted := m.engine.State() == playback.StatePlaying

	playing, err := m.single.PlayOne(ctx, key, path)
	if interrupted {
		m.setPlayLabel(m.config.Messages.Play)
	}
	if err != nil {
		m.reportError(err)
		return false, err
	}
	return playing, nil
}

func (m *Manager) checkGroups(groups []string) ([]fragment.Label, error) {
	enabled := fragment.NormalizeLabels(groups)
	for _, l := range enabled {
		if !containsLabel(m.labels, l) {
			return nil, errors.Wrapf(ErrUnknownGroup, "%q", l)
		}
	}
	return enabled, nil
}

func (m *Manager) setPlayLabel(label string) {
	m.mu.Lock()
	changed := m.playLabel != label
	m.playLabel = label
	m.mu.Unlock()

	if changed {
		m.notify(notification.Notification{Type: notification.TypePlayLabel, Label: label})
	}
}

// notify queues n for the subscribers without waiting on them. When the
// queue is full the notification is dropped; the view model is unaffected.
func (m *Manager) notify(n notification.Notification) {
	select {
	case m.notifyCh <- n:
	default:
		zlog.Warn().Msgf("game: notification dropped: type=%s", n.Type)
	}
}

// notifyLoop delivers queued notifications in order until the manager closes.
func (m *Manager) notifyLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case n := <-m.notifyCh:
			m.notification.Broadcast(n)
		}
	}
}

func notifyBuffer(n int) int {
	if n <= 0 {
		return defaultNotifyBuffer
	}
	return n
}

func (m *Manager) reportError(err error) {
	msg := m.config.Messages.LoadFailed
	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()

	zlog.Error().Err(err).Msg("game: playback failed")
	m.notify(notification.Notification{Type: notification.TypeError, Message: msg})
}

func containsLabel(labels []fragment.Label, l fragment.Label) bool {
	for _, v := range labels {
		if v == l {
			return true
		}
	}
	return false
}

func labelStrings(labels []fragment.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
