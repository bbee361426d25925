package game

import (
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/app/notification"
	"github.com/osa030/dicebox/internal/app/playback"
	"github.com/osa030/dicebox/internal/domain/fragment"
	"github.com/osa030/dicebox/internal/domain/piece"
)

// eventLoop applies playback events to the view model until the manager closes.
func (m *Manager) eventLoop() {
	engineCh := m.engine.Events()
	singleCh := m.single.Events()

	for engineCh != nil || singleCh != nil {
		select {
		case <-m.ctx.Done():
			return
		case ev, ok := <-engineCh:
			if !ok {
				engineCh = nil
				continue
			}
			m.handleSequenceEvent(ev)
		case ev, ok := <-singleCh:
			if !ok {
				singleCh = nil
				continue
			}
			m.handleSoundEvent(ev)
		}
	}
}

// handleSequenceEvent handles events from the sequential engine.
func (m *Manager) handleSequenceEvent(ev playback.Event) {
	zlog.Debug().Msgf("game: sequence event: type=%s index=%d id=%s", ev.Type, ev.Index, ev.ID)

	switch ev.Type {
	case playback.EventItemStarted:
		m.markCell(ev.ID, true)
	case playback.EventItemStopped:
		m.markCell(ev.ID, false)
	case playback.EventSequenceComplete:
		// A new start may already be under way.
		if m.engine.State() == playback.StateIdle {
			m.setPlayLabel(m.config.Messages.PlayAgain)
		}
	case playback.EventSequenceFailed:
		m.setPlayLabel(m.config.Messages.Play)
		m.reportError(ev.Err)
	}
}

// handleSoundEvent handles events from the standalone player.
func (m *Manager) handleSoundEvent(ev playback.Event) {
	zlog.Debug().Msgf("game: sound event: type=%s key=%s", ev.Type, ev.Key)

	started := ev.Type == playback.EventSoundStarted
	if cell, ok := strings.CutPrefix(ev.Key, cellKeyPrefix); ok {
		m.markCell(fragment.ID(cell), started)
		return
	}
	if label, ok := strings.CutPrefix(ev.Key, pieceKeyPrefix); ok {
		m.markPiece(fragment.Label(label), started)
	}
}

func (m *Manager) markCell(id fragment.ID, playing bool) {
	m.mu.Lock()
	if playing {
		m.playingCells[id] = true
	} else {
		delete(m.playingCells, id)
	}
	m.mu.Unlock()

	t := notification.TypeCellStopped
	if playing {
		t = notification.TypeCellStarted
	}
	m.notify(notification.Notification{Type: t, Cell: string(id)})
}

func (m *Manager) markPiece(label fragment.Label, playing bool) {
	p, _ := piece.Find(m.pieces, label)
	buttonLabel := p.Name

	m.mu.Lock()
	if playing {
		m.playingPiece = label
		buttonLabel = m.config.Messages.StopPiece + " " + p.Name
	} else if m.playingPiece == label {
		m.playingPiece = ""
	}
	m.mu.Unlock()

	t := notification.TypePieceStopped
	if playing {
		t = notification.TypePieceStarted
	}
	m.notify(notification.Notification{Type: t, Piece: string(label), Label: buttonLabel})
}
