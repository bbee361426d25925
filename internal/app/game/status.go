package game

import "sort"

// Status is a snapshot of the game's view model.
type Status struct {
	SessionID         string        `json:"session_id"`
	Positions         int           `json:"positions"`
	Labels            []string      `json:"labels"`
	Enabled           []string      `json:"enabled"`
	Selection         []string      `json:"selection"`
	PlayingCells      []string      `json:"playing_cells"`
	PlayLabel         string        `json:"play_label"`
	PlayDisabled      bool          `json:"play_disabled"`
	RandomiseDisabled bool          `json:"randomise_disabled"`
	State             string        `json:"state"`
	Current           int           `json:"current"`
	Pieces            []PieceStatus `json:"pieces"`
	LastError         string        `json:"last_error,omitempty"`
}

// PieceStatus describes one full-piece preview button.
type PieceStatus struct {
	Label       string `json:"label"`
	Name        string `json:"name"`
	ButtonLabel string `json:"button_label"`
	Playing     bool   `json:"playing"`
}

// IsSelected reports whether cell belongs to the current selection.
func (s *Status) IsSelected(cell string) bool {
	for _, id := range s.Selection {
		if id == cell {
			return true
		}
	}
	return false
}

// IsPlaying reports whether cell is highlighted as sounding.
func (s *Status) IsPlaying(cell string) bool {
	for _, id := range s.PlayingCells {
		if id == cell {
			return true
		}
	}
	return false
}

func sortStrings(s []string) {
	sort.Strings(s)
}
