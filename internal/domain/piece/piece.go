// Package piece provides the full pre-recorded minuet entities.
package piece

import (
	"path"
	"strings"

	"github.com/osa030/dicebox/internal/domain/fragment"
)

// Piece is a complete pre-recorded minuet for one label.
type Piece struct {
	Label fragment.Label // Label the piece belongs to
	Name  string         // Display name, e.g. "Minuetto A"
	Path  string         // Resource path relative to the asset root
}

// Key returns the key identifying the piece for the single-sound player.
func (p Piece) Key() string {
	return "piece:" + string(p.Label)
}

// Originals returns one piece per label, in label order.
func Originals(labels []fragment.Label, collection, ext string) []Piece {
	pieces := make([]Piece, len(labels))
	for i, l := range labels {
		upper := strings.ToUpper(string(l))
		pieces[i] = Piece{
			Label: l,
			Name:  "Minuetto " + upper,
			Path:  path.Join(collection, "minuetto"+upper+"."+strings.TrimPrefix(ext, ".")),
		}
	}
	return pieces
}

// Find returns the piece for a label.
func Find(pieces []Piece, label fragment.Label) (Piece, bool) {
	for _, p := range pieces {
		if p.Label == label {
			return p, true
		}
	}
	return Piece{}, false
}
