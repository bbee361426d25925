// Package fragment provides the measure fragment domain entities.
package fragment

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultPositions is the number of measures in a composed piece.
const DefaultPositions = 12

// ErrInvalidID is returned when a fragment ID cannot be parsed.
var ErrInvalidID = errors.New("invalid fragment id")

// Label identifies one group of fragment variants (e.g. "a").
type Label string

// Position is a 1-based measure slot.
type Position int

// ID identifies one fragment: a label followed by a zero-padded position (e.g. "a01").
type ID string

// NewID builds the fragment ID for a label at a position.
func NewID(label Label, pos Position) ID {
	return ID(fmt.Sprintf("%s%02d", label, int(pos)))
}

// ParseID splits an ID into its label and position.
func ParseID(id string) (Label, Position, error) {
	if len(id) < 2 {
		return "", 0, errors.Wrapf(ErrInvalidID, "%q", id)
	}
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return "", 0, errors.Wrapf(ErrInvalidID, "%q", id)
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil || n < 1 {
		return "", 0, errors.Wrapf(ErrInvalidID, "%q", id)
	}
	return Label(strings.ToLower(id[:i])), Position(n), nil
}

// Label returns the label part of the ID.
func (id ID) Label() Label {
	l, _, _ := ParseID(string(id))
	return l
}

// Position returns the position part of the ID, or 0 if the ID is malformed.
func (id ID) Position() Position {
	_, p, _ := ParseID(string(id))
	return p
}

// Path resolves the ID to a resource path: {collection}/{id}.{ext}.
func (id ID) Path(collection, ext string) string {
	return path.Join(collection, string(id)+"."+strings.TrimPrefix(ext, "."))
}

// Selection is one concrete fragment per position, in position order.
type Selection []ID

// IDs returns the selection as plain strings.
func (s Selection) IDs() []string {
	ids := make([]string, len(s))
	for i, id := range s {
		ids[i] = string(id)
	}
	return ids
}

// Contains reports whether id is part of the selection.
func (s Selection) Contains(id ID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Paths resolves every ID in the selection.
func (s Selection) Paths(collection, ext string) []string {
	paths := make([]string, len(s))
	for i, id := range s {
		paths[i] = id.Path(collection, ext)
	}
	return paths
}
