package fragment

import (
	"sort"
	"strings"
)

// Pool maps each position to its candidate labels.
type Pool struct {
	positions  int
	candidates map[Position][]Label
}

// NewPool creates a pool of n positions where every position offers the same labels.
func NewPool(n int, labels []Label) *Pool {
	p := &Pool{
		positions:  n,
		candidates: make(map[Position][]Label, n),
	}
	for i := 1; i <= n; i++ {
		p.Set(Position(i), labels)
	}
	return p
}

// Set replaces the candidates of a position.
func (p *Pool) Set(pos Position, labels []Label) {
	c := make([]Label, len(labels))
	copy(c, labels)
	p.candidates[pos] = c
}

// Positions returns the number of positions in the pool.
func (p *Pool) Positions() int {
	return p.positions
}

// Candidates returns the candidate labels of a position.
func (p *Pool) Candidates(pos Position) []Label {
	return p.candidates[pos]
}

// EmptyPositions returns every position without candidates.
func (p *Pool) EmptyPositions() []Position {
	var empty []Position
	for i := 1; i <= p.positions; i++ {
		if len(p.candidates[Position(i)]) == 0 {
			empty = append(empty, Position(i))
		}
	}
	return empty
}

// Contains reports whether id is a candidate of the pool.
func (p *Pool) Contains(id ID) bool {
	label, pos, err := ParseID(string(id))
	if err != nil || int(pos) > p.positions {
		return false
	}
	for _, l := range p.candidates[pos] {
		if l == label {
			return true
		}
	}
	return false
}

// NormalizeLabels lower-cases, deduplicates and sorts labels, dropping empty ones.
func NormalizeLabels(in []string) []Label {
	seen := make(map[Label]bool, len(in))
	out := make([]Label, 0, len(in))
	for _, s := range in {
		l := Label(strings.ToLower(strings.TrimSpace(s)))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
