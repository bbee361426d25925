// Package selection provides random selection of one fragment per position.
package selection

import (
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/domain/fragment"
)

// ErrEmptyPosition is returned when a position has no candidate labels.
var ErrEmptyPosition = errors.New("position has no candidate labels")

// Generator draws one candidate per position, uniformly and independently.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A zero seed gives a randomly seeded source.
func NewGenerator(seed uint64) *Generator {
	var src rand.Source
	if seed == 0 {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	} else {
		src = rand.NewPCG(seed, seed)
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns a new selection drawn from the pool.
// It fails without a partial result if any position is empty.
func (g *Generator) Generate(pool *fragment.Pool) (fragment.Selection, error) {
	if empty := pool.EmptyPositions(); len(empty) > 0 {
		return nil, errors.Wrapf(ErrEmptyPosition, "positions %v", empty)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sel := make(fragment.Selection, pool.Positions())
	for i := range sel {
		pos := fragment.Position(i + 1)
		candidates := pool.Candidates(pos)
		sel[i] = fragment.NewID(candidates[g.rng.IntN(len(candidates))], pos)
	}

	zlog.Debug().Msgf("selection: generated: ids=%v", sel)
	return sel, nil
}
