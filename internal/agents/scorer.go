package agents

import (
	"sort"

	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/needs"
)

// DefaultScore is the score of an interaction that declares no need effects.
const DefaultScore = 0.0

// Score rates how much an agent with needs m wants it. Each declared effect
// contributes how far its need sits below 100, clamped to 0..100. The size and
// sign of the delta do not matter, only which needs are touched.
func Score(m needs.Model, it interaction.Interaction) float64 {
	effects := it.Effects()
	if len(effects) == 0 {
		return DefaultScore
	}
	score := 0.0
	for _, e := range effects {
		score += min(max(100-m.Value(e.Kind), 0), 100)
	}
	return score
}

// Candidate is one scored option in a selection pass.
type Candidate struct {
	Object      *interaction.Object
	Interaction interaction.Interaction
	Score       float64
}

// rank sorts best first. Ties keep catalog order.
func rank(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
}
