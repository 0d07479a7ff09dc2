package interaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/world"
)

// performer is a minimal Performer with non-decaying needs.
type performer struct {
	id    uint64
	state *needs.State
	skill float64
}

func newPerformer(t *testing.T, id uint64) *performer {
	t.Helper()
	cfg := needs.DefaultStateConfig()
	cfg.Rates = [needs.NumKinds]float64{}
	s, err := needs.NewState(cfg)
	require.NoError(t, err)
	return &performer{id: id, state: s}
}

func (p *performer) PerformerID() uint64    { return p.id }
func (p *performer) NeedState() needs.Model { return p.state }
func (p *performer) Proficiency() float64   { return p.skill }

// report is one ReportProgress call.
type report struct {
	magnitude, rate float64
}

// gate is a Gate with a fixed number of slots that records progress.
type gate struct {
	slots   int
	held    map[uint64]bool
	reports []report
}

func newGate(slots int) *gate {
	return &gate{slots: slots, held: make(map[uint64]bool)}
}

func (g *gate) HasAvailableSlot() bool { return len(g.held) < g.slots }

func (g *gate) Acquire(id uint64) bool {
	if g.held[id] {
		return true
	}
	if len(g.held) >= g.slots {
		return false
	}
	g.held[id] = true
	return true
}

func (g *gate) Release(id uint64) { delete(g.held, id) }

func (g *gate) ReportProgress(magnitude, rate float64) {
	g.reports = append(g.reports, report{magnitude, rate})
}

func (g *gate) total() float64 {
	var sum float64
	for _, r := range g.reports {
		sum += r.magnitude
	}
	return sum
}

func newNeedInteraction(t *testing.T, name string, duration float64, effects ...Effect) *NeedInteraction {
	t.Helper()
	obj := NewObject(name+" object", world.Vec3{})
	it, err := NewNeed(obj, Spec{Name: name, Duration: duration, Effects: effects})
	require.NoError(t, err)
	return it
}
