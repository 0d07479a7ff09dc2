package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/world"
)

func TestSpecValidation(t *testing.T) {
	obj := NewObject("Desk", world.Vec3{})
	cases := map[string]Spec{
		"missing name":  {Duration: 1},
		"zero duration": {Name: "Sit"},
		"unknown need":  {Name: "Sit", Duration: 1, Effects: []Effect{{Kind: needs.Kind(42), Delta: 1}}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewNeed(obj, spec)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}

	_, err := NewNeed(nil, Spec{Name: "Sit", Duration: 1})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.Empty(t, obj.Interactions(), "rejected specs are not attached")
}

func TestClaimIsExclusive(t *testing.T) {
	it := newNeedInteraction(t, "Grab a snack", 5, Effect{Kind: needs.Hunger, Delta: 30})
	a, b := newPerformer(t, 1), newPerformer(t, 2)

	require.True(t, it.CanPerform())
	_, err := it.HeadTo(a)
	require.NoError(t, err)
	assert.Equal(t, Claimed, it.Status())

	assert.False(t, it.CanPerform())
	_, err = it.HeadTo(b)
	assert.ErrorIs(t, err, ErrUnavailable)

	id, ok := it.Claimant()
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)

	err = it.Perform(b, nil)
	assert.ErrorIs(t, err, ErrNotClaimant)
}

func TestClaimCancelClaimRoundTrip(t *testing.T) {
	it := newNeedInteraction(t, "Nap", 10, Effect{Kind: needs.Energy, Delta: 60})
	a, b := newPerformer(t, 1), newPerformer(t, 2)

	_, err := it.HeadTo(a)
	require.NoError(t, err)
	it.Cancel()
	assert.Equal(t, Idle, it.Status())
	_, ok := it.Claimant()
	assert.False(t, ok)

	_, err = it.HeadTo(b)
	require.NoError(t, err)
	id, _ := it.Claimant()
	assert.Equal(t, uint64(2), id)

	// Cancel from Active works too.
	require.NoError(t, it.Perform(b, nil))
	it.Advance(1)
	it.Cancel()
	assert.Equal(t, Idle, it.Status())
	assert.Zero(t, it.Elapsed())

	// Cancel on Idle is a no-op.
	it.Cancel()
	assert.Equal(t, Idle, it.Status())
}

func TestEffectsSpreadOverDuration(t *testing.T) {
	it := newNeedInteraction(t, "Eat lunch", 5, Effect{Kind: needs.Hunger, Delta: 50})
	p := newPerformer(t, 1)
	p.state.Update(needs.Hunger, -80) // 20

	_, err := it.HeadTo(p)
	require.NoError(t, err)

	completions := 0
	require.NoError(t, it.Perform(p, func(Interaction) { completions++ }))

	for i := 1; i <= 5; i++ {
		before := p.state.Value(needs.Hunger)
		it.Advance(1)
		assert.InDelta(t, 10, p.state.Value(needs.Hunger)-before, 1e-9, "tick %d", i)
	}
	assert.InDelta(t, 70, p.state.Value(needs.Hunger), 1e-9)
	assert.Equal(t, Completed, it.Status())
	assert.Equal(t, 1, completions)

	// Past completion nothing more is applied and the callback does not refire.
	it.Advance(1)
	assert.InDelta(t, 70, p.state.Value(needs.Hunger), 1e-9)
	assert.Equal(t, 1, completions)
}

func TestOvershootingStepIsCappedAtDuration(t *testing.T) {
	it := newNeedInteraction(t, "Brew coffee", 4, Effect{Kind: needs.Energy, Delta: 20})
	p := newPerformer(t, 1)
	p.state.Update(needs.Energy, -50)

	_, err := it.HeadTo(p)
	require.NoError(t, err)
	require.NoError(t, it.Perform(p, nil))

	it.Advance(3)
	it.Advance(3)
	assert.InDelta(t, 70, p.state.Value(needs.Energy), 1e-9)
	assert.Equal(t, 4.0, it.Elapsed())
}

func TestCompleteIsIdempotent(t *testing.T) {
	it := newNeedInteraction(t, "Take a shower", 2, Effect{Kind: needs.Hygiene, Delta: 40})
	p := newPerformer(t, 1)
	p.state.Update(needs.Hygiene, -60)

	_, err := it.HeadTo(p)
	require.NoError(t, err)
	require.NoError(t, it.Perform(p, func(i Interaction) { i.Complete() }))
	it.Advance(2)

	assert.Equal(t, Idle, it.Status())
	it.Complete()
	it.Complete()
	assert.Equal(t, Idle, it.Status())
	assert.InDelta(t, 80, p.state.Value(needs.Hygiene), 1e-9, "reward applied once")

	// Complete does nothing to a claimed-but-not-started interaction.
	_, err = it.HeadTo(p)
	require.NoError(t, err)
	it.Complete()
	assert.Equal(t, Claimed, it.Status())
}

func TestInvalidateStopsUse(t *testing.T) {
	it := newNeedInteraction(t, "Watch TV", 12, Effect{Kind: needs.Fun, Delta: 40})
	p := newPerformer(t, 1)

	_, err := it.HeadTo(p)
	require.NoError(t, err)
	it.Invalidate()

	assert.False(t, it.Valid())
	assert.False(t, it.CanPerform())
	assert.ErrorIs(t, it.Perform(p, nil), ErrRemoved)

	// The claimant can still let go.
	it.Cancel()
	assert.Equal(t, Idle, it.Status())
	assert.False(t, it.CanPerform())
}

func TestEligibleGuard(t *testing.T) {
	open := false
	obj := NewObject("Vending machine", world.Vec3{})
	it, err := NewNeed(obj, Spec{
		Name:     "Buy chips",
		Duration: 2,
		Effects:  []Effect{{Kind: needs.Hunger, Delta: 10}},
		Eligible: func() bool { return open },
	})
	require.NoError(t, err)

	assert.False(t, it.CanPerform())
	open = true
	assert.True(t, it.CanPerform())
}

func TestWorkValidation(t *testing.T) {
	obj := NewObject("Desk", world.Vec3{})
	spec := Spec{Name: "Write code", Duration: 10}

	_, err := NewWork(obj, spec, nil, 5)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = NewWork(obj, spec, newGate(1), 0)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestWorkHoldsGateSlot(t *testing.T) {
	g := newGate(1)
	deskA := NewObject("Desk A", world.Vec3{})
	deskB := NewObject("Desk B", world.Vec3{})
	a, err := NewWork(deskA, Spec{Name: "Write code", Duration: 4}, g, 8)
	require.NoError(t, err)
	b, err := NewWork(deskB, Spec{Name: "Write code", Duration: 4}, g, 8)
	require.NoError(t, err)

	alice, bob := newPerformer(t, 1), newPerformer(t, 2)
	_, err = a.HeadTo(alice)
	require.NoError(t, err)

	assert.False(t, b.CanPerform(), "gate is full")
	_, err = b.HeadTo(bob)
	assert.Error(t, err)

	a.Cancel()
	assert.True(t, b.CanPerform())
}

func TestWorkReportsProgressWithBonus(t *testing.T) {
	g := newGate(2)
	obj := NewObject("Desk", world.Vec3{})
	it, err := NewWork(obj, Spec{
		Name:     "Test build",
		Duration: 4,
		Effects:  []Effect{{Kind: needs.Fun, Delta: -40}},
	}, g, 10)
	require.NoError(t, err)
	assert.Equal(t, Work, it.Category())

	p := newPerformer(t, 1)
	p.skill = 50

	_, err = it.HeadTo(p)
	require.NoError(t, err)
	require.NoError(t, it.Perform(p, func(i Interaction) { i.Complete() }))
	for range 4 {
		it.Advance(1)
	}

	require.Len(t, g.reports, 4)
	assert.InDelta(t, 15, g.total(), 1e-9) // 10 * 1.5
	for _, r := range g.reports {
		assert.InDelta(t, 1.5, r.rate, 1e-9)
	}
	assert.Equal(t, 100.0, p.state.Value(needs.Fun), "work never touches needs")
	assert.Empty(t, g.held, "slot released on completion")
}

func TestPointForSpreadsPerformers(t *testing.T) {
	p0 := world.Point{Position: world.Vec3{X: -1}, Yaw: 90, HasYaw: true}
	p1 := world.Point{Position: world.Vec3{X: 1}, Yaw: 270, HasYaw: true}
	obj := NewObject("Couch", world.Vec3{}, p0, p1)

	assert.Equal(t, p0, obj.PointFor(4))
	assert.Equal(t, p1, obj.PointFor(7))

	bare := NewObject("Fridge", world.Vec3{X: 3})
	assert.Equal(t, world.Point{Position: world.Vec3{X: 3}}, bare.PointFor(1))
}

func TestObjectRemoveInvalidatesInteractions(t *testing.T) {
	it := newNeedInteraction(t, "Nap", 30, Effect{Kind: needs.Energy, Delta: 60})
	obj := it.Object()

	obj.Remove()
	assert.True(t, obj.Removed())
	assert.False(t, it.Valid())
}

func TestObjectRemoveFreesWorkSlot(t *testing.T) {
	g := newGate(1)
	desk := NewObject("Desk", world.Vec3{})
	it, err := NewWork(desk, Spec{Name: "Write code", Duration: 10}, g, 5)
	require.NoError(t, err)

	_, err = it.HeadTo(newPerformer(t, 1))
	require.NoError(t, err)
	require.False(t, g.HasAvailableSlot())

	desk.Remove()
	assert.Equal(t, Idle, it.Status())
	_, held := it.Claimant()
	assert.False(t, held)
	assert.True(t, g.HasAvailableSlot())
}
