package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walker struct{ pos Vec3 }

func (w *walker) Location() Vec3     { return w.pos }
func (w *walker) SetLocation(p Vec3) { w.pos = p }

func TestNormalizeYaw(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeYaw(360))
	assert.Equal(t, 270.0, NormalizeYaw(-90))
	assert.Equal(t, 45.0, NormalizeYaw(765))
}

func TestRotateTowardsTakesShortestWay(t *testing.T) {
	// 350 -> 10 is 20 degrees clockwise, not 340 back.
	assert.Equal(t, 0.0, RotateTowards(350, 10, 10))
	assert.Equal(t, 10.0, RotateTowards(0, 10, 10))
	assert.Equal(t, 340.0, RotateTowards(10, 200, 30))
}

func TestRotateTowardsSnapsWithinStep(t *testing.T) {
	assert.Equal(t, 90.0, RotateTowards(85, 90, 120))
	assert.Equal(t, 270.0, RotateTowards(0, -90, 180))
}

func TestFloorClamp(t *testing.T) {
	f := NewFloor(20, 10)
	assert.True(t, f.InBounds(Vec3{X: 10, Z: -5}))
	assert.False(t, f.InBounds(Vec3{X: 10.1}))
	assert.Equal(t, Vec3{X: 10, Y: 2, Z: -5}, f.Clamp(Vec3{X: 50, Y: 2, Z: -50}))
}

func TestNavigatorWalksAndArrives(t *testing.T) {
	n := NewNavigator(2, nil)
	w := &walker{}
	require.NoError(t, n.MoveTo(w, Vec3{X: 5}))

	n.Step(1)
	assert.InDelta(t, 2, w.pos.X, 1e-9)
	_, moving := n.Destination(w)
	assert.True(t, moving)

	n.Step(1)
	n.Step(1) // 1 unit left, step is 2: snaps
	assert.Equal(t, Vec3{X: 5}, w.pos)
	_, moving = n.Destination(w)
	assert.False(t, moving)

	// Further steps do nothing.
	n.Step(1)
	assert.Equal(t, Vec3{X: 5}, w.pos)
}

func TestNavigatorStop(t *testing.T) {
	n := NewNavigator(1, NewFloor(4, 4))
	w := &walker{}
	require.NoError(t, n.MoveTo(w, Vec3{X: 2}))
	dest, ok := n.Destination(w)
	assert.True(t, ok)
	assert.Equal(t, Vec3{X: 2}, dest)

	n.Stop(w)
	n.Step(1)
	assert.Equal(t, Vec3{}, w.pos)
}

func TestNavigatorRefusesOffFloorDestination(t *testing.T) {
	n := NewNavigator(1, NewFloor(4, 4))
	w := &walker{}
	require.NoError(t, n.MoveTo(w, Vec3{Z: -1}))

	err := n.MoveTo(w, Vec3{X: 100})
	require.ErrorIs(t, err, ErrUnreachable)
	dest, ok := n.Destination(w)
	assert.True(t, ok, "previous destination kept")
	assert.Equal(t, Vec3{Z: -1}, dest)
}
