package needs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftZeroAmplitudeMatchesLinear(t *testing.T) {
	plain := newTestState(t)
	inner := newTestState(t)
	d := NewDrift(inner, 7, 0)

	for range 50 {
		plain.Decay(3)
		d.Decay(3)
	}
	assert.Equal(t, plain.Snapshot(), d.Snapshot())
}

func TestDriftIsDeterministicPerSeed(t *testing.T) {
	a := NewDrift(newTestState(t), 42, 0.8)
	b := NewDrift(newTestState(t), 42, 0.8)
	for range 200 {
		a.Decay(5)
		b.Decay(5)
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestDriftMultiplierBounds(t *testing.T) {
	d := NewDrift(newTestState(t), 3, 5) // clamped to 1
	for range 500 {
		d.Decay(13)
		for _, k := range Kinds() {
			m := d.Multiplier(k)
			assert.GreaterOrEqual(t, m, 0.0)
			assert.LessOrEqual(t, m, 2.0+1e-9)
		}
	}
}

func TestDriftKeepsValuesInRange(t *testing.T) {
	cfg := DefaultStateConfig()
	cfg.Rates = [NumKinds]float64{5, 5, 5, 5}
	s, err := NewState(cfg)
	require.NoError(t, err)
	d := NewDrift(s, 1, 1)

	for range 1000 {
		d.Decay(1)
		d.Update(Fun, 3)
	}
	for _, k := range Kinds() {
		assert.GreaterOrEqual(t, d.Value(k), 0.0)
		assert.LessOrEqual(t, d.Value(k), d.Cap(k))
	}
}
