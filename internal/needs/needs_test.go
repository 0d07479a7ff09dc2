package needs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState(DefaultStateConfig())
	require.NoError(t, err)
	return s
}

func TestNewStateStartsFull(t *testing.T) {
	s := newTestState(t)
	for _, k := range Kinds() {
		assert.Equal(t, s.Cap(k), s.Value(k), k.String())
	}
	assert.True(t, s.IsAcceptable())
}

func TestNewStateRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*StateConfig){
		"zero cap":          func(c *StateConfig) { c.Caps[Energy] = 0 },
		"negative rate":     func(c *StateConfig) { c.Rates[Fun] = -1 },
		"threshold above 1": func(c *StateConfig) { c.Threshold = 1.5 },
		"negative threshold": func(c *StateConfig) {
			c.Threshold = -0.1
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultStateConfig()
			mutate(&cfg)
			_, err := NewState(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestUpdateClampsToRange(t *testing.T) {
	s := newTestState(t)

	s.Update(Hunger, 500)
	assert.Equal(t, 100.0, s.Value(Hunger))

	s.Update(Hunger, -1000)
	assert.Equal(t, 0.0, s.Value(Hunger))

	s.Update(Hunger, 30)
	assert.InDelta(t, 30, s.Value(Hunger), 1e-9)
}

func TestDecayNeverGoesNegative(t *testing.T) {
	s := newTestState(t)
	for range 10_000 {
		s.Decay(10)
	}
	for _, k := range Kinds() {
		assert.Equal(t, 0.0, s.Value(k), k.String())
	}

	// Non-positive dt is a no-op.
	s.Update(Fun, 50)
	s.Decay(0)
	s.Decay(-5)
	assert.InDelta(t, 50, s.Value(Fun), 1e-9)
}

func TestDecayUsesPerKindRates(t *testing.T) {
	s := newTestState(t)
	s.Decay(100)

	cfg := DefaultStateConfig()
	for _, k := range Kinds() {
		assert.InDelta(t, 100-cfg.Rates[k]*100, s.Value(k), 1e-9, k.String())
	}
}

func TestIsAcceptableThreshold(t *testing.T) {
	s := newTestState(t)

	s.Update(Hygiene, -50) // exactly at threshold
	assert.True(t, s.IsAcceptable())

	s.Update(Hygiene, -0.01)
	assert.False(t, s.IsAcceptable())

	k, frac := s.Lowest()
	assert.Equal(t, Hygiene, k)
	assert.InDelta(t, 0.4999, frac, 1e-9)
}

func TestInvalidKindIsIgnored(t *testing.T) {
	s := newTestState(t)
	s.Update(Kind(9), 10)
	assert.Equal(t, 0.0, s.Value(Kind(9)))
	assert.Equal(t, 0.0, s.Cap(Kind(9)))
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestState(t)
	s.Update(Hunger, -40)
	s.Update(Energy, -75)

	snap := s.Snapshot()
	assert.Equal(t, Level{Value: 60, Cap: 100}, snap["hunger"])

	other := newTestState(t)
	other.Restore(snap)
	assert.Equal(t, s.Snapshot(), other.Snapshot())

	// Restored values still clamp.
	other.Restore(map[string]Level{"fun": {Value: 400}, "sleep": {Value: 1}})
	assert.Equal(t, 100.0, other.Value(Fun))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Energy ")
	require.NoError(t, err)
	assert.Equal(t, Energy, k)

	_, err = ParseKind("thirst")
	assert.Error(t, err)
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Kind{"k": Hygiene})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"hygiene"}`, string(data))

	var out struct {
		K Kind `json:"k"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"k":"fun"}`), &out))
	assert.Equal(t, Fun, out.K)
}
