package needs

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Drift is a need model whose decay rates wander smoothly over time.
// Each kind samples its own noise row so hunger and energy don't rise and
// fall together. Deterministic for a given seed.
type Drift struct {
	*State

	noise     opensimplex.Noise
	clock     float64 // Sim-seconds elapsed
	amplitude float64 // 0 disables modulation, 1 lets a rate swing 0..2x
	frequency float64 // Noise samples per sim-second
}

var _ Model = (*Drift)(nil)

// NewDrift wraps s with noise-modulated decay. amplitude is clamped to [0, 1].
func NewDrift(s *State, seed int64, amplitude float64) *Drift {
	return &Drift{
		State:     s,
		noise:     opensimplex.New(seed),
		amplitude: clamp(amplitude, 0, 1),
		frequency: 1.0 / 600, // One swing every ten sim-minutes or so
	}
}

// Decay lowers each need by rate*multiplier*dt, where the multiplier follows
// the noise field and never drops below zero.
func (d *Drift) Decay(dt float64) {
	if dt <= 0 {
		return
	}
	d.clock += dt
	for i := range NumKinds {
		k := Kind(i)
		d.decayKind(k, d.Rate(k)*d.Multiplier(k)*dt)
	}
}

// Multiplier returns the current decay multiplier for k.
func (d *Drift) Multiplier(k Kind) float64 {
	n := d.noise.Eval2(d.clock*d.frequency, float64(k)*7.3)
	return max(0, 1+d.amplitude*n)
}
