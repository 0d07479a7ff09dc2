// Package needs implements the per-agent need state: a small fixed set of
// decaying scalars with caps and an "acceptable" threshold.
package needs

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Kind enumerates the tracked needs.
type Kind uint8

const (
	Hunger Kind = iota
	Hygiene
	Energy
	Fun
)

// NumKinds is the total number of need kinds.
const NumKinds = 4

var kindNames = [NumKinds]string{"hunger", "hygiene", "energy", "fun"}

func (k Kind) String() string {
	if int(k) < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("need(%d)", uint8(k))
}

// Valid reports whether k is a known need kind.
func (k Kind) Valid() bool {
	return int(k) < NumKinds
}

// ParseKind maps a name such as "hunger" to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown need %q", name)
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown need %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a need name.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Kinds returns every need kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, NumKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Model is the contract the scheduler and interactions depend on.
// Implementations keep every value within [0, Cap].
type Model interface {
	Decay(dt float64)
	Update(k Kind, delta float64)
	Value(k Kind) float64
	Cap(k Kind) float64
	IsAcceptable() bool
}

// Level is one need's current value and its cap.
type Level struct {
	Value float64 `json:"value"`
	Cap   float64 `json:"cap"`
}

// StateConfig configures a State. Zero rates mean the need never decays.
type StateConfig struct {
	Caps      [NumKinds]float64 // Must be > 0
	Rates     [NumKinds]float64 // Units lost per sim-second, >= 0
	Threshold float64           // Acceptable fraction of cap, 0..1
}

// DefaultStateConfig returns caps of 100, slow decay, and a 50% threshold.
func DefaultStateConfig() StateConfig {
	return StateConfig{
		Caps:      [NumKinds]float64{100, 100, 100, 100},
		Rates:     [NumKinds]float64{0.05, 0.03, 0.04, 0.06},
		Threshold: 0.5,
	}
}

// ErrInvalidConfig is returned by NewState for malformed configuration.
var ErrInvalidConfig = errors.New("invalid need configuration")

// State is the linear-decay need model. Values start full.
type State struct {
	levels    [NumKinds]Level
	rates     [NumKinds]float64
	threshold float64
}

var _ Model = (*State)(nil)

// NewState validates cfg and returns a State with every need at its cap.
func NewState(cfg StateConfig) (*State, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %.2f outside [0, 1]", ErrInvalidConfig, cfg.Threshold)
	}
	s := &State{threshold: cfg.Threshold}
	for i := range NumKinds {
		if cfg.Caps[i] <= 0 {
			return nil, fmt.Errorf("%w: %s cap must be positive", ErrInvalidConfig, Kind(i))
		}
		if cfg.Rates[i] < 0 {
			return nil, fmt.Errorf("%w: %s decay rate is negative", ErrInvalidConfig, Kind(i))
		}
		s.levels[i] = Level{Value: cfg.Caps[i], Cap: cfg.Caps[i]}
		s.rates[i] = cfg.Rates[i]
	}
	return s, nil
}

// Value returns the current value of k, or 0 for an unknown kind.
func (s *State) Value(k Kind) float64 {
	if !k.Valid() {
		return 0
	}
	return s.levels[k].Value
}

// Cap returns the cap of k, or 0 for an unknown kind.
func (s *State) Cap(k Kind) float64 {
	if !k.Valid() {
		return 0
	}
	return s.levels[k].Cap
}

// Rate returns the decay rate of k.
func (s *State) Rate(k Kind) float64 {
	if !k.Valid() {
		return 0
	}
	return s.rates[k]
}

// Threshold returns the acceptable fraction of cap.
func (s *State) Threshold() float64 {
	return s.threshold
}

// Update adds delta to k. Out-of-range results are clamped silently.
func (s *State) Update(k Kind, delta float64) {
	if !k.Valid() {
		return
	}
	s.set(k, s.levels[k].Value+delta)
}

// Decay lowers every need by its rate over dt sim-seconds.
func (s *State) Decay(dt float64) {
	if dt <= 0 {
		return
	}
	for i := range NumKinds {
		s.decayKind(Kind(i), s.rates[i]*dt)
	}
}

func (s *State) decayKind(k Kind, amount float64) {
	s.set(k, s.levels[k].Value-amount)
}

// set is the single write path; every mutation clamps here.
func (s *State) set(k Kind, v float64) {
	s.levels[k].Value = clamp(v, 0, s.levels[k].Cap)
}

// IsAcceptable returns true iff every need is at or above threshold*cap.
func (s *State) IsAcceptable() bool {
	for _, l := range s.levels {
		if l.Value < s.threshold*l.Cap {
			return false
		}
	}
	return true
}

// Lowest returns the need furthest below its cap, as a fraction of cap.
func (s *State) Lowest() (Kind, float64) {
	lowest, frac := Hunger, 2.0
	for i, l := range s.levels {
		if f := l.Value / l.Cap; f < frac {
			lowest, frac = Kind(i), f
		}
	}
	return lowest, frac
}

// Snapshot returns a copy of every level keyed by need name.
func (s *State) Snapshot() map[string]Level {
	out := make(map[string]Level, NumKinds)
	for i, l := range s.levels {
		out[kindNames[i]] = l
	}
	return out
}

// Restore overwrites values from a snapshot. Unknown names are ignored and
// caps are kept from configuration.
func (s *State) Restore(snap map[string]Level) {
	for name, l := range snap {
		k, err := ParseKind(name)
		if err != nil {
			continue
		}
		s.set(k, l.Value)
	}
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
