// Package interaction defines the actions world objects offer to agents,
// their claim/perform lifecycle, and the catalog agents choose from.
package interaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

// Category separates need-satisfying interactions from work.
type Category uint8

const (
	NeedSatisfying Category = iota
	Work
)

func (c Category) String() string {
	switch c {
	case NeedSatisfying:
		return "need"
	case Work:
		return "work"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// ParseCategory maps "need" or "work" to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "need", "":
		return NeedSatisfying, nil
	case "work":
		return Work, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Status is an interaction's position in its lifecycle.
type Status uint8

const (
	Idle      Status = iota
	Claimed          // Selected; claimant is travelling
	Active           // Claimant arrived; elapsed time accrues
	Completed        // Duration reached; waiting for Complete
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Claimed:
		return "claimed"
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Effect is the change to one need over a full performance.
type Effect struct {
	Kind  needs.Kind `json:"need"`
	Delta float64    `json:"delta"`
}

// Performer is the agent side of an interaction.
type Performer interface {
	PerformerID() uint64
	NeedState() needs.Model
	Proficiency() float64 // 0..100
}

var (
	ErrUnavailable       = errors.New("interaction unavailable")
	ErrNoCapacity        = errors.New("no work capacity")
	ErrNotClaimant       = errors.New("performer does not hold the claim")
	ErrRemoved           = errors.New("interaction removed")
	ErrInvalidDefinition = errors.New("invalid interaction definition")
)

// Interaction is implemented only by *NeedInteraction and *WorkInteraction.
type Interaction interface {
	ID() uuid.UUID
	Name() string
	Category() Category
	Duration() float64
	Effects() []Effect
	Object() *Object
	Status() Status
	Claimant() (uint64, bool)
	Elapsed() float64
	Valid() bool

	// CanPerform reports whether the interaction could be claimed right now.
	CanPerform() bool
	// HeadTo claims the interaction for p and returns where p should stand.
	HeadTo(p Performer) (world.Point, error)
	// Perform starts accruing time for the claimant. onComplete runs once.
	Perform(p Performer, onComplete func(Interaction)) error
	// Advance accrues dt sim-seconds of performance.
	Advance(dt float64)
	// Cancel returns the interaction to Idle from any state.
	Cancel()
	// Complete releases a finished (or active) interaction back to Idle.
	Complete()
	// Invalidate flags the interaction as unusable; its claimant notices on
	// its next tick.
	Invalidate()

	sealed()
}

// Spec describes an interaction to construct.
type Spec struct {
	Name     string
	Duration float64
	Effects  []Effect
	Eligible func() bool // Optional extra prerequisite
}

func (s Spec) validate(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("%w: %s: no owning object", ErrInvalidDefinition, s.Name)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: %s: duration must be positive", ErrInvalidDefinition, s.Name)
	}
	for _, e := range s.Effects {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: %s: unknown need %d", ErrInvalidDefinition, s.Name, e.Kind)
		}
	}
	return nil
}

// base holds the lifecycle shared by both variants.
type base struct {
	self     Interaction
	id       uuid.UUID
	name     string
	category Category
	duration float64
	effects  []Effect
	eligible func() bool
	object   *Object

	status     Status
	performer  Performer
	elapsed    float64
	onComplete func(Interaction)
	invalid    bool

	// Variant hooks.
	available func() bool
	acquire   func(performer uint64) bool
	release   func(performer uint64)
}

func (b *base) sealed() {}

func (b *base) ID() uuid.UUID      { return b.id }
func (b *base) Name() string       { return b.name }
func (b *base) Category() Category { return b.category }
func (b *base) Duration() float64  { return b.duration }
func (b *base) Object() *Object    { return b.object }
func (b *base) Status() Status     { return b.status }
func (b *base) Elapsed() float64   { return b.elapsed }

// Effects returns a copy of the declared need effects.
func (b *base) Effects() []Effect {
	return append([]Effect(nil), b.effects...)
}

// Claimant returns the id of the performer holding the claim.
func (b *base) Claimant() (uint64, bool) {
	if b.performer == nil {
		return 0, false
	}
	return b.performer.PerformerID(), true
}

// Valid is false once the interaction or its object has been removed.
func (b *base) Valid() bool {
	return !b.invalid && (b.object == nil || !b.object.Removed())
}

func (b *base) CanPerform() bool {
	if b.status != Idle || !b.Valid() {
		return false
	}
	if b.eligible != nil && !b.eligible() {
		return false
	}
	if b.available != nil && !b.available() {
		return false
	}
	return true
}

func (b *base) HeadTo(p Performer) (world.Point, error) {
	if !b.CanPerform() {
		return world.Point{}, fmt.Errorf("%s: %w", b.name, ErrUnavailable)
	}
	if b.acquire != nil && !b.acquire(p.PerformerID()) {
		return world.Point{}, fmt.Errorf("%s: %w", b.name, ErrNoCapacity)
	}
	b.status = Claimed
	b.performer = p
	b.elapsed = 0
	return b.object.PointFor(p.PerformerID()), nil
}

func (b *base) Perform(p Performer, onComplete func(Interaction)) error {
	if !b.Valid() {
		return fmt.Errorf("%s: %w", b.name, ErrRemoved)
	}
	if b.status != Claimed || b.performer == nil || b.performer.PerformerID() != p.PerformerID() {
		return fmt.Errorf("%s: %w", b.name, ErrNotClaimant)
	}
	b.status = Active
	b.elapsed = 0
	b.onComplete = onComplete
	return nil
}

// advance accrues dt and hands the fraction of the duration it covered to
// apply. Completion fires the callback exactly once.
func (b *base) advance(dt float64, apply func(p Performer, fraction float64)) {
	if b.status != Active || dt <= 0 {
		return
	}
	prev := b.elapsed
	b.elapsed = min(b.elapsed+dt, b.duration)
	if frac := (b.elapsed - prev) / b.duration; frac > 0 {
		apply(b.performer, frac)
	}
	if b.elapsed < b.duration {
		return
	}
	b.status = Completed
	cb := b.onComplete
	b.onComplete = nil
	if cb != nil {
		cb(b.self)
	}
}

func (b *base) Cancel() {
	if b.status == Idle {
		return
	}
	b.reset()
}

func (b *base) Complete() {
	if b.status != Active && b.status != Completed {
		return
	}
	b.reset()
}

func (b *base) Invalidate() {
	b.invalid = true
}

func (b *base) reset() {
	if b.release != nil && b.performer != nil {
		b.release(b.performer.PerformerID())
	}
	b.status = Idle
	b.performer = nil
	b.elapsed = 0
	b.onComplete = nil
}

// NeedInteraction nudges the performer's needs while it is performed.
type NeedInteraction struct {
	base
}

// NewNeed creates a need-satisfying interaction on obj.
func NewNeed(obj *Object, spec Spec) (*NeedInteraction, error) {
	if err := spec.validate(obj); err != nil {
		return nil, err
	}
	n := &NeedInteraction{base: newBase(obj, spec, NeedSatisfying)}
	n.self = n
	obj.add(n)
	return n, nil
}

// Advance applies each effect's delta scaled by the fraction of the duration
// covered this step.
func (n *NeedInteraction) Advance(dt float64) {
	n.advance(dt, func(p Performer, fraction float64) {
		m := p.NeedState()
		for _, e := range n.effects {
			m.Update(e.Kind, e.Delta*fraction)
		}
	})
}

// WorkInteraction pushes the gate's shared progress while it is performed.
type WorkInteraction struct {
	base
	gate   work.Gate
	output float64 // Progress reported over a full performance at zero proficiency
}

// NewWork creates a work interaction on obj gated by gate.
func NewWork(obj *Object, spec Spec, gate work.Gate, output float64) (*WorkInteraction, error) {
	if err := spec.validate(obj); err != nil {
		return nil, err
	}
	if gate == nil {
		return nil, fmt.Errorf("%w: %s: work needs a gate", ErrInvalidDefinition, spec.Name)
	}
	if output <= 0 {
		return nil, fmt.Errorf("%w: %s: work output must be positive", ErrInvalidDefinition, spec.Name)
	}
	w := &WorkInteraction{base: newBase(obj, spec, Work), gate: gate, output: output}
	w.self = w
	w.available = gate.HasAvailableSlot
	w.acquire = gate.Acquire
	w.release = gate.Release
	obj.add(w)
	return w, nil
}

// Output returns the progress reported over a full performance before the
// proficiency bonus.
func (w *WorkInteraction) Output() float64 { return w.output }

// Advance reports progress to the gate. Proficiency 0..100 adds a 0..100%
// bonus to both the amount and the rate. Declared effects only feed scoring;
// the performer's needs are left alone.
func (w *WorkInteraction) Advance(dt float64) {
	w.advance(dt, func(p Performer, fraction float64) {
		bonus := 1 + min(max(p.Proficiency(), 0), 100)/100
		w.gate.ReportProgress(w.output*fraction*bonus, bonus)
	})
}

func newBase(obj *Object, spec Spec, cat Category) base {
	return base{
		id:       uuid.New(),
		name:     spec.Name,
		category: cat,
		duration: spec.Duration,
		effects:  append([]Effect(nil), spec.Effects...),
		eligible: spec.Eligible,
		object:   obj,
	}
}
