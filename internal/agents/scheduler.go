// Agent scheduler: the per-tick decision loop.
// An agent with no interaction scores the catalog and claims the best option,
// walks to it, performs it, and cools down before choosing again.
package agents

import (
	"iter"
	"log/slog"

	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

// Catalog is the scheduler's view of available interactions.
type Catalog interface {
	All() iter.Seq2[*interaction.Object, interaction.Interaction]
	Work() iter.Seq2[*interaction.Object, interaction.Interaction]
}

// Navigator walks agents to interaction points. Arrival is polled, not signalled.
// MoveTo fails when the destination cannot be reached.
type Navigator interface {
	MoveTo(m world.Mover, dest world.Vec3) error
	Stop(m world.Mover)
}

// EventKind labels scheduler transitions reported to OnEvent.
type EventKind string

const (
	EventClaimed   EventKind = "claimed"
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventCancelled EventKind = "cancelled"
)

// SchedulerConfig holds the scheduler's timing and distance settings.
type SchedulerConfig struct {
	Cooldown         float64 // Sim-seconds between finishing and choosing again
	ArrivalThreshold float64 // Distance at which the agent counts as arrived
	TurnRate         float64 // Degrees per sim-second while aligning
}

// DefaultSchedulerConfig returns the stock tuning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Cooldown:         1,
		ArrivalThreshold: 1,
		TurnRate:         120,
	}
}

// Scheduler drives agents through select → travel → perform → complete.
// It holds no per-agent state; that lives in Agent.Decision.
type Scheduler struct {
	catalog Catalog
	gate    work.Gate
	nav     Navigator
	cfg     SchedulerConfig
	log     *slog.Logger

	// OnEvent, if set, is told about every claim, start, completion and
	// cancellation.
	OnEvent func(a *Agent, kind EventKind, it interaction.Interaction)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler wires the scheduler to its collaborators.
func NewScheduler(catalog Catalog, gate work.Gate, nav Navigator, cfg SchedulerConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		catalog: catalog,
		gate:    gate,
		nav:     nav,
		cfg:     cfg,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scheduler's tuning.
func (s *Scheduler) Config() SchedulerConfig {
	return s.cfg
}

// Tick runs one step of a's decision loop. Within a tick the agent either
// selects or progresses its interaction, never both. Need decay always runs
// exactly once.
func (s *Scheduler) Tick(a *Agent, dt float64) {
	if !a.Alive {
		return
	}
	d := &a.Decision

	if d.Current != nil && !s.holdsClaim(a) {
		s.abandon(a, "claim invalidated")
	}

	switch {
	case d.Current == nil:
		if d.Cooldown > 0 {
			d.Cooldown = max(0, d.Cooldown-dt)
			d.Phase = PhaseIdle
		} else {
			s.selectInteraction(a)
		}
	case !d.Performing:
		s.approach(a)
	default:
		d.Current.Interaction.Advance(dt)
	}

	a.Needs.Decay(dt)

	if d.Rotating {
		a.Yaw = world.RotateTowards(a.Yaw, d.Facing, s.cfg.TurnRate*dt)
		if a.Yaw == world.NormalizeYaw(d.Facing) {
			d.Rotating = false
		}
	}
}

// Release drops whatever a has claimed. Used when an agent leaves the world.
func (s *Scheduler) Release(a *Agent) {
	if a.Decision.Current != nil {
		s.abandon(a, "agent released")
	}
}

// holdsClaim reports whether a's claim is still usable and still a's.
func (s *Scheduler) holdsClaim(a *Agent) bool {
	it := a.Decision.Current.Interaction
	if !it.Valid() {
		return false
	}
	id, ok := it.Claimant()
	return ok && id == a.PerformerID()
}

// selectInteraction scores eligible interactions and claims the best one
// that is still available. Work comes first when needs are fine and the gate
// has room; an agent whose needs are not acceptable never picks work.
func (s *Scheduler) selectInteraction(a *Agent) bool {
	d := &a.Decision
	d.Phase = PhaseSeeking

	acceptable := a.Needs.IsAcceptable()
	if acceptable && s.gate.HasAvailableSlot() {
		if s.claimBest(a, s.gather(a, s.catalog.Work(), true)) {
			return true
		}
	}
	if s.claimBest(a, s.gather(a, s.catalog.All(), acceptable)) {
		return true
	}

	d.Phase = PhaseIdle
	s.log.Debug("no interaction available", "agent", a.Name)
	return false
}

// claimBest walks cands from the highest score down and claims the first one
// a can both take and reach.
func (s *Scheduler) claimBest(a *Agent, cands []Candidate) bool {
	rank(cands)
	for _, c := range cands {
		// Another agent may have claimed it since scoring.
		if !c.Interaction.CanPerform() {
			continue
		}
		target, err := c.Interaction.HeadTo(a)
		if err != nil {
			s.log.Debug("claim failed", "agent", a.Name, "interaction", c.Interaction.Name(), "error", err)
			continue
		}
		if err := s.nav.MoveTo(a, target.Position); err != nil {
			// A path that can never complete counts as a cancellation.
			c.Interaction.Cancel()
			s.log.Debug("interaction unreachable", "agent", a.Name, "interaction", c.Interaction.Name(), "error", err)
			continue
		}
		d := &a.Decision
		d.Current = &Claim{Object: c.Object, Interaction: c.Interaction, Target: target}
		d.Performing = false
		d.Phase = PhaseTraveling
		s.emit(a, EventClaimed, c.Interaction)
		return true
	}
	return false
}

func (s *Scheduler) gather(a *Agent, seq iter.Seq2[*interaction.Object, interaction.Interaction], allowWork bool) []Candidate {
	var cands []Candidate
	for obj, it := range seq {
		if !allowWork && it.Category() == interaction.Work {
			continue
		}
		if !it.CanPerform() {
			continue
		}
		cands = append(cands, Candidate{Object: obj, Interaction: it, Score: Score(a.Needs, it)})
	}
	return cands
}

// approach starts the interaction once a is close enough to its point.
func (s *Scheduler) approach(a *Agent) {
	d := &a.Decision
	c := d.Current
	if world.Distance(a.Position, c.Target.Position) > s.cfg.ArrivalThreshold {
		return
	}

	s.nav.Stop(a)
	d.Performing = true
	if c.Target.HasYaw {
		d.Rotating = true
		d.Facing = c.Target.Yaw
	}
	if err := c.Interaction.Perform(a, s.completion(a)); err != nil {
		s.log.Debug("perform failed", "agent", a.Name, "interaction", c.Interaction.Name(), "error", err)
		s.abandon(a, err.Error())
		return
	}
	d.Phase = PhasePerforming
	s.emit(a, EventStarted, c.Interaction)
}

// completion builds the callback an interaction fires when its duration is up.
func (s *Scheduler) completion(a *Agent) func(interaction.Interaction) {
	return func(it interaction.Interaction) {
		it.Complete()
		d := &a.Decision
		if d.Current == nil || d.Current.Interaction != it {
			return
		}
		d.Current = nil
		d.Performing = false
		d.Cooldown = s.cfg.Cooldown
		d.Phase = PhaseIdle
		s.emit(a, EventCompleted, it)
	}
}

// abandon cancels a's claim and returns it to Idle with no cooldown so the
// next tick selects afresh.
func (s *Scheduler) abandon(a *Agent, reason string) {
	d := &a.Decision
	it := d.Current.Interaction
	if id, ok := it.Claimant(); ok && id == a.PerformerID() {
		it.Cancel()
	}
	s.nav.Stop(a)
	d.Current = nil
	d.Performing = false
	d.Rotating = false
	d.Cooldown = 0
	d.Phase = PhaseIdle
	s.log.Debug("interaction cancelled", "agent", a.Name, "interaction", it.Name(), "reason", reason)
	s.emit(a, EventCancelled, it)
}

func (s *Scheduler) emit(a *Agent, kind EventKind, it interaction.Interaction) {
	if s.OnEvent != nil {
		s.OnEvent(a, kind, it)
	}
}
