// Package agents provides the office agent, its decision state, the
// interaction scorer, and the scheduler that drives each agent every tick.
package agents

import (
	"fmt"

	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/world"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Agent is an autonomous worker in the office.
type Agent struct {
	ID   AgentID `json:"id"`
	Name string  `json:"name"`

	// Location
	Position world.Vec3 `json:"position"`
	Yaw      float64    `json:"yaw"` // Degrees

	Skill float64     `json:"skill"` // Work proficiency, 0–100
	Needs needs.Model `json:"-"`

	// Decision state, mutated only by the Scheduler.
	Decision Decision `json:"decision"`

	// Metadata
	BornTick uint64 `json:"born_tick"`
	Alive    bool   `json:"alive"`
}

// NewAgent creates a live agent with the given need model.
func NewAgent(id AgentID, name string, model needs.Model) *Agent {
	return &Agent{ID: id, Name: name, Needs: model, Alive: true}
}

// PerformerID implements interaction.Performer.
func (a *Agent) PerformerID() uint64 { return uint64(a.ID) }

// NeedState implements interaction.Performer.
func (a *Agent) NeedState() needs.Model { return a.Needs }

// Proficiency implements interaction.Performer.
func (a *Agent) Proficiency() float64 { return a.Skill }

// Location implements world.Mover.
func (a *Agent) Location() world.Vec3 { return a.Position }

// SetLocation implements world.Mover.
func (a *Agent) SetLocation(p world.Vec3) { a.Position = p }

// NeedLevels returns the agent's need values and caps for display.
func (a *Agent) NeedLevels() map[string]needs.Level {
	if s, ok := a.Needs.(interface{ Snapshot() map[string]needs.Level }); ok {
		return s.Snapshot()
	}
	out := make(map[string]needs.Level, needs.NumKinds)
	for _, k := range needs.Kinds() {
		out[k.String()] = needs.Level{Value: a.Needs.Value(k), Cap: a.Needs.Cap(k)}
	}
	return out
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s (#%d)", a.Name, a.ID)
}

// Phase is where an agent is in its decision loop.
type Phase uint8

const (
	PhaseIdle       Phase = iota // No interaction; cooling down or nothing available
	PhaseSeeking                 // Scoring candidates this tick
	PhaseTraveling               // Walking to a claimed interaction
	PhasePerforming              // Interaction active
)

var phaseNames = [...]string{"idle", "seeking", "traveling", "performing"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Claim is the interaction an agent has committed to and where it stands.
type Claim struct {
	Object      *interaction.Object
	Interaction interaction.Interaction
	Target      world.Point
}

// Decision is an agent's scheduler state. Current is nil when the agent has
// no interaction.
type Decision struct {
	Phase      Phase   `json:"phase"`
	Current    *Claim  `json:"-"`
	Performing bool    `json:"performing"`
	Rotating   bool    `json:"rotating"`
	Facing     float64 `json:"facing"` // Target yaw while Rotating
	Cooldown   float64 `json:"cooldown"`
}

// CurrentName returns the current interaction's name, or "".
func (d *Decision) CurrentName() string {
	if d.Current == nil {
		return ""
	}
	return d.Current.Interaction.Name()
}
