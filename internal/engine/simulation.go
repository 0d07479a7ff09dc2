// Simulation ties together agents, interactions, navigation, and the work
// board and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/mini-office/internal/agents"
	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Simulation holds the complete office state and wires systems together.
// Tick methods take the write lock; readers use View.
type Simulation struct {
	mu sync.RWMutex

	Floor      *world.Floor
	Agents     []*agents.Agent
	AgentIndex map[agents.AgentID]*agents.Agent
	Catalog    *interaction.Catalog
	Board      *work.Board
	Nav        *world.Navigator
	Scheduler  *agents.Scheduler
	Spawner    *agents.Spawner
	Events     []Event // Recent events, trimmed daily
	EventSeq   uint64  // Seq of the most recent event
	LastTick   uint64  // Most recent tick processed
	Clock      float64 // Sim-seconds elapsed

	// Statistics refreshed every sim-minute.
	Stats SimStats

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Event is a notable occurrence in the office.
type Event struct {
	Seq         uint64         `json:"seq" db:"seq"` // Assigned by EmitEvent, increasing
	Tick        uint64         `json:"tick" db:"tick"`
	Description string         `json:"description" db:"description"`
	Category    string         `json:"category" db:"category"` // "interaction", "work", "staff", "world"
	Meta        map[string]any `json:"meta,omitempty" db:"-"`
}

// SimStats tracks aggregate office statistics.
type SimStats struct {
	Population     int                `json:"population"`
	Idle           int                `json:"idle"`
	Traveling      int                `json:"traveling"`
	Performing     int                `json:"performing"`
	NeedsFine      int                `json:"needs_fine"`
	AvgNeeds       map[string]float64 `json:"avg_needs"`
	Claims         int                `json:"claims"`
	Completions    int                `json:"completions"`
	Cancellations  int                `json:"cancellations"`
	AgentFaults    int                `json:"agent_faults"`
	ProjectsDone   int                `json:"projects_done"`
	ActiveProgress float64            `json:"active_progress"`
}

// NewSimulation creates a Simulation from its parts and wires the scheduler.
func NewSimulation(floor *world.Floor, ag []*agents.Agent, catalog *interaction.Catalog, board *work.Board, nav *world.Navigator, cfg agents.SchedulerConfig) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(ag))
	for _, a := range ag {
		index[a.ID] = a
	}

	sim := &Simulation{
		Floor:      floor,
		Agents:     ag,
		AgentIndex: index,
		Catalog:    catalog,
		Board:      board,
		Nav:        nav,
		subs:       make(map[int]chan Event),
	}
	sim.Scheduler = agents.NewScheduler(catalog, board, nav, cfg)
	sim.Scheduler.OnEvent = sim.onSchedulerEvent
	board.OnComplete = sim.onProjectComplete
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// View runs fn under the read lock. fn must not retain references past return.
func (s *Simulation) View(fn func(*Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// Update runs fn under the write lock.
func (s *Simulation) Update(fn func(*Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// TickSecond runs every tick: each agent's scheduler in order, then movement,
// then the work board.
func (s *Simulation) TickSecond(tick uint64, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.Clock += dt
	for _, a := range s.Agents {
		if !a.Alive {
			continue
		}
		s.tickAgent(a, dt)
	}
	s.Nav.Step(dt)
	s.Board.Advance(dt)
}

// tickAgent isolates a fault in one agent from the rest of the office.
func (s *Simulation) tickAgent(a *agents.Agent, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			s.Stats.AgentFaults++
			slog.Error("agent tick failed", "agent", a.Name, "panic", r)
			s.resetAgent(a)
		}
	}()
	s.Scheduler.Tick(a, dt)
}

// resetAgent drops a faulted agent's claim and decision state.
func (s *Simulation) resetAgent(a *agents.Agent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent release failed", "agent", a.Name, "panic", r)
		}
		a.Decision = agents.Decision{}
		s.Nav.Stop(a)
	}()
	s.Scheduler.Release(a)
}

// TickMinute runs every sim-minute: statistics.
func (s *Simulation) TickMinute(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateStats()
}

// TickHour runs every sim-hour: summary report.
func (s *Simulation) TickHour(tick uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slog.Info("hourly report",
		"tick", tick,
		"time", SimTime(s.Clock),
		"agents", s.Stats.Population,
		"performing", s.Stats.Performing,
		"traveling", s.Stats.Traveling,
		"needs_fine", s.Stats.NeedsFine,
		"completions", humanize.Comma(int64(s.Stats.Completions)),
		"cancellations", humanize.Comma(int64(s.Stats.Cancellations)),
		"projects_done", s.Stats.ProjectsDone,
		"progress", fmt.Sprintf("%.1f%%", s.Stats.ActiveProgress),
	)
}

// TickDay runs every sim-day: trims the event log.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("daily summary", "tick", tick, "time", SimTime(s.Clock), "events", len(s.Events))
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

func (s *Simulation) onSchedulerEvent(a *agents.Agent, kind agents.EventKind, it interaction.Interaction) {
	var desc string
	switch kind {
	case agents.EventClaimed:
		s.Stats.Claims++
		desc = fmt.Sprintf("%s heads to %s (%s)", a.Name, it.Name(), it.Object().Name)
	case agents.EventStarted:
		desc = fmt.Sprintf("%s starts %s", a.Name, it.Name())
	case agents.EventCompleted:
		s.Stats.Completions++
		desc = fmt.Sprintf("%s finishes %s", a.Name, it.Name())
	case agents.EventCancelled:
		s.Stats.Cancellations++
		desc = fmt.Sprintf("%s gives up on %s", a.Name, it.Name())
	}
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: desc,
		Category:    "interaction",
		Meta: map[string]any{
			"agent_id":    a.ID,
			"kind":        string(kind),
			"interaction": it.ID().String(),
			"category":    it.Category().String(),
		},
	})
}

func (s *Simulation) onProjectComplete(p work.Project) {
	s.Stats.ProjectsDone++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("The team ships the %s", p.Name),
		Category:    "work",
		Meta:        map[string]any{"project": p.ID.String()},
	})
}

// EmitEvent records an event and fans it out to subscribers. Callers hold
// the write lock.
func (s *Simulation) EmitEvent(e Event) {
	s.EventSeq++
	e.Seq = s.EventSeq
	s.Events = append(s.Events, e)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber; drop rather than stall the tick.
		}
	}
}

// Subscribe returns a channel receiving future events.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 64)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and forgets a subscription.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Simulation) updateStats() {
	st := SimStats{
		AvgNeeds:      make(map[string]float64),
		Claims:        s.Stats.Claims,
		Completions:   s.Stats.Completions,
		Cancellations: s.Stats.Cancellations,
		AgentFaults:   s.Stats.AgentFaults,
		ProjectsDone:  s.Stats.ProjectsDone,
	}

	for _, a := range s.Agents {
		if !a.Alive {
			continue
		}
		st.Population++
		switch a.Decision.Phase {
		case agents.PhaseTraveling:
			st.Traveling++
		case agents.PhasePerforming:
			st.Performing++
		default:
			st.Idle++
		}
		if a.Needs.IsAcceptable() {
			st.NeedsFine++
		}
		for name, l := range a.NeedLevels() {
			st.AvgNeeds[name] += l.Value
		}
	}
	if st.Population > 0 {
		for name := range st.AvgNeeds {
			st.AvgNeeds[name] /= float64(st.Population)
		}
	}
	if p, ok := s.Board.Active(); ok {
		st.ActiveProgress = p.Progress
	}
	s.Stats = st
}
