// Staffing: agents joining and leaving the office.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/mini-office/internal/agents"
)

// Hire spawns count new agents and adds them to the office.
func (s *Simulation) Hire(count int) ([]*agents.Agent, error) {
	if s.Spawner == nil {
		return nil, fmt.Errorf("hire: no spawner configured")
	}
	if count <= 0 {
		return nil, fmt.Errorf("hire: count must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hired := s.Spawner.SpawnPopulation(count, s.LastTick)
	for _, a := range hired {
		s.addAgent(a)
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("%s joins the office", a.Name),
			Category:    "staff",
			Meta:        map[string]any{"agent_id": a.ID},
		})
	}
	slog.Info("agents hired", "count", count, "population", len(s.Agents))
	return hired, nil
}

// Dismiss removes an agent. Any interaction it holds is cancelled so others
// can use it.
func (s *Simulation) Dismiss(id agents.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.AgentIndex[id]
	if !ok {
		return fmt.Errorf("agent %d not found", id)
	}
	s.Scheduler.Release(a)
	s.Nav.Stop(a)
	a.Alive = false
	s.removeAgent(a)

	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("%s leaves the office", a.Name),
		Category:    "staff",
		Meta:        map[string]any{"agent_id": a.ID},
	})
	return nil
}

// addAgent registers a new agent in all indexes.
func (s *Simulation) addAgent(a *agents.Agent) {
	s.Agents = append(s.Agents, a)
	s.AgentIndex[a.ID] = a
}

func (s *Simulation) removeAgent(a *agents.Agent) {
	delete(s.AgentIndex, a.ID)
	for i, o := range s.Agents {
		if o == a {
			s.Agents = append(s.Agents[:i], s.Agents[i+1:]...)
			break
		}
	}
}
