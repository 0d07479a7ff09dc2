// Agent spawning: creates the office population with seeded needs, skills,
// and starting positions.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/world"
)

// SpawnConfig controls population generation.
type SpawnConfig struct {
	Seed           int64
	Needs          needs.StateConfig
	DriftAmplitude float64      // 0 gives plain linear decay
	Floor          *world.Floor // Spawn area; nil spawns at the origin
}

// Spawner creates agents for the simulation.
type Spawner struct {
	cfg    SpawnConfig
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner. The need configuration is validated
// up front so a bad config fails before any agent exists.
func NewSpawner(cfg SpawnConfig) (*Spawner, error) {
	if _, err := needs.NewState(cfg.Needs); err != nil {
		return nil, fmt.Errorf("spawner: %w", err)
	}
	return &Spawner{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed + 300)),
		nextID: 1,
	}, nil
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// SpawnPopulation creates count agents.
func (s *Spawner) SpawnPopulation(count int, tick uint64) []*Agent {
	out := make([]*Agent, 0, count)
	for range count {
		out = append(out, s.spawnOne(tick))
	}
	return out
}

func (s *Spawner) spawnOne(tick uint64) *Agent {
	id := s.nextID
	s.nextID++

	a := NewAgent(id, fmt.Sprintf("Worker %d", id), s.model(id))
	a.BornTick = tick
	a.Skill = s.weightedSkill()
	a.Position = s.spawnPoint()
	a.Yaw = s.rng.Float64() * 360

	// Needs: mostly met at start, with some spread so agents don't move in lockstep.
	for _, k := range needs.Kinds() {
		a.Needs.Update(k, -a.Needs.Cap(k)*s.rng.Float64()*0.4)
	}
	return a
}

// Restore rebuilds a saved agent with a fresh need model holding the saved levels.
func (s *Spawner) Restore(id AgentID, name string, levels map[string]needs.Level) *Agent {
	a := NewAgent(id, name, s.model(id))
	if r, ok := a.Needs.(interface{ Restore(map[string]needs.Level) }); ok {
		r.Restore(levels)
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return a
}

func (s *Spawner) model(id AgentID) needs.Model {
	st, err := needs.NewState(s.cfg.Needs)
	if err != nil {
		// Validated in NewSpawner.
		panic(err)
	}
	if s.cfg.DriftAmplitude <= 0 {
		return st
	}
	return needs.NewDrift(st, s.cfg.Seed+int64(id), s.cfg.DriftAmplitude)
}

// weightedSkill is a bell curve around 40, range 0–100.
func (s *Spawner) weightedSkill() float64 {
	return min(max(40+s.rng.NormFloat64()*20, 0), 100)
}

func (s *Spawner) spawnPoint() world.Vec3 {
	f := s.cfg.Floor
	if f == nil {
		return world.Vec3{}
	}
	return world.Vec3{
		X: (s.rng.Float64() - 0.5) * f.Width,
		Z: (s.rng.Float64() - 0.5) * f.Depth,
	}
}
