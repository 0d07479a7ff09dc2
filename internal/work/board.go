// Package work provides the shared work capacity gate: a board of projects
// whose progress bar is pushed forward by agents performing work interactions.
package work

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Gate reports whether work may be taken on and collects progress from workers.
type Gate interface {
	HasAvailableSlot() bool
	Acquire(performer uint64) bool
	Release(performer uint64)
	ReportProgress(magnitude, rate float64)
}

// Project is one job on the board. Progress runs 0..100.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Complexity  int       `json:"complexity"`
	Progress    float64   `json:"progress"`
	PostedTick  uint64    `json:"posted_tick"`
	FinishedAt  uint64    `json:"finished_tick,omitempty"`
	target      float64
	speed       float64
}

// BoardConfig controls the work board.
type BoardConfig struct {
	MaxWorkers int   // Concurrent workers allowed on the active project
	AutoPost   bool  // Generate a new project whenever the queue runs dry
	Seed       int64
}

// Board is the Gate implementation. It is safe for concurrent readers.
type Board struct {
	mu sync.Mutex

	cfg       BoardConfig
	rng       *rand.Rand
	active    *Project
	queue     []*Project
	completed []Project
	workers   map[uint64]struct{}
	posted    int
	tick      uint64

	// OnComplete is called (outside the lock) whenever a project finishes.
	OnComplete func(p Project)
}

var _ Gate = (*Board)(nil)

// NewBoard creates an empty board. With AutoPost the first project is posted
// immediately.
func NewBoard(cfg BoardConfig) *Board {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	b := &Board{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed + 500)),
		workers: make(map[uint64]struct{}),
	}
	if cfg.AutoPost {
		b.Post(b.generate())
	}
	return b
}

// Post queues a project, activating it if nothing is in progress.
func (b *Board) Post(p Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.post(p)
}

func (b *Board) post(p Project) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Complexity <= 0 {
		p.Complexity = 1
	}
	p.PostedTick = b.tick
	b.posted++
	proj := p
	if b.active == nil {
		b.active = &proj
		slog.Debug("project started", "project", proj.Name, "complexity", proj.Complexity)
		return
	}
	b.queue = append(b.queue, &proj)
}

// generate creates a random project. Names are ordinal placeholders;
// content generation is not this package's job.
func (b *Board) generate() Project {
	return Project{
		ID:         uuid.New(),
		Name:       fmt.Sprintf("%s project", humanize.Ordinal(b.posted+1)),
		Complexity: 1 + b.rng.Intn(3),
	}
}

// HasAvailableSlot returns true if there is an active project with room for
// another worker.
func (b *Board) HasAvailableSlot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil && len(b.workers) < b.cfg.MaxWorkers
}

// Acquire reserves a worker slot for performer. Re-acquiring is a no-op success.
func (b *Board) Acquire(performer uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.workers[performer]; ok {
		return true
	}
	if b.active == nil || len(b.workers) >= b.cfg.MaxWorkers {
		return false
	}
	b.workers[performer] = struct{}{}
	return true
}

// Release frees performer's slot. Releasing an unheld slot is a no-op.
func (b *Board) Release(performer uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.workers, performer)
}

// Workers returns the number of held slots.
func (b *Board) Workers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.workers)
}

// ReportProgress raises the active project's target by magnitude (scaled
// down by complexity) and sets how fast the bar chases it. Ignored when idle.
func (b *Board) ReportProgress(magnitude, rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.active
	if p == nil || magnitude <= 0 {
		return
	}
	p.target = min(100, max(p.target, p.Progress)+magnitude/float64(p.Complexity))
	if rate > 0 {
		p.speed = rate
	}
}

// Advance moves the progress bar toward its target and finishes the project
// once it reaches 100.
func (b *Board) Advance(dt float64) {
	b.mu.Lock()
	b.tick++
	p := b.active
	if p == nil || dt <= 0 {
		b.mu.Unlock()
		return
	}

	t := min(max(dt*p.speed, 0), 1)
	p.Progress += (p.target - p.Progress) * t
	p.Progress = min(max(p.Progress, 0), 100)
	// Lerp never lands exactly; snap the last sliver.
	if p.target >= 100 && 100-p.Progress < 1e-3 {
		p.Progress = 100
	}

	var done *Project
	if p.Progress >= 100 {
		p.FinishedAt = b.tick
		b.completed = append(b.completed, *p)
		done = p
		b.active = nil
		if len(b.queue) > 0 {
			b.active = b.queue[0]
			b.queue = b.queue[1:]
		} else if b.cfg.AutoPost {
			next := b.generate()
			b.post(next)
		}
	}
	cb := b.OnComplete
	b.mu.Unlock()

	if done != nil {
		slog.Info("project complete", "project", done.Name, "tick", done.FinishedAt)
		if cb != nil {
			cb(*done)
		}
	}
}

// Active returns a copy of the active project.
func (b *Board) Active() (Project, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return Project{}, false
	}
	return *b.active, true
}

// Queued returns copies of the queued projects.
func (b *Board) Queued() []Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Project, len(b.queue))
	for i, p := range b.queue {
		out[i] = *p
	}
	return out
}

// Completed returns copies of finished projects, oldest first.
func (b *Board) Completed() []Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Project(nil), b.completed...)
}

// Restore reinstates saved board state (used when loading from the database).
func (b *Board) Restore(active *Project, queued, completed []Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = nil
	b.queue = nil
	if active != nil {
		p := *active
		p.target = p.Progress
		b.active = &p
	}
	for _, q := range queued {
		p := q
		b.queue = append(b.queue, &p)
	}
	b.completed = append([]Project(nil), completed...)
	b.posted = len(completed) + len(queued)
	if active != nil {
		b.posted++
	}
}
