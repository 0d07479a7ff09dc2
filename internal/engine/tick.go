// Package engine provides the fixed-rate simulation loop and the Simulation
// that ties agents, interactions, navigation, and the work board together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Sim-time cadences, in sim-seconds.
const (
	SimMinute = 60.0
	SimHour   = 3600.0
	SimDay    = 86400.0
)

// Engine drives the simulation forward at a fixed rate.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Delta    float64       // Sim-seconds advanced per tick
	Interval time.Duration // Wall time per tick at speed 1

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running bool
	stop    chan struct{}

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64, dt float64) // Every tick
	OnMinute func(tick uint64)             // Every sim-minute
	OnHour   func(tick uint64)             // Every sim-hour
	OnDay    func(tick uint64)             // Every sim-day
}

// NewEngine creates an engine advancing delta sim-seconds every interval.
func NewEngine(delta float64, interval time.Duration) *Engine {
	if delta <= 0 {
		delta = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{
		Delta:    delta,
		Interval: interval,
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = max(speed, 0)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "delta", e.Delta)
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		slog.Info("simulation engine stopped", "tick", e.Tick)
	}()

	for {
		speed := e.Speed()
		wait := 100 * time.Millisecond // Paused: check again shortly
		if speed > 0 {
			start := time.Now()
			e.Step()
			target := time.Duration(float64(e.Interval) / speed)
			wait = max(target-time.Since(start), 0)
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++

	// Every tick: agent decisions, movement, work progress.
	if e.OnTick != nil {
		e.OnTick(e.Tick, e.Delta)
	}

	if e.OnMinute != nil && e.crossed(SimMinute) {
		e.OnMinute(e.Tick)
	}
	if e.OnHour != nil && e.crossed(SimHour) {
		e.OnHour(e.Tick)
	}
	if e.OnDay != nil && e.crossed(SimDay) {
		e.OnDay(e.Tick)
	}
}

// crossed reports whether this tick stepped over a multiple of period.
func (e *Engine) crossed(period float64) bool {
	now := float64(e.Tick) * e.Delta
	prev := now - e.Delta
	return math.Floor(now/period) > math.Floor(prev/period)
}

// SimTime returns a human-readable simulation time from elapsed sim-seconds.
func SimTime(seconds float64) string {
	total := uint64(seconds)
	secs := total % 60
	minutes := (total / 60) % 60
	hours := (total / 3600) % 24
	days := total/86400 + 1
	return fmt.Sprintf("Day %d, %02d:%02d:%02d", days, hours, minutes, secs)
}
