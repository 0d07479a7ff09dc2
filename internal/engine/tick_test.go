package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepFiresLayers(t *testing.T) {
	e := NewEngine(1, time.Millisecond)
	var ticks, minutes, hours int
	var lastDT float64
	e.OnTick = func(_ uint64, dt float64) { ticks++; lastDT = dt }
	e.OnMinute = func(uint64) { minutes++ }
	e.OnHour = func(uint64) { hours++ }

	for range 3600 {
		e.Step()
	}
	assert.Equal(t, 3600, ticks)
	assert.Equal(t, 60, minutes)
	assert.Equal(t, 1, hours)
	assert.Equal(t, 1.0, lastDT)
	assert.Equal(t, uint64(3600), e.Tick)
}

func TestStepWithCoarseDelta(t *testing.T) {
	e := NewEngine(45, time.Millisecond)
	minutes := 0
	e.OnMinute = func(uint64) { minutes++ }

	for range 4 { // 180 sim-seconds
		e.Step()
	}
	assert.Equal(t, 3, minutes)
}

func TestRunStopsOnContext(t *testing.T) {
	e := NewEngine(1, time.Millisecond)
	e.SetSpeed(100)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	e.OnTick = func(tick uint64, _ float64) {
		if tick == 5 {
			cancel()
		}
	}
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, e.Tick, uint64(5))
	assert.False(t, e.Running())
}

func TestPausedEngineDoesNotTick(t *testing.T) {
	e := NewEngine(1, time.Millisecond)
	e.SetSpeed(0)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	e.Run(ctx)
	assert.Zero(t, e.Tick)
}

func TestSetSpeedClampsNegative(t *testing.T) {
	e := NewEngine(0, 0)
	e.SetSpeed(-3)
	assert.Equal(t, 0.0, e.Speed())
	assert.Equal(t, 1.0, e.Delta)
	assert.Equal(t, time.Second, e.Interval)
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Day 1, 00:00:00", SimTime(0))
	assert.Equal(t, "Day 1, 01:01:05", SimTime(3665))
	assert.Equal(t, "Day 3, 00:00:30", SimTime(2*SimDay+30))
}

func TestStopWithoutRun(t *testing.T) {
	e := NewEngine(1, time.Millisecond)
	require.NotPanics(t, e.Stop)
}
