package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBoardHasNoSlot(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 2})
	assert.False(t, b.HasAvailableSlot())
	assert.False(t, b.Acquire(1))

	_, ok := b.Active()
	assert.False(t, ok)

	// Progress with nothing active is dropped.
	b.ReportProgress(50, 1)
	b.Advance(1)
}

func TestSlotsLimitConcurrentWorkers(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 2})
	b.Post(Project{Name: "Website", Complexity: 1})

	require.True(t, b.HasAvailableSlot())
	assert.True(t, b.Acquire(1))
	assert.True(t, b.Acquire(1), "re-acquire is idempotent")
	assert.True(t, b.Acquire(2))
	assert.False(t, b.HasAvailableSlot())
	assert.False(t, b.Acquire(3))
	assert.Equal(t, 2, b.Workers())

	b.Release(1)
	b.Release(1) // no-op
	assert.True(t, b.HasAvailableSlot())
	assert.Equal(t, 1, b.Workers())
}

func TestProgressLerpsTowardTarget(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 1})
	b.Post(Project{Name: "Report", Complexity: 2})

	b.ReportProgress(40, 0.5) // target 20
	b.Advance(1)
	p, _ := b.Active()
	assert.InDelta(t, 10, p.Progress, 1e-9)

	b.Advance(1)
	p, _ = b.Active()
	assert.InDelta(t, 15, p.Progress, 1e-9)

	// Reports from several workers stack on the target.
	b.ReportProgress(20, 1)
	b.ReportProgress(20, 1)
	b.Advance(1)
	p, _ = b.Active()
	assert.InDelta(t, 40, p.Progress, 1e-9)
}

func TestProjectCompletesAndQueueAdvances(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 1})
	var finished []Project
	b.OnComplete = func(p Project) { finished = append(finished, p) }

	b.Post(Project{Name: "Alpha", Complexity: 1})
	b.Post(Project{Name: "Beta", Complexity: 1})
	assert.Len(t, b.Queued(), 1)

	b.ReportProgress(150, 1)
	b.Advance(1)

	require.Len(t, finished, 1)
	assert.Equal(t, "Alpha", finished[0].Name)
	assert.Equal(t, 100.0, finished[0].Progress)

	p, ok := b.Active()
	require.True(t, ok)
	assert.Equal(t, "Beta", p.Name)
	assert.Empty(t, b.Queued())
	assert.Len(t, b.Completed(), 1)
}

func TestAutoPostKeepsBoardBusy(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 1, AutoPost: true, Seed: 9})

	first, ok := b.Active()
	require.True(t, ok)
	assert.Equal(t, "1st project", first.Name)
	assert.GreaterOrEqual(t, first.Complexity, 1)
	assert.LessOrEqual(t, first.Complexity, 3)

	b.ReportProgress(1000, 1)
	b.Advance(1)

	next, ok := b.Active()
	require.True(t, ok)
	assert.Equal(t, "2nd project", next.Name)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestRestore(t *testing.T) {
	b := NewBoard(BoardConfig{MaxWorkers: 1})
	active := Project{Name: "Saved", Complexity: 1, Progress: 40}
	b.Restore(&active, []Project{{Name: "Next", Complexity: 2}}, []Project{{Name: "Old", Progress: 100}})

	p, ok := b.Active()
	require.True(t, ok)
	assert.Equal(t, 40.0, p.Progress)

	// Target starts at the saved progress, so advancing alone changes nothing.
	b.Advance(1)
	p, _ = b.Active()
	assert.Equal(t, 40.0, p.Progress)
	assert.Len(t, b.Queued(), 1)
	assert.Len(t, b.Completed(), 1)
}
