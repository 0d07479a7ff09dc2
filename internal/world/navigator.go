package world

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnreachable is returned by MoveTo for a destination off the floor.
var ErrUnreachable = errors.New("destination unreachable")

// Mover is anything the navigator can walk across the floor.
type Mover interface {
	Location() Vec3
	SetLocation(Vec3)
}

// Navigator walks movers in a straight line toward their destinations.
// Pathfinding proper is out of scope; callers poll distance themselves.
type Navigator struct {
	Speed float64 // Units per sim-second
	Floor *Floor  // Optional bounds

	mu    sync.Mutex
	dests map[Mover]Vec3
	order []Mover // Insertion order keeps Step deterministic
}

// NewNavigator creates a navigator moving at speed units per sim-second.
func NewNavigator(speed float64, floor *Floor) *Navigator {
	return &Navigator{
		Speed: speed,
		Floor: floor,
		dests: make(map[Mover]Vec3),
	}
}

// MoveTo sets m's destination, replacing any previous one. A destination
// off the floor is refused and m keeps whatever it was doing.
func (n *Navigator) MoveTo(m Mover, dest Vec3) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Floor != nil && !n.Floor.InBounds(dest) {
		return fmt.Errorf("%w: %s outside %s", ErrUnreachable, dest, n.Floor)
	}
	if _, ok := n.dests[m]; !ok {
		n.order = append(n.order, m)
	}
	n.dests[m] = dest
	return nil
}

// Stop clears m's destination.
func (n *Navigator) Stop(m Mover) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.remove(m)
}

// Destination returns m's current destination, if any.
func (n *Navigator) Destination(m Mover) (Vec3, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	d, ok := n.dests[m]
	return d, ok
}

// Step advances every mover by Speed*dt toward its destination.
// Movers that arrive are snapped onto the destination and forgotten.
func (n *Navigator) Step(dt float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	step := n.Speed * dt
	var arrived []Mover
	for _, m := range n.order {
		dest := n.dests[m]
		pos := m.Location()
		diff := dest.Sub(pos)
		dist := diff.Length()
		if dist <= step {
			m.SetLocation(dest)
			arrived = append(arrived, m)
			continue
		}
		m.SetLocation(pos.Add(diff.Scale(step / dist)))
	}
	for _, m := range arrived {
		n.remove(m)
	}
}

func (n *Navigator) remove(m Mover) {
	if _, ok := n.dests[m]; !ok {
		return
	}
	delete(n.dests, m)
	for i, o := range n.order {
		if o == m {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}
