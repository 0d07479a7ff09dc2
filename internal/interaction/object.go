package interaction

import (
	"github.com/google/uuid"

	"github.com/talgya/mini-office/internal/world"
)

// Object is a smart object placed in the world. It owns its interactions and
// the points performers stand at while using them.
type Object struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Position world.Vec3    `json:"position"`
	Points   []world.Point `json:"points"`

	interactions []Interaction
	removed      bool
}

// NewObject creates an object at pos. With no points, performers use pos.
func NewObject(name string, pos world.Vec3, points ...world.Point) *Object {
	return &Object{
		ID:       uuid.New(),
		Name:     name,
		Position: pos,
		Points:   points,
	}
}

func (o *Object) add(it Interaction) {
	o.interactions = append(o.interactions, it)
}

// Interactions returns the object's interactions in declaration order.
func (o *Object) Interactions() []Interaction {
	return append([]Interaction(nil), o.interactions...)
}

// Work reports whether the object offers any work interaction.
func (o *Object) Work() bool {
	for _, it := range o.interactions {
		if it.Category() == Work {
			return true
		}
	}
	return false
}

// PointFor returns the point assigned to performer. Different performers are
// spread over the object's points.
func (o *Object) PointFor(performer uint64) world.Point {
	if len(o.Points) == 0 {
		return world.Point{Position: o.Position}
	}
	return o.Points[performer%uint64(len(o.Points))]
}

// Remove takes the object out of the world. Its interactions become invalid
// and lose their claims at once, so work slots free up immediately; claimants
// find out on their next tick.
func (o *Object) Remove() {
	o.removed = true
	for _, it := range o.interactions {
		it.Invalidate()
		it.Cancel()
	}
}

// Removed reports whether Remove has been called.
func (o *Object) Removed() bool {
	return o.removed
}
