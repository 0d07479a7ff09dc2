package interaction

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// Catalog is the registry agents choose interactions from. Iteration follows
// registration order, which is also the scheduler's tie-break order.
type Catalog struct {
	objects []*Object
	index   map[uuid.UUID]*Object
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[uuid.UUID]*Object)}
}

// Register adds obj. A rejected object leaves the catalog unchanged.
func (c *Catalog) Register(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("%w: nil object", ErrInvalidDefinition)
	}
	if obj.Name == "" {
		return fmt.Errorf("%w: object has no name", ErrInvalidDefinition)
	}
	if len(obj.interactions) == 0 {
		return fmt.Errorf("%w: %s offers no interactions", ErrInvalidDefinition, obj.Name)
	}
	if _, dup := c.index[obj.ID]; dup {
		return fmt.Errorf("%w: %s already registered", ErrInvalidDefinition, obj.Name)
	}
	for _, it := range obj.interactions {
		if it.Object() != obj {
			return fmt.Errorf("%w: %s: %s belongs to another object", ErrInvalidDefinition, obj.Name, it.Name())
		}
	}
	c.objects = append(c.objects, obj)
	c.index[obj.ID] = obj
	return nil
}

// Remove takes an object out of the world and the catalog.
func (c *Catalog) Remove(id uuid.UUID) bool {
	obj, ok := c.index[id]
	if !ok {
		return false
	}
	obj.Remove()
	delete(c.index, id)
	for i, o := range c.objects {
		if o == obj {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			break
		}
	}
	return true
}

// Object looks up a registered object.
func (c *Catalog) Object(id uuid.UUID) (*Object, bool) {
	obj, ok := c.index[id]
	return obj, ok
}

// Objects returns the registered objects in order.
func (c *Catalog) Objects() []*Object {
	return append([]*Object(nil), c.objects...)
}

// Len returns the number of registered objects.
func (c *Catalog) Len() int {
	return len(c.objects)
}

// Interaction finds an interaction by id.
func (c *Catalog) Interaction(id uuid.UUID) (Interaction, bool) {
	for _, it := range c.All() {
		if it.ID() == id {
			return it, true
		}
	}
	return nil, false
}

// All yields every interaction of every registered object. Each call walks
// the catalog afresh.
func (c *Catalog) All() iter.Seq2[*Object, Interaction] {
	return c.filter(func(Interaction) bool { return true })
}

// Work yields only work interactions.
func (c *Catalog) Work() iter.Seq2[*Object, Interaction] {
	return c.filter(func(it Interaction) bool { return it.Category() == Work })
}

func (c *Catalog) filter(keep func(Interaction) bool) iter.Seq2[*Object, Interaction] {
	return func(yield func(*Object, Interaction) bool) {
		for _, obj := range c.objects {
			if obj.Removed() {
				continue
			}
			for _, it := range obj.interactions {
				if !keep(it) {
					continue
				}
				if !yield(obj, it) {
					return
				}
			}
		}
	}
}
