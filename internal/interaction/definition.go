package interaction

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

//go:embed office.json
var defaultOffice []byte

// Definition describes one smart object in a layout file.
type Definition struct {
	Name         string           `json:"name"`
	Position     world.Vec3       `json:"position"`
	Points       []world.Point    `json:"points,omitempty"`
	Interactions []InteractionDef `json:"interactions"`
}

// InteractionDef describes one interaction on an object.
type InteractionDef struct {
	Name     string      `json:"name"`
	Category string      `json:"category"` // "need" or "work"
	Duration float64     `json:"duration"` // Sim-seconds
	Output   float64     `json:"output,omitempty"`
	Effects  []EffectDef `json:"effects,omitempty"`
}

// EffectDef is an Effect with the need spelled out by name.
type EffectDef struct {
	Need  string  `json:"need"`
	Delta float64 `json:"delta"`
}

// LoadDefinitions decodes a JSON array of object definitions.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	var defs []Definition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	return defs, nil
}

// DefaultDefinitions returns the built-in office layout.
func DefaultDefinitions() ([]Definition, error) {
	return LoadDefinitions(bytes.NewReader(defaultOffice))
}

// Build constructs the object and its interactions. Work interactions are
// bound to gate. A bad interaction is left out and reported; the object is
// still returned while at least one of its interactions is usable.
func (d Definition) Build(gate work.Gate) (*Object, error) {
	obj := NewObject(d.Name, d.Position, d.Points...)
	var errs []error
	for _, idef := range d.Interactions {
		if err := buildInteraction(obj, idef, gate); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
	}
	if len(obj.interactions) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s offers no usable interactions", ErrInvalidDefinition, d.Name))
		return nil, errors.Join(errs...)
	}
	return obj, errors.Join(errs...)
}

func buildInteraction(obj *Object, idef InteractionDef, gate work.Gate) error {
	cat, err := ParseCategory(idef.Category)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, idef.Name, err)
	}
	effects := make([]Effect, 0, len(idef.Effects))
	for _, e := range idef.Effects {
		k, err := needs.ParseKind(e.Need)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, idef.Name, err)
		}
		effects = append(effects, Effect{Kind: k, Delta: e.Delta})
	}
	spec := Spec{Name: idef.Name, Duration: idef.Duration, Effects: effects}

	switch cat {
	case Work:
		_, err = NewWork(obj, spec, gate, idef.Output)
	default:
		_, err = NewNeed(obj, spec)
	}
	return err
}

// RegisterDefinitions builds and registers each definition on its own.
// A malformed interaction is skipped and reported; everything else still
// registers. It returns the number of objects registered.
func (c *Catalog) RegisterDefinitions(defs []Definition, gate work.Gate) (int, error) {
	var errs []error
	registered := 0
	for _, d := range defs {
		obj, err := d.Build(gate)
		if err != nil {
			errs = append(errs, err)
		}
		if obj == nil {
			continue
		}
		if err := c.Register(obj); err != nil {
			errs = append(errs, err)
			continue
		}
		registered++
	}
	return registered, errors.Join(errs...)
}
