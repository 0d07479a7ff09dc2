package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/work"
)

// RemoveObject takes a smart object out of the office by id or name. Agents
// holding one of its interactions notice on their next tick and choose again.
func (s *Simulation) RemoveObject(ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj := s.findObject(ref)
	if obj == nil {
		return "", fmt.Errorf("object %q not found", ref)
	}
	s.Catalog.Remove(obj.ID)

	desc := fmt.Sprintf("%s is taken out of service", obj.Name)
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: desc,
		Category:    "world",
		Meta:        map[string]any{"object": obj.ID.String()},
	})
	slog.Info("object removed", "object", obj.Name)
	return desc, nil
}

// AddObject builds and registers an object from a definition. Broken
// interactions are left off the object and noted in the description.
func (s *Simulation) AddObject(def interaction.Definition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, buildErr := def.Build(s.Board)
	if obj == nil {
		return "", buildErr
	}
	if err := s.Catalog.Register(obj); err != nil {
		return "", err
	}

	desc := fmt.Sprintf("A new %s is installed", obj.Name)
	if buildErr != nil {
		slog.Warn("object added with skipped interactions", "object", obj.Name, "error", buildErr)
		desc += fmt.Sprintf(" (%d of %d interactions usable)", len(obj.Interactions()), len(def.Interactions))
	}
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: desc,
		Category:    "world",
		Meta:        map[string]any{"object": obj.ID.String()},
	})
	slog.Info("object added", "object", obj.Name, "interactions", len(obj.Interactions()))
	return desc, nil
}

// PostProject puts a new project on the work board.
func (s *Simulation) PostProject(name string, complexity int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("project name required")
	}
	if complexity < 1 || complexity > 10 {
		return "", fmt.Errorf("complexity must be 1-10")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Board.Post(work.Project{Name: name, Complexity: complexity})
	desc := fmt.Sprintf("A client commissions %s", name)
	s.EmitEvent(Event{Tick: s.LastTick, Description: desc, Category: "work"})
	return desc, nil
}

func (s *Simulation) findObject(ref string) *interaction.Object {
	if id, err := uuid.Parse(ref); err == nil {
		if obj, ok := s.Catalog.Object(id); ok {
			return obj
		}
	}
	for _, obj := range s.Catalog.Objects() {
		if strings.EqualFold(obj.Name, ref) {
			return obj
		}
	}
	return nil
}
