package world

import "fmt"

// Floor bounds the walkable office area on the X/Z plane, centred on the origin.
type Floor struct {
	Width float64 `json:"width"` // X extent
	Depth float64 `json:"depth"` // Z extent
}

// NewFloor creates a floor of the given extent.
func NewFloor(width, depth float64) *Floor {
	return &Floor{Width: width, Depth: depth}
}

// InBounds returns true if p lies on the floor.
func (f *Floor) InBounds(p Vec3) bool {
	hw, hd := f.Width/2, f.Depth/2
	return p.X >= -hw && p.X <= hw && p.Z >= -hd && p.Z <= hd
}

// Clamp pulls p back onto the floor.
func (f *Floor) Clamp(p Vec3) Vec3 {
	hw, hd := f.Width/2, f.Depth/2
	p.X = min(max(p.X, -hw), hw)
	p.Z = min(max(p.Z, -hd), hd)
	return p
}

// String returns a summary of the floor.
func (f *Floor) String() string {
	return fmt.Sprintf("Floor(%.0fx%.0f)", f.Width, f.Depth)
}
