// Package world provides the office floor geometry and the straight-line
// navigator agents use to reach interaction points.
package world

import (
	"fmt"
	"math"
)

// Vec3 is a position on the office floor. Y is height and is carried through
// unchanged by navigation.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{v.X * k, v.Y * k, v.Z * k}
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Length()
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Point is a place where a performer stands to use an interaction.
// Yaw is in degrees; HasYaw reports whether the performer should turn to face it.
type Point struct {
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`
	HasYaw   bool    `json:"has_yaw"`
}

// NormalizeYaw maps an angle in degrees into [0, 360).
func NormalizeYaw(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// RotateTowards turns from toward to by at most maxStep degrees, taking the
// shorter way round. Once within maxStep it returns to exactly.
func RotateTowards(from, to, maxStep float64) float64 {
	from = NormalizeYaw(from)
	to = NormalizeYaw(to)
	delta := to - from
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	if math.Abs(delta) <= maxStep {
		return to
	}
	if delta > 0 {
		return NormalizeYaw(from + maxStep)
	}
	return NormalizeYaw(from - maxStep)
}
