package models

import (
	"fmt"
	"gonum.org/v1/gonum/spatial/r2"
	"math"
)

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

func PointFromVec(v r2.Vec) Point2D {
	return Point2D{X: v.X, Y: v.Y}
}

func (p Point2D) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// DistanceTo returns the Euclidean distance between p and other.
func (p Point2D) DistanceTo(other Point2D) float64 {
	return r2.Norm(r2.Sub(other.Vec(), p.Vec()))
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}
