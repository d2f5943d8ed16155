// Package trilateration estimates a receiver position constrained to the
// baseline between two anchors.
package trilateration

import (
	"ble-linepos/internal/models"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/spatial/r2"
)

// Line is a validated anchor baseline. The zero value is not usable; build
// one with NewLine.
type Line struct {
	a      r2.Vec
	b      r2.Vec
	delta  r2.Vec
	length float64
}

func NewLine(a, b models.Point2D) (*Line, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return nil, models.NewConfigurationError("anchors", "anchor positions %s and %s must be finite", a, b)
	}
	if err := models.CheckSeparation(a, b); err != nil {
		return nil, err
	}
	delta := r2.Sub(b.Vec(), a.Vec())
	length := r2.Norm(delta)
	return &Line{
		a:      a.Vec(),
		b:      b.Vec(),
		delta:  delta,
		length: length,
	}, nil
}

func (l *Line) Length() float64 {
	return l.length
}

// Solve returns the closed-form least-squares point on the segment for
// ranges d1 (to the first anchor) and d2 (to the second) together with its
// parameter t. The unclamped solution t* = (d1 - d2 + D) / 2D is clamped to
// [0, 1]; a receiver is never placed outside the anchors.
func (l *Line) Solve(d1, d2 decimal.Decimal) (models.Point2D, float64) {
	diff := d1.Sub(d2).InexactFloat64()
	tStar := (diff + l.length) / (2.0 * l.length)

	switch {
	case tStar <= 0:
		return models.PointFromVec(l.a), 0
	case tStar >= 1:
		return models.PointFromVec(l.b), 1
	}
	return models.PointFromVec(r2.Add(l.a, r2.Scale(tStar, l.delta))), tStar
}

// Estimate is the one-shot form of NewLine followed by Solve.
func Estimate(a, b models.Point2D, d1, d2 decimal.Decimal) (models.Point2D, error) {
	p, _, err := EstimateT(a, b, d1, d2)
	return p, err
}

func EstimateT(a, b models.Point2D, d1, d2 decimal.Decimal) (models.Point2D, float64, error) {
	line, err := NewLine(a, b)
	if err != nil {
		return models.Point2D{}, 0, err
	}
	p, t := line.Solve(d1, d2)
	return p, t, nil
}
