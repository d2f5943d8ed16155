package models

import (
	"github.com/shopspring/decimal"
	"time"
)

type PositionEstimate struct {
	Point     Point2D            `json:"point"`
	T         float64            `json:"t"`
	Timestamp time.Time          `json:"timestamp"`
	Anchors   [2]AnchorID        `json:"anchors"`
	Ranges    [2]decimal.Decimal `json:"ranges"`
}

// Equal compares estimates by value. Decimal ranges are compared numerically.
func (e PositionEstimate) Equal(other PositionEstimate) bool {
	return e.Point == other.Point &&
		e.T == other.T &&
		e.Timestamp.Equal(other.Timestamp) &&
		e.Anchors == other.Anchors &&
		e.Ranges[0].Equal(other.Ranges[0]) &&
		e.Ranges[1].Equal(other.Ranges[1])
}

// PositionDto is the display form of an estimate: coordinates and ranges
// rounded half-even to two decimals.
type PositionDto struct {
	SessionID string    `json:"session_id,omitempty"`
	X         string    `json:"x"`
	Y         string    `json:"y"`
	T         string    `json:"t"`
	AnchorA   string    `json:"anchor_a"`
	AnchorB   string    `json:"anchor_b"`
	RangeA    string    `json:"range_a"`
	RangeB    string    `json:"range_b"`
	Timestamp time.Time `json:"timestamp"`
}

func (e PositionEstimate) ToDto(sessionID string) PositionDto {
	return PositionDto{
		SessionID: sessionID,
		X:         roundHalfEven(e.Point.X),
		Y:         roundHalfEven(e.Point.Y),
		T:         decimal.NewFromFloat(e.T).RoundBank(4).StringFixed(4),
		AnchorA:   string(e.Anchors[0]),
		AnchorB:   string(e.Anchors[1]),
		RangeA:    e.Ranges[0].StringFixed(2),
		RangeB:    e.Ranges[1].StringFixed(2),
		Timestamp: e.Timestamp,
	}
}

func (e PositionEstimate) ToInfluxTags(sessionID string) map[string]string {
	return map[string]string{
		"session_id": sessionID,
		"anchor_a":   string(e.Anchors[0]),
		"anchor_b":   string(e.Anchors[1]),
	}
}

func (e PositionEstimate) ToInfluxFields() map[string]interface{} {
	return map[string]interface{}{
		"x":       e.Point.X,
		"y":       e.Point.Y,
		"t":       e.T,
		"range_a": e.Ranges[0].InexactFloat64(),
		"range_b": e.Ranges[1].InexactFloat64(),
	}
}

func roundHalfEven(v float64) string {
	return decimal.NewFromFloat(v).RoundBank(2).StringFixed(2)
}
