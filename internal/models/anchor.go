package models

import (
	"math"
	"strings"
	"time"
)

// CoincidenceEpsilon is the minimum separation two anchors must exceed.
const CoincidenceEpsilon = 1e-9

type AnchorID string

// NormalizeAnchorID upper-cases and trims a hardware address so that the
// same anchor reported in different casing maps to a single key.
func NormalizeAnchorID(raw string) AnchorID {
	return AnchorID(strings.ToUpper(strings.TrimSpace(raw)))
}

func (id AnchorID) String() string {
	return string(id)
}

type Anchor struct {
	ID       AnchorID `json:"id"`
	Position Point2D  `json:"position"`
	Label    string   `json:"label,omitempty"`
}

// AnchorConfig is the ordered pair of required anchors. The first entry is
// t=0 on the baseline, the second t=1.
type AnchorConfig []Anchor

func (c AnchorConfig) Validate() error {
	if len(c) != 2 {
		return NewConfigurationError("anchors", "exactly two anchors are required, got %d", len(c))
	}
	for i, a := range c {
		if a.ID == "" {
			return NewConfigurationError("anchors", "anchor %d has no id", i)
		}
	}
	if c[0].ID == c[1].ID {
		return NewConfigurationError("anchors", "anchor id %s is duplicated", c[0].ID)
	}
	for _, a := range c {
		if !a.Position.IsFinite() {
			return NewConfigurationError("anchors", "anchor %s position %s is not finite", a.ID, a.Position)
		}
	}
	return CheckSeparation(c[0].Position, c[1].Position)
}

// CheckSeparation rejects a baseline that is shorter than CoincidenceEpsilon
// or too long to represent.
func CheckSeparation(a, b Point2D) error {
	sep := a.DistanceTo(b)
	if !(sep > CoincidenceEpsilon) {
		return NewConfigurationError("anchors", "anchors %s and %s are coincident (separation %g)", a, b, sep)
	}
	if math.IsInf(sep, 0) {
		return NewConfigurationError("anchors", "separation between %s and %s overflows", a, b)
	}
	return nil
}

func (c AnchorConfig) IDs() [2]AnchorID {
	return [2]AnchorID{c[0].ID, c[1].ID}
}

// Contains reports whether id is one of the required anchors.
func (c AnchorConfig) Contains(id AnchorID) bool {
	for _, a := range c {
		if a.ID == id {
			return true
		}
	}
	return false
}

// AnchorRecord is the surveyed anchor row persisted in Postgres.
type AnchorRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	MacAddress string     `gorm:"uniqueIndex;not null" json:"mac_address"`
	Label      string     `json:"label"`
	X          float64    `gorm:"not null" json:"x"`
	Y          float64    `gorm:"not null" json:"y"`
}

func (AnchorRecord) TableName() string {
	return "anchors"
}

func (r *AnchorRecord) ToAnchor() Anchor {
	return Anchor{
		ID:       NormalizeAnchorID(r.MacAddress),
		Position: NewPoint(r.X, r.Y),
		Label:    r.Label,
	}
}

func AnchorRecordFromAnchor(a Anchor) *AnchorRecord {
	return &AnchorRecord{
		MacAddress: string(a.ID),
		Label:      a.Label,
		X:          a.Position.X,
		Y:          a.Position.Y,
	}
}
