package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"fmt"
	"math"
	"strings"
)

const (
	AnchorSourceEnv      = "env"
	AnchorSourcePostgres = "postgres"

	DefaultAnchorAID = "2D:7E:1A:02:3D:21"
)

type AnchorsConfig interface {
	interfaces.Config
	ToAnchorConfig() models.AnchorConfig
}

type AnchorEntry struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

type AnchorsConfigImpl struct {
	Source string      `json:"source"`
	A      AnchorEntry `json:"a"`
	B      AnchorEntry `json:"b"`
}

func NewAnchorsConfig() AnchorsConfigImpl {
	config := AnchorsConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (A *AnchorsConfigImpl) Load() {
	A.Source = strings.ToLower(shared.GetEnv("ANCHOR_SOURCE"))
	A.A = loadAnchorEntry("ANCHOR_A", 0)
	A.B = loadAnchorEntry("ANCHOR_B", 4.5)
}

func loadAnchorEntry(prefix string, defaultX float64) AnchorEntry {
	return AnchorEntry{
		ID:    shared.GetEnv(prefix + "_ID"),
		X:     shared.GetEnvAsFloat(prefix+"_X", defaultX),
		Y:     shared.GetEnvAsFloat(prefix+"_Y", 0),
		Label: shared.GetEnv(prefix + "_LABEL"),
	}
}

func (A *AnchorsConfigImpl) SetDefaults() {
	if A.Source == "" {
		A.Source = AnchorSourceEnv
	}
	if A.A.ID == "" {
		A.A.ID = DefaultAnchorAID
	}
	if A.A.Label == "" {
		A.A.Label = "A"
	}
	if A.B.Label == "" {
		A.B.Label = "B"
	}
}

func (A *AnchorsConfigImpl) Validate() error {
	if A.Source != AnchorSourceEnv && A.Source != AnchorSourcePostgres {
		return shared.NewConfigError("anchors", "source", A.Source, "must be one of: env, postgres")
	}
	if A.A.ID == "" {
		return shared.NewConfigError("anchors", "a.id", nil, "ANCHOR_A_ID is required")
	}
	if A.B.ID == "" {
		return shared.NewConfigError("anchors", "b.id", nil, "ANCHOR_B_ID is required")
	}

	// coordinates come from the survey table when the source is postgres
	if A.Source == AnchorSourcePostgres {
		if models.NormalizeAnchorID(A.A.ID) == models.NormalizeAnchorID(A.B.ID) {
			return shared.NewConfigError("anchors", "b.id", A.B.ID, "anchor ids must differ")
		}
		return nil
	}

	for name, entry := range map[string]AnchorEntry{"a": A.A, "b": A.B} {
		if !isFinite(entry.X) || !isFinite(entry.Y) {
			return shared.NewConfigError("anchors", name, fmt.Sprintf("(%v, %v)", entry.X, entry.Y), "coordinates must be finite numbers")
		}
	}

	if err := A.ToAnchorConfig().Validate(); err != nil {
		return fmt.Errorf("anchors: %w", err)
	}
	return nil
}

func (A *AnchorsConfigImpl) IDs() [2]models.AnchorID {
	return [2]models.AnchorID{models.NormalizeAnchorID(A.A.ID), models.NormalizeAnchorID(A.B.ID)}
}

func (A *AnchorsConfigImpl) ToAnchorConfig() models.AnchorConfig {
	return models.AnchorConfig{
		{ID: models.NormalizeAnchorID(A.A.ID), Position: models.NewPoint(A.A.X, A.A.Y), Label: A.A.Label},
		{ID: models.NormalizeAnchorID(A.B.ID), Position: models.NewPoint(A.B.X, A.B.Y), Label: A.B.Label},
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var _ AnchorsConfig = (*AnchorsConfigImpl)(nil)
