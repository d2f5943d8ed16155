package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"fmt"
)

type CalibrationConfig interface {
	interfaces.Config
	ToCalibration() models.CalibrationConfig
}

type CalibrationConfigImpl struct {
	ReferenceRSSI    float64 `json:"reference_rssi"`
	PathLossExponent float64 `json:"path_loss_exponent"`
}

func NewCalibrationConfig() CalibrationConfigImpl {
	config := CalibrationConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (C *CalibrationConfigImpl) Load() {
	C.ReferenceRSSI = shared.GetEnvAsFloat("CALIBRATION_REFERENCE_RSSI", models.DefaultReferenceRSSI)
	C.PathLossExponent = shared.GetEnvAsFloat("CALIBRATION_PATH_LOSS_EXPONENT", models.DefaultPathLossExponent)
}

// SetDefaults is a no-op: zero is a legal reference RSSI, so defaults are
// applied while loading.
func (C *CalibrationConfigImpl) SetDefaults() {}

func (C *CalibrationConfigImpl) Validate() error {
	if err := C.ToCalibration().Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

func (C CalibrationConfigImpl) ToCalibration() models.CalibrationConfig {
	return models.CalibrationConfig{
		ReferenceRSSI:    C.ReferenceRSSI,
		PathLossExponent: C.PathLossExponent,
	}
}

var _ CalibrationConfig = (*CalibrationConfigImpl)(nil)
