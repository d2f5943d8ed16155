package models

import "math"

const (
	DefaultReferenceRSSI    = -34.0012
	DefaultPathLossExponent = 7.3275

	// Bounds of the signed 8-bit RSSI a BLE controller reports.
	MinRSSI = -128
	MaxRSSI = 127
)

// CalibrationConfig holds the log-distance path-loss parameters. ReferenceRSSI
// is the signal strength measured at one meter.
type CalibrationConfig struct {
	ReferenceRSSI    float64 `json:"reference_rssi"`
	PathLossExponent float64 `json:"path_loss_exponent"`
}

func DefaultCalibration() CalibrationConfig {
	return CalibrationConfig{
		ReferenceRSSI:    DefaultReferenceRSSI,
		PathLossExponent: DefaultPathLossExponent,
	}
}

func (c CalibrationConfig) Validate() error {
	if math.IsNaN(c.ReferenceRSSI) || math.IsInf(c.ReferenceRSSI, 0) {
		return NewConfigurationError("calibration.reference_rssi", "must be finite, got %g", c.ReferenceRSSI)
	}
	if c.ReferenceRSSI < MinRSSI || c.ReferenceRSSI > MaxRSSI {
		return NewConfigurationError("calibration.reference_rssi", "must be within [%d, %d] dBm, got %g", MinRSSI, MaxRSSI, c.ReferenceRSSI)
	}
	if math.IsNaN(c.PathLossExponent) || math.IsInf(c.PathLossExponent, 0) || c.PathLossExponent <= 0 {
		return NewConfigurationError("calibration.path_loss_exponent", "must be finite and greater than 0, got %g", c.PathLossExponent)
	}
	// Every reading in the RSSI range has to map to a representable, non-zero range.
	for _, rssi := range []float64{MinRSSI, MaxRSSI} {
		r := math.Pow(10.0, (c.ReferenceRSSI-rssi)/(10.0*c.PathLossExponent))
		if math.IsInf(r, 0) || math.IsNaN(r) || r == 0 {
			return NewConfigurationError("calibration.path_loss_exponent", "%g saturates the range for rssi %g dBm", c.PathLossExponent, rssi)
		}
	}
	return nil
}
