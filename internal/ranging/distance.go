// Package ranging converts received signal strength into an estimated range
// using the log-distance path-loss model.
package ranging

import (
	"ble-linepos/internal/models"
	"github.com/shopspring/decimal"
	"math"
)

// Places is the number of decimal digits kept in an estimated range.
const Places = 2

// Estimate converts rssi (dBm) into a range in meters:
//
//	distance = 10 ^ ((ReferenceRSSI - rssi) / (10 * PathLossExponent))
//
// The result is rounded half-to-even to two decimals.
func Estimate(rssi int, cal models.CalibrationConfig) decimal.Decimal {
	exponent := (cal.ReferenceRSSI - float64(rssi)) / (10.0 * cal.PathLossExponent)
	return RoundDistance(math.Pow(10.0, exponent))
}

// RoundDistance rounds a raw range half-to-even on its shortest decimal
// representation, so 2.675 becomes 2.68 and 1.125 becomes 1.12.
// Non-finite or negative input saturates into [0, MaxFloat64].
func RoundDistance(raw float64) decimal.Decimal {
	switch {
	case math.IsNaN(raw) || raw < 0:
		raw = 0
	case math.IsInf(raw, 1):
		raw = math.MaxFloat64
	}
	return decimal.NewFromFloat(raw).RoundBank(Places)
}

// Estimator binds a calibration so that callers on the hot path do not have
// to carry it around.
type Estimator struct {
	calibration models.CalibrationConfig
}

func NewEstimator(cal models.CalibrationConfig) (*Estimator, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{calibration: cal}, nil
}

func (e *Estimator) Estimate(rssi int) decimal.Decimal {
	return Estimate(rssi, e.calibration)
}

func (e *Estimator) Calibration() models.CalibrationConfig {
	return e.calibration
}
