package influx

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"context"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

const (
	PositionMeasurement    = "position_estimate"
	ObservationMeasurement = "ble_observation"
)

// PointWriter is the subset of api.WriteAPI the writer needs.
type PointWriter interface {
	WritePoint(point *write.Point)
}

type PositionWriter struct {
	writeAPI PointWriter
	logger   zerolog.Logger
}

func NewPositionWriter(writeAPI PointWriter, logger zerolog.Logger) *PositionWriter {
	return &PositionWriter{
		writeAPI: writeAPI,
		logger:   logger,
	}
}

func (w *PositionWriter) Name() string {
	return "influx"
}

func (w *PositionWriter) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	point := influxdb2.NewPoint(
		PositionMeasurement,
		estimate.ToInfluxTags(sessionId),
		estimate.ToInfluxFields(),
		estimate.Timestamp,
	)

	w.writeAPI.WritePoint(point)

	w.logger.Debug().
		Str("session_id", sessionId).
		Float64("x", estimate.Point.X).
		Float64("y", estimate.Point.Y).
		Msg("Added position estimate to influxDB")

	return nil
}

func (w *PositionWriter) HandleObservation(ctx context.Context, observation models.Observation) error {
	point := influxdb2.NewPoint(
		ObservationMeasurement,
		observation.ToInfluxTags(),
		observation.ToInfluxFields(),
		observation.Timestamp,
	)

	w.writeAPI.WritePoint(point)
	return nil
}

var (
	_ interfaces.IEstimateSink    = (*PositionWriter)(nil)
	_ interfaces.IObservationSink = (*PositionWriter)(nil)
)
