package session

import (
	"ble-linepos/internal/models"
	"ble-linepos/internal/ranging"
	"ble-linepos/internal/store"
	"context"
	"github.com/rs/zerolog"
	"sort"
	"time"
)

// AnchorStatus is one row of the diagnostics report: every device the store
// has heard from, plus required anchors that have not been seen yet.
type AnchorStatus struct {
	ID       models.AnchorID `json:"id"`
	Label    string          `json:"label,omitempty"`
	Required bool            `json:"required"`
	Seen     bool            `json:"seen"`
	RSSI     int             `json:"rssi"`
	Distance string          `json:"distance"`
	Age      time.Duration   `json:"age_ns"`
}

type Diagnostics struct {
	store   *store.ObservationStore
	anchors models.AnchorConfig
	cal     models.CalibrationConfig
	now     func() time.Time
}

func NewDiagnostics(st *store.ObservationStore, anchors models.AnchorConfig, cal models.CalibrationConfig) *Diagnostics {
	return &Diagnostics{
		store:   st,
		anchors: anchors,
		cal:     cal,
		now:     time.Now,
	}
}

// Report lists required anchors first, in configuration order, then every
// other device sorted by id.
func (d *Diagnostics) Report() []AnchorStatus {
	now := d.now()
	seen := make(map[models.AnchorID]models.Observation)
	for _, o := range d.store.Snapshot() {
		seen[o.AnchorID] = o
	}

	report := make([]AnchorStatus, 0, len(seen)+len(d.anchors))
	for _, anchor := range d.anchors {
		status := AnchorStatus{ID: anchor.ID, Label: anchor.Label, Required: true}
		if o, ok := seen[anchor.ID]; ok {
			d.fill(&status, o, now)
			delete(seen, anchor.ID)
		}
		report = append(report, status)
	}

	others := make([]AnchorStatus, 0, len(seen))
	for _, o := range seen {
		status := AnchorStatus{ID: o.AnchorID}
		d.fill(&status, o, now)
		others = append(others, status)
	}
	sort.Slice(others, func(i, j int) bool { return others[i].ID < others[j].ID })

	return append(report, others...)
}

func (d *Diagnostics) fill(status *AnchorStatus, o models.Observation, now time.Time) {
	status.Seen = true
	status.RSSI = o.RSSI
	status.Distance = ranging.Estimate(o.RSSI, d.cal).StringFixed(ranging.Places)
	status.Age = now.Sub(o.Timestamp)
}

// Run logs the report every interval until ctx is done.
func (d *Diagnostics) Run(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Log(logger)
		}
	}
}

func (d *Diagnostics) Log(logger zerolog.Logger) {
	for _, status := range d.Report() {
		event := logger.Info().
			Str("anchor_id", status.ID.String()).
			Bool("required", status.Required).
			Bool("seen", status.Seen)
		if status.Seen {
			event = event.
				Int("rssi", status.RSSI).
				Str("distance", status.Distance).
				Dur("age", status.Age)
		}
		event.Msg("Device status")
	}
}
