package messages

import (
	"ble-linepos/internal/models"
	"fmt"
	"time"
)

// ObservationMessage is published by a scanner on <base>/v1/observations/<address>.
type ObservationMessage struct {
	Data   ObservationDto `json:"data"`
	Source string         `json:"source"`
}

type ObservationDto struct {
	Address   string    `json:"address"`
	RSSI      *int      `json:"rssi"`
	Timestamp time.Time `json:"timestamp"`
}

func (o *ObservationDto) Validate() error {
	if o.Address == "" {
		return fmt.Errorf("address is required")
	}
	if o.RSSI == nil {
		return fmt.Errorf("rssi is required")
	}
	return nil
}

func (o *ObservationDto) ToModel() models.Observation {
	return models.Observation{
		AnchorID:  models.NormalizeAnchorID(o.Address),
		RSSI:      *o.RSSI,
		Timestamp: o.Timestamp,
	}
}

func (om *ObservationMessage) Validate() error {
	return om.Data.Validate()
}
