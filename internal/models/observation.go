package models

import (
	"fmt"
	"time"
)

type Observation struct {
	AnchorID  AnchorID  `json:"anchor_id"`
	RSSI      int       `json:"rssi"`
	Timestamp time.Time `json:"timestamp"`
}

func (o *Observation) Validate() error {
	if o.AnchorID == "" {
		return fmt.Errorf("anchor_id is required")
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

func (o *Observation) ToInfluxTags() map[string]string {
	return map[string]string{
		"anchor_id": string(o.AnchorID),
	}
}

func (o *Observation) ToInfluxFields() map[string]interface{} {
	return map[string]interface{}{
		"rssi": o.RSSI,
	}
}
