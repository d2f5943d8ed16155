package influx

import (
	"ble-linepos/internal/config/components"
	"context"
	"fmt"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"time"
)

type InfluxDB struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	config   components.InfluxConfigImpl
	logger   zerolog.Logger
	done     chan struct{}
}

func NewConnection(ctx context.Context, cfg components.InfluxConfigImpl, logger zerolog.Logger) (*InfluxDB, error) {
	options := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(cfg.FlushIntervalMs())
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to InfluxDB: %w", err)
	}

	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB health check failed: %s", health.Status)
	}

	influxDB := &InfluxDB{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go influxDB.logWriteErrors()

	return influxDB, nil
}

// logWriteErrors drains the asynchronous error channel of the write API.
func (i *InfluxDB) logWriteErrors() {
	errs := i.writeAPI.Errors()
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			i.logger.Error().Err(err).Str("bucket", i.config.Bucket).Msg("InfluxDB write failed")
		case <-i.done:
			return
		}
	}
}

func (i *InfluxDB) GetWriteAPI() api.WriteAPI {
	return i.writeAPI
}

func (i *InfluxDB) Close() {
	i.writeAPI.Flush()
	close(i.done)
	i.client.Close()
}
