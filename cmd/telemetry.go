package cmd

import (
	"time"

	"remit-scout/config"

	"github.com/armon/go-metrics"
	"github.com/mitchellh/mapstructure"
)

// telemetryOptions mirrors config.Telemetry through mapstructure so dashed
// external keys decode onto it.
type telemetryOptions struct {
	ServiceName             string `mapstructure:"service-name"`
	Enabled                 bool   `mapstructure:"enabled"`
	PrometheusRetentionTime int64  `mapstructure:"prometheus-retention-time"`
}

// setupTelemetry installs the global in-memory metrics sink. Counters and
// timers emitted by the executor and aggregator are no-ops until this runs.
func setupTelemetry(cfg config.Telemetry) error {
	var opts telemetryOptions
	if err := mapstructure.Decode(cfg, &opts); err != nil {
		return err
	}
	if !opts.Enabled {
		return nil
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "remit-scout"
	}

	retention := 10 * time.Minute
	if opts.PrometheusRetentionTime > 0 {
		retention = time.Duration(opts.PrometheusRetentionTime) * time.Second
	}

	sink := metrics.NewInmemSink(10*time.Second, retention)
	metrics.DefaultInmemSignal(sink)
	_, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), sink)
	return err
}
