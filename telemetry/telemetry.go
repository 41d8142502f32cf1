// Package telemetry wires up stats reporting for a Session's operation
// latency (the only measure it records) so a host application
// can opt into observability without the SDK depending on any specific
// metrics backend.
package telemetry

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.viam.com/utils/perf"
)

// OperationLatencyMs measures the round-trip time of one transport
// call. Samples carry no tags, so every op feeds the same distribution.
var OperationLatencyMs = stats.Float64("slamdevice/operation_latency_ms", "operation round-trip latency", "ms")

var operationLatencyView = &view.View{
	Name:        "slamdevice/operation_latency_distribution",
	Measure:     OperationLatencyMs,
	Description: "distribution of SLAM device operation latencies",
	Aggregation: view.Distribution(0, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
}

// Init starts a development stats exporter and registers the SDK's
// views, returning the exporter so the caller can Stop it on shutdown.
func Init() (perf.Exporter, error) {
	if err := view.Register(operationLatencyView); err != nil {
		return nil, err
	}
	exporter := perf.NewDevelopmentExporterWithOptions(perf.DevelopmentExporterOptions{
		ReportingInterval: time.Second,
	})
	if err := exporter.Start(); err != nil {
		view.Unregister(operationLatencyView)
		return nil, err
	}
	return exporter, nil
}

// RecordLatency reports one operation's round-trip time.
func RecordLatency(d time.Duration) {
	stats.Record(context.Background(), OperationLatencyMs.M(float64(d.Microseconds())/1000))
}
