package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/gridopt/stochuc/core/metrics"
	"github.com/gridopt/stochuc/infra/logger"
)

// InfluxSink writes solver statistics to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordIteration writes the iteration's bounds as a line protocol point.
func (s *InfluxSink) RecordIteration(stat coremetrics.IterationStat) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("lshaped_iteration").
		AddTag("run_id", stat.RunID).
		AddTag("price", strconv.FormatFloat(stat.RealTimePrice, 'f', 4, 64)).
		AddField("iteration", stat.Iteration).
		AddField("upper_bound", stat.Upper).
		AddField("lower_bound", stat.Lower).
		AddField("gap", stat.Gap).
		AddField("cuts", stat.Cuts).
		AddField("scenarios", stat.Scenarios).
		SetTime(stat.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the finished run as a line protocol point.
func (s *InfluxSink) RecordRun(stat coremetrics.RunStat) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("lshaped_run").
		AddTag("run_id", stat.RunID).
		AddTag("price", strconv.FormatFloat(stat.RealTimePrice, 'f', 4, 64)).
		AddTag("converged", strconv.FormatBool(stat.Converged)).
		AddField("iterations", stat.Iterations).
		AddField("objective", stat.Objective).
		AddField("scenarios", stat.Scenarios).
		AddField("duration_seconds", stat.Duration.Seconds()).
		SetTime(stat.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() { s.client.Close() }
