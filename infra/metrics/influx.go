package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	coremetrics "github.com/dserban/dern/core/metrics"
	"github.com/dserban/dern/infra/logger"
)

// InfluxSink writes state-change events to an InfluxDB instance using the
// official client.
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

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
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

// RecordIncident writes the incident snapshot as a point.
func (s *InfluxSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := influxdb2.NewPoint("incident",
		map[string]string{
			"incident_id": ev.Incident.ID,
			"type":        ev.Incident.Type,
			"status":      string(ev.Incident.Status),
		},
		map[string]any{
			"lat":      ev.Incident.Lat,
			"lon":      ev.Incident.Lon,
			"severity": ev.Incident.Severity,
		},
		ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordUnit writes the unit snapshot as a point.
func (s *InfluxSink) RecordUnit(ev coremetrics.UnitEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fields := map[string]any{
		"lat":       ev.Unit.Lat,
		"lon":       ev.Unit.Lon,
		"speed_kmh": ev.Unit.SpeedKmh,
	}
	if ev.Unit.ETA != nil {
		fields["eta_seconds"] = ev.Unit.ETA.Sub(ev.Time).Seconds()
	}
	p := influxdb2.NewPoint("unit",
		map[string]string{
			"unit_id": ev.Unit.ID,
			"status":  string(ev.Unit.Status),
		},
		fields,
		ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordClosure writes the closure creation as a point.
func (s *InfluxSink) RecordClosure(ev coremetrics.ClosureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := influxdb2.NewPoint("closure",
		map[string]string{"incident_id": ev.Closure.IncidentID},
		map[string]any{"summary": ev.Closure.Summary},
		ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
