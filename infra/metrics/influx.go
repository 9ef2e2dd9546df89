package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/infra/logger"
)

// InfluxSink writes run events to an InfluxDB instance using the official client.
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
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
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

// RecordTrips writes one point per delivered customer.
func (s *InfluxSink) RecordTrips(res []coremetrics.TripResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range res {
		p := write.NewPointWithMeasurement("trip").
			AddTag("run_id", r.RunID).
			AddTag("taxi_id", r.TaxiID).
			AddTag("customer_id", r.CustomerID).
			AddField("pickup", r.Pickup).
			AddField("dropoff", r.Dropoff).
			AddField("wait_s", round3(r.Wait.Seconds())).
			AddField("trip_s", round3(r.Trip.Seconds())).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPickup writes a pickup point.
func (s *InfluxSink) RecordPickup(ev coremetrics.PickupEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pickup").
		AddTag("run_id", ev.RunID).
		AddTag("taxi_id", ev.TaxiID).
		AddTag("customer_id", ev.CustomerID).
		AddField("wait_s", round3(ev.Wait.Seconds())).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRefuel writes a refuel point.
func (s *InfluxSink) RecordRefuel(ev coremetrics.RefuelEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("refuel").
		AddTag("run_id", ev.RunID).
		AddTag("taxi_id", ev.TaxiID).
		AddTag("station_id", ev.StationID).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFleetState writes a fleet snapshot.
func (s *InfluxSink) RecordFleetState(ev coremetrics.FleetStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_state").
		AddTag("run_id", ev.RunID).
		AddField("waiting", ev.Waiting).
		AddField("in_transit", ev.InTransit).
		AddField("delivered", ev.Delivered)
	for _, st := range model.States() {
		p = p.AddField(strings.ToLower(st.String()), ev.States[st])
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordStepFailure writes a failed step.
func (s *InfluxSink) RecordStepFailure(ev coremetrics.StepFailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("step_failure").
		AddTag("run_id", ev.RunID).
		AddTag("taxi_id", ev.TaxiID).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
