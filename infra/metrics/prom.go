package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
)

// PromSink records run events in Prometheus metrics.
type PromSink struct {
	trips       *prometheus.CounterVec
	wait        prometheus.Histogram
	tripTime    prometheus.Histogram
	refuels     *prometheus.CounterVec
	fleet       *prometheus.GaugeVec
	waiting     prometheus.Gauge
	transitions *prometheus.CounterVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	trips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_trips_total",
		Help: "Total number of delivered customers",
	}, []string{"taxi_id"})
	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "customer_wait_seconds",
		Help:    "Simulated time between registration and pickup",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	tripTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "customer_trip_seconds",
		Help:    "Simulated time between registration and delivery",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	refuels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_refuels_total",
		Help: "Total number of refuels",
	}, []string{"taxi_id"})
	fleet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_taxis",
		Help: "Number of taxis per state at the end of the last tick",
	}, []string{"state"})
	waiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "customers_waiting",
		Help: "Number of customers waiting for a taxi",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_state_transitions_total",
		Help: "Number of taxi state changes",
	}, []string{"from", "to"})

	var err error
	if trips, err = register(reg, trips); err != nil {
		return nil, err
	}
	if wait, err = register(reg, wait); err != nil {
		return nil, err
	}
	if tripTime, err = register(reg, tripTime); err != nil {
		return nil, err
	}
	if refuels, err = register(reg, refuels); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	if waiting, err = register(reg, waiting); err != nil {
		return nil, err
	}
	if transitions, err = register(reg, transitions); err != nil {
		return nil, err
	}
	return &PromSink{
		trips:       trips,
		wait:        wait,
		tripTime:    tripTime,
		refuels:     refuels,
		fleet:       fleet,
		waiting:     waiting,
		transitions: transitions,
	}, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTrips counts deliveries and observes trip durations.
func (s *PromSink) RecordTrips(res []coremetrics.TripResult) error {
	for _, r := range res {
		s.trips.WithLabelValues(r.TaxiID).Inc()
		s.tripTime.Observe(r.Trip.Seconds())
	}
	return nil
}

// RecordPickup observes the customer wait.
func (s *PromSink) RecordPickup(ev coremetrics.PickupEvent) error {
	s.wait.Observe(ev.Wait.Seconds())
	return nil
}

// RecordRefuel counts refuels per taxi.
func (s *PromSink) RecordRefuel(ev coremetrics.RefuelEvent) error {
	s.refuels.WithLabelValues(ev.TaxiID).Inc()
	return nil
}

// RecordFleetState sets the fleet gauges.
func (s *PromSink) RecordFleetState(ev coremetrics.FleetStateEvent) error {
	s.fleet.Reset()
	for st, n := range ev.States {
		s.fleet.WithLabelValues(st.String()).Set(float64(n))
	}
	s.waiting.Set(float64(ev.Waiting))
	return nil
}

// RecordStateTransition counts state changes.
func (s *PromSink) RecordStateTransition(ev coremetrics.StateTransitionEvent) error {
	s.transitions.WithLabelValues(ev.From.String(), ev.To.String()).Inc()
	return nil
}
