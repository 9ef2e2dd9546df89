package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	stepLatency     prometheus.Histogram
	pickupsTotal    prometheus.Counter
	deliveriesTotal prometheus.Counter
	refuelsTotal    prometheus.Counter
	stepFailures    prometheus.Counter
	taxisByState    *prometheus.GaugeVec
	customersByLeg  *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.GaugeVec, *prometheus.GaugeVec) {
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_step_latency_seconds",
			Help:    "Time spent stepping one taxi",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	pick := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_pickups_total",
			Help: "Number of customers picked up",
		},
	)
	del := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_deliveries_total",
			Help: "Number of customers delivered",
		},
	)
	ref := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_refuels_total",
			Help: "Number of refuels at gas stations",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_step_failures_total",
			Help: "Number of agent steps that failed or panicked",
		},
	)
	taxis := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_taxis",
			Help: "Number of taxis per dispatch state",
		},
		[]string{"state"},
	)
	cust := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_customers",
			Help: "Number of customers per ledger set",
		},
		[]string{"set"},
	)
	return lat, pick, del, ref, fail, taxis, cust
}

func init() {
	stepLatency, pickupsTotal, deliveriesTotal, refuelsTotal, stepFailures, taxisByState, customersByLeg = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(stepLatency, pickupsTotal, deliveriesTotal, refuelsTotal, stepFailures, taxisByState, customersByLeg)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	stepLatency, pickupsTotal, deliveriesTotal, refuelsTotal, stepFailures, taxisByState, customersByLeg = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
