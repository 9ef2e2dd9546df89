// Package stats records customer timestamps and taxi counters during a run
// and derives summary figures at the end.
package stats

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// CustomerRecord holds the timestamps of one customer. Nil fields were never
// reached.
type CustomerRecord struct {
	ID           string         `json:"id"`
	RegisteredAt time.Duration  `json:"registered_at"`
	PickedUpAt   *time.Duration `json:"picked_up_at,omitempty"`
	DeliveredAt  *time.Duration `json:"delivered_at,omitempty"`
	PickedUpBy   string         `json:"picked_up_by,omitempty"`
}

// Wait returns pickup minus registration.
func (r CustomerRecord) Wait() (time.Duration, bool) {
	if r.PickedUpAt == nil {
		return 0, false
	}
	return *r.PickedUpAt - r.RegisteredAt, true
}

// Trip returns delivery minus registration.
func (r CustomerRecord) Trip() (time.Duration, bool) {
	if r.DeliveredAt == nil {
		return 0, false
	}
	return *r.DeliveredAt - r.RegisteredAt, true
}

// TaxiRecord holds the cumulative counters of one taxi.
type TaxiRecord struct {
	ID       string  `json:"id"`
	Distance int     `json:"distance"`
	Odometer float64 `json:"odometer"`
	Served   int     `json:"served"`
	Refuels  int     `json:"refuels"`
}

// Moments is a mean and standard deviation over N samples.
type Moments struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summary aggregates a run. Durations are expressed in seconds.
type Summary struct {
	Customers         int     `json:"customers"`
	PickedUp          int     `json:"picked_up"`
	Delivered         int     `json:"delivered"`
	WaitSeconds       Moments `json:"wait_seconds"`
	TripSeconds       Moments `json:"trip_seconds"`
	DistancePerTaxi   Moments `json:"distance_per_taxi"`
	OdometerPerTaxi   Moments `json:"odometer_per_taxi"`
	ServedPerTaxi     Moments `json:"served_per_taxi"`
	Refuels           int     `json:"refuels"`
	StepFailures      int     `json:"step_failures"`
	AbandonedCustomer int     `json:"abandoned_customers"`
}

// Recorder is safe for concurrent use so that HTTP handlers can read a
// snapshot while the engine writes.
type Recorder struct {
	mu        sync.RWMutex
	customers map[string]*CustomerRecord
	corder    []string
	taxis     map[string]*TaxiRecord
	torder    []string
	failures  int
	abandoned int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		customers: make(map[string]*CustomerRecord),
		taxis:     make(map[string]*TaxiRecord),
	}
}

// Register records the registration time of a customer.
func (r *Recorder) Register(id string, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; ok {
		return
	}
	r.customers[id] = &CustomerRecord{ID: id, RegisteredAt: at}
	r.corder = append(r.corder, id)
}

// PickedUp records the pickup time of a customer.
func (r *Recorder) PickedUp(id, taxi string, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok && c.PickedUpAt == nil {
		t := at
		c.PickedUpAt = &t
		c.PickedUpBy = taxi
	}
}

// Delivered records the delivery time of a customer.
func (r *Recorder) Delivered(id string, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok && c.DeliveredAt == nil {
		t := at
		c.DeliveredAt = &t
	}
}

// Abandoned counts a customer that vanished while assigned. When waiting is
// set the customer is back on the street and its pickup is cleared so the
// next pickup is the one recorded.
func (r *Recorder) Abandoned(id string, waiting bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned++
	if c, ok := r.customers[id]; ok && waiting {
		c.PickedUpAt = nil
		c.PickedUpBy = ""
	}
}

// StepFailed counts an isolated agent step failure.
func (r *Recorder) StepFailed() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

// UpdateTaxi stores the latest counters of a taxi.
func (r *Recorder) UpdateTaxi(rec TaxiRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.taxis[rec.ID]; !ok {
		r.torder = append(r.torder, rec.ID)
	}
	cp := rec
	r.taxis[rec.ID] = &cp
}

// Customers returns the customer records in registration order.
func (r *Recorder) Customers() []CustomerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CustomerRecord, 0, len(r.corder))
	for _, id := range r.corder {
		out = append(out, *r.customers[id])
	}
	return out
}

// Taxis returns the taxi records sorted by id.
func (r *Recorder) Taxis() []TaxiRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaxiRecord, 0, len(r.torder))
	for _, id := range r.torder {
		out = append(out, *r.taxis[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary computes the derived metrics. Customers missing a timestamp are
// left out of the statistic that needs it.
func (r *Recorder) Summary() Summary {
	customers := r.Customers()
	taxis := r.Taxis()
	var waits, trips []float64
	s := Summary{Customers: len(customers)}
	for _, c := range customers {
		if w, ok := c.Wait(); ok {
			waits = append(waits, w.Seconds())
			s.PickedUp++
		}
		if d, ok := c.Trip(); ok {
			trips = append(trips, d.Seconds())
			s.Delivered++
		}
	}
	dist := make([]float64, len(taxis))
	odo := make([]float64, len(taxis))
	served := make([]float64, len(taxis))
	for i, t := range taxis {
		dist[i] = float64(t.Distance)
		odo[i] = t.Odometer
		served[i] = float64(t.Served)
		s.Refuels += t.Refuels
	}
	s.WaitSeconds = moments(waits)
	s.TripSeconds = moments(trips)
	s.DistancePerTaxi = moments(dist)
	s.OdometerPerTaxi = moments(odo)
	s.ServedPerTaxi = moments(served)
	r.mu.RLock()
	s.StepFailures = r.failures
	s.AbandonedCustomer = r.abandoned
	r.mu.RUnlock()
	return s
}

func moments(x []float64) Moments {
	switch len(x) {
	case 0:
		return Moments{}
	case 1:
		return Moments{N: 1, Mean: x[0]}
	}
	mean, std := stat.MeanStdDev(x, nil)
	return Moments{N: len(x), Mean: mean, StdDev: std}
}
