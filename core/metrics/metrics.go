package metrics

import (
	"time"

	"github.com/kilianp07/taxigrad/core/model"
)

// TripResult describes one completed delivery.
type TripResult struct {
	RunID      string
	TaxiID     string
	CustomerID string
	Pickup     int64
	Dropoff    int64
	Wait       time.Duration
	Trip       time.Duration
	At         time.Duration
	Time       time.Time
}

// MetricsSink records trip results for observability purposes.
type MetricsSink interface {
	RecordTrips(results []TripResult) error
}

// PickupEvent captures a customer being loaded.
type PickupEvent struct {
	RunID      string
	TaxiID     string
	CustomerID string
	Wait       time.Duration
	Time       time.Time
}

// PickupRecorder records pickups.
type PickupRecorder interface {
	RecordPickup(ev PickupEvent) error
}

// RefuelEvent captures a taxi filling its tank.
type RefuelEvent struct {
	RunID     string
	TaxiID    string
	StationID string
	Time      time.Time
}

// RefuelRecorder records refuels.
type RefuelRecorder interface {
	RecordRefuel(ev RefuelEvent) error
}

// FleetStateEvent is a per tick snapshot of the fleet.
type FleetStateEvent struct {
	RunID     string
	States    map[model.State]int
	Waiting   int
	InTransit int
	Delivered int
	Time      time.Time
}

// FleetStateRecorder records fleet snapshots.
type FleetStateRecorder interface {
	RecordFleetState(ev FleetStateEvent) error
}

// StepFailureEvent reports an isolated agent failure.
type StepFailureEvent struct {
	RunID  string
	TaxiID string
	Error  string
	Time   time.Time
}

// StepFailureRecorder records agent step failures.
type StepFailureRecorder interface {
	RecordStepFailure(ev StepFailureEvent) error
}

// StateTransitionEvent captures a taxi changing dispatch state.
type StateTransitionEvent struct {
	TaxiID string
	From   model.State
	To     model.State
	Time   time.Time
}

// StateTransitionRecorder records state transitions.
type StateTransitionRecorder interface {
	RecordStateTransition(ev StateTransitionEvent) error
}

// NopSink implements MetricsSink and every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTrips([]TripResult) error                   { return nil }
func (NopSink) RecordPickup(PickupEvent) error                   { return nil }
func (NopSink) RecordRefuel(RefuelEvent) error                   { return nil }
func (NopSink) RecordFleetState(FleetStateEvent) error           { return nil }
func (NopSink) RecordStepFailure(StepFailureEvent) error         { return nil }
func (NopSink) RecordStateTransition(StateTransitionEvent) error { return nil }
