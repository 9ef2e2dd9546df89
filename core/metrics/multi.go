package metrics

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTrips forwards the results to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTrips(res []TripResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordTrips(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordPickup forwards pickup events when supported by the sink.
func (m *MultiSink) RecordPickup(ev PickupEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PickupRecorder); ok {
			if err := rec.RecordPickup(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRefuel forwards refuel events when supported by the sink.
func (m *MultiSink) RecordRefuel(ev RefuelEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RefuelRecorder); ok {
			if err := rec.RecordRefuel(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetState forwards fleet snapshots when supported by the sink.
func (m *MultiSink) RecordFleetState(ev FleetStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetStateRecorder); ok {
			if err := rec.RecordFleetState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStepFailure forwards step failures when supported by the sink.
func (m *MultiSink) RecordStepFailure(ev StepFailureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StepFailureRecorder); ok {
			if err := rec.RecordStepFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStateTransition forwards state transitions when supported by the sink.
func (m *MultiSink) RecordStateTransition(ev StateTransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StateTransitionRecorder); ok {
			if err := rec.RecordStateTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
