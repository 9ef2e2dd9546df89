package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/taxigrad/core/events"
	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records state
// transitions on sinks that support them. It stops when the context is
// canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	r, ok := sink.(coremetrics.StateTransitionRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.StateEvent); ok {
					_ = r.RecordStateTransition(coremetrics.StateTransitionEvent{
						TaxiID: e.TaxiID,
						From:   e.From,
						To:     e.To,
						Time:   time.Now(),
					})
				}
			}
		}
	}()
}
