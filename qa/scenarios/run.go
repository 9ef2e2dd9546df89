package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/taxigrad/core/dispatch"
	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/infra/metrics"
	"github.com/kilianp07/taxigrad/infra/mqtt"
	"github.com/kilianp07/taxigrad/infra/roadsim"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

// Result is what a played scenario leaves behind.
type Result struct {
	Engine    *dispatch.Engine
	World     *roadsim.World
	Sink      *metrics.PromSink
	Published *mqtt.MockPublisher
}

// Run plays sc to completion. Step failures are collected and returned
// after the last tick.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	g, err := sc.Graph.Build()
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	world := roadsim.New(g, sc.Speed)
	for _, fd := range sc.Facilities {
		f, err := fd.ToModel()
		if err != nil {
			return nil, err
		}
		if err := world.AddFacility(f); err != nil {
			return nil, err
		}
	}

	sinkIf, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("prom sink: %w", err)
	}
	sink, ok := sinkIf.(*metrics.PromSink)
	if !ok {
		return nil, fmt.Errorf("expected *metrics.PromSink, got %T", sinkIf)
	}

	pub := mqtt.NewMockPublisher()
	bus := eventbus.NewBuffered(1024)
	dispatch.ResetMetrics(prometheus.NewRegistry())
	eng, err := dispatch.New(sc.Engine, g, world,
		dispatch.WithLogger(logger.NopLogger{}),
		dispatch.WithEventBus(bus),
		dispatch.WithMetricsSink(sink),
		dispatch.WithRunID(sc.Name),
		dispatch.WithClock(func() time.Time { return time.Unix(0, 0) }),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	bridgeCtx, cancel := context.WithCancel(ctx)
	done := mqtt.StartBridge(bridgeCtx, bus, pub, "", sc.Name)

	for _, td := range sc.Taxis {
		if err := eng.RegisterAgent(td.ToModel()); err != nil {
			cancel()
			return nil, err
		}
	}

	tick := time.Duration(sc.TickMS) * time.Millisecond
	var stepErr error
	for i := 0; i < sc.Ticks; i++ {
		lapse := model.TimeLapse{Start: time.Duration(i) * tick, End: time.Duration(i+1) * tick}
		for _, cd := range sc.Customers {
			if cd.Tick != i {
				continue
			}
			c := model.Customer{ID: cd.ID, Pickup: roadgraph.NodeID(cd.Pickup), Dropoff: roadgraph.NodeID(cd.Dropoff), RegisteredAt: lapse.Start}
			if err := eng.RegisterCustomer(c); err != nil {
				cancel()
				return nil, err
			}
		}
		if err := eng.Tick(lapse); err != nil && stepErr == nil {
			stepErr = err
		}
	}

	// Closing the bus lets the bridge drain what is buffered and stop.
	bus.Close()
	<-done
	cancel()
	return &Result{Engine: eng, World: world, Sink: sink, Published: pub}, stepErr
}
