package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/taxigrad/api/fleet"
	"github.com/kilianp07/taxigrad/config"
	"github.com/kilianp07/taxigrad/core/demand"
	"github.com/kilianp07/taxigrad/core/dispatch"
	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/core/model"
	coremon "github.com/kilianp07/taxigrad/core/monitoring"
	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/core/roadgraph"
	"github.com/kilianp07/taxigrad/core/taxistatus"
	"github.com/kilianp07/taxigrad/core/triplog"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/infra/metrics"
	"github.com/kilianp07/taxigrad/infra/monitoring"
	"github.com/kilianp07/taxigrad/infra/mqtt"
	"github.com/kilianp07/taxigrad/infra/roadsim"
	"github.com/kilianp07/taxigrad/internal/eventbus"
	"github.com/kilianp07/taxigrad/pkg/export"
)

// busBuffer is the per subscriber slack on the event bus.
const busBuffer = 256

// Service wires the engine to its world, its stores and its outer surfaces
// and drives the tick loop.
type Service struct {
	Engine *dispatch.Engine
	World  *roadsim.World

	cfg    *config.Config
	demand *demand.Generator
	bus    *eventbus.Bus
	sink   coremetrics.MetricsSink
	trips  triplog.Store
	mon    coremon.Monitor
	status *taxistatus.MemoryStore
	client broker
	log    logger.Logger

	mu      sync.Mutex
	pending []coremqtt.CustomerRequest
	now     time.Duration
}

type broker interface {
	coremqtt.Publisher
	coremqtt.RequestSource
	Disconnect()
}

// Option customises a Service before the fleet is placed.
type Option func(*Service)

// WithBroker replaces the MQTT connection, typically by a mock.
func WithBroker(b broker) Option { return func(s *Service) { s.client = b } }

// LoadGraph reads the configured map or generates a random one seeded with
// the demand seed.
func LoadGraph(sim config.SimulationConfig) (*roadgraph.Graph, error) {
	if sim.MapFile != "" {
		return roadgraph.LoadFile(sim.MapFile, sim.LoadOptions())
	}
	return roadgraph.Random(sim.RandomMap, rand.New(rand.NewSource(sim.Demand.Seed)))
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	log := logger.New("service")
	g, err := LoadGraph(cfg.Simulation)
	if err != nil {
		return nil, fmt.Errorf("road graph: %w", err)
	}
	gen, err := demand.New(cfg.Simulation.Demand, g)
	if err != nil {
		return nil, fmt.Errorf("demand: %w", err)
	}
	world := roadsim.New(g, cfg.Simulation.Speed)
	facilities := cfg.Simulation.FacilityList()
	if len(facilities) == 0 {
		facilities = gen.Facilities()
	}
	for _, f := range facilities {
		if err := world.AddFacility(f); err != nil {
			return nil, err
		}
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	trips, err := triplog.Open(cfg.TripLog.Options())
	if err != nil {
		return nil, fmt.Errorf("trip log: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = trips.Close()
		return nil, fmt.Errorf("sentry: %w", err)
	}

	s := &Service{
		World:  world,
		cfg:    cfg,
		demand: gen,
		bus:    eventbus.NewBuffered(busBuffer),
		sink:   sink,
		trips:  trips,
		mon:    mon,
		status: taxistatus.NewMemoryStore(),
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}

	s.Engine, err = dispatch.New(cfg.Engine, g, world,
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithEventBus(s.bus),
		dispatch.WithMetricsSink(sink),
		dispatch.WithTripStore(trips),
		dispatch.WithStatusStore(s.status),
		dispatch.WithMonitor(mon),
	)
	if err != nil {
		_ = trips.Close()
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	for _, t := range gen.Taxis() {
		if err := s.Engine.RegisterAgent(t); err != nil {
			_ = trips.Close()
			return nil, err
		}
	}
	for _, c := range gen.InitialCustomers() {
		if err := s.Engine.RegisterCustomer(c); err != nil {
			_ = trips.Close()
			return nil, err
		}
	}

	if s.client == nil && cfg.MQTT.Enabled() {
		cli, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = trips.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = cli
	}
	if s.client != nil {
		s.client.OnRequest(s.enqueue)
	}
	log.Infof("run %s: %d nodes, %d taxis, %d facilities", s.Engine.RunID(), g.Len(), len(s.Engine.Taxis()), len(facilities))
	return s, nil
}

// Status returns the store the engine publishes taxi snapshots to.
func (s *Service) Status() taxistatus.Store { return s.status }

// Now returns the simulated time reached so far.
func (s *Service) Now() time.Duration { return s.now }

func (s *Service) enqueue(req coremqtt.CustomerRequest) {
	s.mu.Lock()
	s.pending = append(s.pending, req)
	s.mu.Unlock()
}

// Request queues a ride request; it is registered at the start of the next
// tick.
func (s *Service) Request(req coremqtt.CustomerRequest) { s.enqueue(req) }

func (s *Service) drainRequests(at time.Duration) {
	s.mu.Lock()
	reqs := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, r := range reqs {
		c := model.Customer{
			ID:           r.ID,
			Pickup:       roadgraph.NodeID(r.Pickup),
			Dropoff:      roadgraph.NodeID(r.Dropoff),
			RegisteredAt: at,
		}
		if err := s.Engine.RegisterCustomer(c); err != nil {
			s.log.Warnf("rejected request %s: %v", r.ID, err)
		}
	}
}

// Step plays one tick: pending requests and random demand are registered,
// then every taxi moves once. Agent failures are returned but do not stop
// the run.
func (s *Service) Step() error {
	lapse := model.TimeLapse{Start: s.now, End: s.now + s.cfg.Simulation.Tick()}
	s.drainRequests(lapse.Start)
	if c, ok := s.demand.Maybe(lapse.Start); ok {
		if err := s.Engine.RegisterCustomer(c); err != nil {
			s.log.Warnf("random customer %s: %v", c.ID, err)
		}
	}
	err := s.Engine.Tick(lapse)
	s.now = lapse.End
	return err
}

// Run starts the outer surfaces and plays ticks until the configured end
// time or until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.client != nil {
		mqtt.StartBridge(ctx, s.bus, s.client, s.cfg.MQTT.TopicPrefix, s.Engine.RunID())
	}
	if addr := s.cfg.HTTP.Addr; addr != "" {
		deps := fleet.Deps{
			Status:  s.status,
			Stats:   s.Engine.Statistics(),
			Trips:   s.trips,
			Bus:     s.bus,
			RunID:   s.Engine.RunID(),
			Token:   s.cfg.HTTP.Token,
			Origins: s.cfg.HTTP.AllowedOrigins,
		}
		go func() {
			if err := fleet.Serve(ctx, addr, deps); err != nil {
				s.log.Errorf("fleet api: %v", err)
			}
		}()
	}

	var pace *time.Ticker
	if s.cfg.Simulation.Realtime {
		pace = time.NewTicker(s.cfg.Simulation.Tick())
		defer pace.Stop()
	}
	end := s.cfg.Simulation.End()
	for s.now < end {
		if pace != nil {
			select {
			case <-ctx.Done():
				return s.finish(ctx.Err())
			case <-pace.C:
			}
		} else if err := ctx.Err(); err != nil {
			return s.finish(err)
		}
		if err := s.Step(); err != nil {
			s.log.Warnf("tick at %s: %v", s.now, err)
		}
	}
	return s.finish(nil)
}

func (s *Service) finish(cause error) error {
	sum := s.Engine.Statistics().Summary()
	s.log.Infof("run %s stopped at %s: %d customers, %d delivered", s.Engine.RunID(), s.now, sum.Customers, sum.Delivered)
	if path := s.cfg.Simulation.ExportPath; path != "" {
		if err := export.WriteFile(path, s.Engine.Statistics().Customers()); err != nil {
			return errors.Join(cause, fmt.Errorf("export: %w", err))
		}
	}
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.mon.Flush(2 * time.Second)
	return s.trips.Close()
}
