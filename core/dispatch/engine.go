package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/taxigrad/core/events"
	"github.com/kilianp07/taxigrad/core/field"
	"github.com/kilianp07/taxigrad/core/ledger"
	"github.com/kilianp07/taxigrad/core/logger"
	"github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/monitoring"
	"github.com/kilianp07/taxigrad/core/roadgraph"
	"github.com/kilianp07/taxigrad/core/stats"
	"github.com/kilianp07/taxigrad/core/taxistatus"
	"github.com/kilianp07/taxigrad/core/triplog"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

var (
	ErrDuplicateTaxi = errors.New("dispatch: taxi already registered")
	ErrUnknownTaxi   = errors.New("dispatch: unknown taxi")
)

type agent struct {
	taxi     model.Taxi
	dir      field.Direction
	hasDir   bool
	pickedAt time.Duration
	refuels  int
	// baseless is set once a void field found no taxi base to idle at.
	baseless bool
}

// Engine owns the road graph, the transit ledger and the run statistics and
// steps every registered taxi once per tick. It is driven from a single
// goroutine.
type Engine struct {
	cfg    Config
	graph  *roadgraph.Graph
	host   Host
	field  *field.Evaluator
	ledger *ledger.Ledger
	stats  *stats.Recorder

	agents    []*agent
	byID      map[string]*agent
	customers map[string]model.Customer

	runID  string
	clock  func() time.Time
	logger logger.Logger
	bus    eventbus.EventBus
	sink   metrics.MetricsSink
	trips  triplog.Store
	status taxistatus.Store
	mon    monitoring.Monitor

	// effects holds the notifications of the step in progress.
	effects []func()
}

// Option configures optional collaborators of the engine.
type Option func(*Engine)

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithEventBus(b eventbus.EventBus) Option { return func(e *Engine) { e.bus = b } }

func WithMetricsSink(s metrics.MetricsSink) Option { return func(e *Engine) { e.sink = s } }

func WithTripStore(s triplog.Store) Option { return func(e *Engine) { e.trips = s } }

func WithStatusStore(s taxistatus.Store) Option { return func(e *Engine) { e.status = s } }

// WithMonitor reports step failures to an error tracker.
func WithMonitor(m monitoring.Monitor) Option { return func(e *Engine) { e.mon = m } }

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option { return func(e *Engine) { e.runID = id } }

// WithClock sets the wall clock used to timestamp persisted records.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

// New validates cfg and the graph and builds an engine bound to host.
func New(cfg Config, g *roadgraph.Graph, host Host, opts ...Option) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch config: %w", err)
	}
	if g == nil || host == nil {
		return nil, fmt.Errorf("dispatch: graph and host are required")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	ev, err := field.New(cfg.Field)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		graph:     g,
		host:      host,
		field:     ev,
		ledger:    ledger.New(),
		stats:     stats.NewRecorder(),
		byID:      make(map[string]*agent),
		customers: make(map[string]model.Customer),
		runID:     uuid.NewString(),
		clock:     time.Now,
		logger:    logger.Nop{},
		sink:      metrics.NopSink{},
		trips:     triplog.NopStore{},
		mon:       monitoring.NopMonitor{},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// RunID identifies the run in persisted records and metrics.
func (e *Engine) RunID() string { return e.runID }

// Graph returns the road graph the engine was built with.
func (e *Engine) Graph() *roadgraph.Graph { return e.graph }

// Statistics returns the run statistics recorder.
func (e *Engine) Statistics() *stats.Recorder { return e.stats }

// Ledger returns the transit ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// RegisterCustomer places a waiting customer in the world.
func (e *Engine) RegisterCustomer(c model.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := e.customers[c.ID]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicateCustomer, c.ID)
	}
	pos, ok := e.graph.Position(c.Pickup)
	if !ok {
		return fmt.Errorf("customer %s pickup: %w: %d", c.ID, roadgraph.ErrUnknownNode, c.Pickup)
	}
	if _, ok := e.graph.Position(c.Dropoff); !ok {
		return fmt.Errorf("customer %s dropoff: %w: %d", c.ID, roadgraph.ErrUnknownNode, c.Dropoff)
	}
	if err := e.host.PlaceCustomer(c); err != nil {
		return fmt.Errorf("place customer %s: %w", c.ID, err)
	}
	if err := e.ledger.Register(c.ID, c.Pickup, pos); err != nil {
		return err
	}
	e.customers[c.ID] = c
	e.stats.Register(c.ID, c.RegisteredAt)
	e.logger.Debugw("customer registered", map[string]any{
		"customer_id": c.ID,
		"pickup":      c.Pickup,
		"dropoff":     c.Dropoff,
	})
	return nil
}

// RegisterAgent adds a taxi standing on t.Node. Taxis are stepped in
// registration order.
func (e *Engine) RegisterAgent(t model.Taxi) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := e.byID[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTaxi, t.ID)
	}
	if _, ok := e.graph.Node(t.Node); !ok {
		return fmt.Errorf("taxi %s: %w: %d", t.ID, roadgraph.ErrUnknownNode, t.Node)
	}
	if err := e.host.PlaceTaxi(t.ID, t.Node); err != nil {
		return fmt.Errorf("place taxi %s: %w", t.ID, err)
	}
	t.Assigned = ""
	t.State = model.StateSeeking
	a := &agent{taxi: t}
	e.agents = append(e.agents, a)
	e.byID[t.ID] = a
	e.ledger.Refresh()
	e.stats.UpdateTaxi(stats.TaxiRecord{ID: t.ID, Distance: t.Distance, Odometer: t.Odometer, Served: t.Served})
	e.publishTaxi(a, 0)
	return nil
}

// Taxis returns a copy of every taxi in registration order.
func (e *Engine) Taxis() []model.Taxi {
	out := make([]model.Taxi, len(e.agents))
	for i, a := range e.agents {
		out[i] = a.taxi
	}
	return out
}

// Taxi returns a copy of one taxi.
func (e *Engine) Taxi(id string) (model.Taxi, error) {
	a, ok := e.byID[id]
	if !ok {
		return model.Taxi{}, fmt.Errorf("%w: %s", ErrUnknownTaxi, id)
	}
	return a.taxi, nil
}

// Customer returns a registered customer.
func (e *Engine) Customer(id string) (model.Customer, bool) {
	c, ok := e.customers[id]
	return c, ok
}

// Tick steps every taxi once, in registration order. A failing step does not
// prevent the others from running; all failures are returned joined.
func (e *Engine) Tick(lapse model.TimeLapse) error {
	var errs []error
	for _, a := range e.agents {
		start := time.Now()
		err := e.safeStep(a, lapse)
		stepLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			errs = append(errs, fmt.Errorf("taxi %s: %w", a.taxi.ID, err))
			e.stepFailed(a, lapse.Start, err)
		}
	}
	if e.cfg.CheckLedger {
		if err := e.ledger.Check(); err != nil {
			errs = append(errs, err)
		}
	}
	e.recordFleet()
	return errors.Join(errs...)
}

// safeStep runs one step and restores the agent when it fails or panics.
// Notifications queued by the step run only after it committed.
func (e *Engine) safeStep(a *agent, lapse model.TimeLapse) error {
	if err := e.tryStep(a, lapse); err != nil {
		return err
	}
	e.flush(a.taxi.ID)
	return nil
}

func (e *Engine) tryStep(a *agent, lapse model.TimeLapse) (err error) {
	saved := *a
	e.effects = nil
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			*a = saved
			e.effects = nil
		}
	}()
	return e.step(a, lapse)
}

func (e *Engine) stepFailed(a *agent, at time.Duration, err error) {
	e.logger.Errorf("step failed for taxi %s: %v", a.taxi.ID, err)
	stepFailures.Inc()
	e.stats.StepFailed()
	e.mon.CaptureException(err, map[string]string{"taxi_id": a.taxi.ID, "run_id": e.runID})
	if e.bus != nil {
		e.bus.Publish(events.StepFailedEvent{TaxiID: a.taxi.ID, Err: err, At: at})
	}
	if r, ok := e.sink.(metrics.StepFailureRecorder); ok {
		ev := metrics.StepFailureEvent{RunID: e.runID, TaxiID: a.taxi.ID, Error: err.Error(), Time: e.clock()}
		if rerr := r.RecordStepFailure(ev); rerr != nil {
			e.logger.Warnf("record step failure: %v", rerr)
		}
	}
}

func (e *Engine) recordFleet() {
	counts := make(map[model.State]int)
	for _, a := range e.agents {
		counts[a.taxi.State]++
	}
	taxisByState.Reset()
	for s, n := range counts {
		taxisByState.WithLabelValues(s.String()).Set(float64(n))
	}
	waiting, inTransit, delivered := e.ledger.Counts()
	customersByLeg.WithLabelValues("waiting").Set(float64(waiting))
	customersByLeg.WithLabelValues("in_transit").Set(float64(inTransit))
	customersByLeg.WithLabelValues("delivered").Set(float64(delivered))
	if r, ok := e.sink.(metrics.FleetStateRecorder); ok {
		ev := metrics.FleetStateEvent{
			RunID:     e.runID,
			States:    counts,
			Waiting:   waiting,
			InTransit: inTransit,
			Delivered: delivered,
			Time:      e.clock(),
		}
		if err := r.RecordFleetState(ev); err != nil {
			e.logger.Warnf("record fleet state: %v", err)
		}
	}
}
