// Package fleet serves the read-only HTTP view of a running dispatch
// simulation.
package fleet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/taxigrad/core/stats"
	"github.com/kilianp07/taxigrad/core/taxistatus"
	"github.com/kilianp07/taxigrad/core/triplog"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

// Deps are the read sides the API is built on. Nil members disable their
// routes.
type Deps struct {
	Status  taxistatus.Store
	Stats   *stats.Recorder
	Trips   triplog.Store
	Bus     eventbus.EventBus
	RunID   string
	Token   string
	Origins []string
}

// NewMux wires every route.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	if d.Status != nil {
		h := NewTaxisHandler(d.Status)
		mux.Handle("/api/taxis", h)
		mux.Handle("/api/taxis/", h)
	}
	if d.Stats != nil {
		mux.Handle("/api/stats", NewStatsHandler(d.Stats))
	}
	if d.Trips != nil {
		mux.Handle("/api/trips", NewTripsHandler(d.Trips, d.Token))
	}
	if d.Bus != nil {
		mux.Handle("/api/events", NewEventStream(d.Bus, d.RunID, d.Origins))
	}
	return mux
}

// Serve runs the API on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, d Deps) error {
	log := logger.New("fleet-api")
	srv := &http.Server{Addr: addr, Handler: NewMux(d), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("fleet api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
