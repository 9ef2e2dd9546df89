// Package triplog persists one record per delivered customer.
package triplog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// Record captures one completed trip.
type Record struct {
	Timestamp    time.Time        `json:"timestamp"`
	RunID        string           `json:"run_id"`
	TaxiID       string           `json:"taxi_id"`
	CustomerID   string           `json:"customer_id"`
	Pickup       roadgraph.NodeID `json:"pickup"`
	Dropoff      roadgraph.NodeID `json:"dropoff"`
	RegisteredAt time.Duration    `json:"registered_at"`
	PickedUpAt   time.Duration    `json:"picked_up_at"`
	DeliveredAt  time.Duration    `json:"delivered_at"`
	Odometer     float64          `json:"odometer"`
}

// Query defines filters for retrieving records. Zero values match anything.
type Query struct {
	Start  time.Time
	End    time.Time
	RunID  string
	TaxiID string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.TaxiID != "" && r.TaxiID != q.TaxiID {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Options selects and configures a store backend.
type Options struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open returns the store described by opts. A jsonl backend with a positive
// MaxSizeMB rotates its file.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "none", "":
		return NopStore{}, nil
	case "jsonl":
		if opts.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
		}
		return NewJSONLStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	}
	return nil, fmt.Errorf("unknown trip log backend %s", opts.Backend)
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
