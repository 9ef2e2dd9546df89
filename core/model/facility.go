package model

import (
	"time"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// FacilityKind distinguishes stationary facilities.
type FacilityKind int

const (
	GasStation FacilityKind = iota
	TaxiBase
)

func (k FacilityKind) String() string {
	switch k {
	case GasStation:
		return "gas_station"
	case TaxiBase:
		return "taxi_base"
	default:
		return "unknown"
	}
}

// ParseFacilityKind converts a configuration string into a FacilityKind.
func ParseFacilityKind(s string) (FacilityKind, bool) {
	switch s {
	case "gas_station", "gas":
		return GasStation, true
	case "taxi_base", "base":
		return TaxiBase, true
	}
	return 0, false
}

// Facility is a gas station or a taxi base located at a graph node.
type Facility struct {
	ID   string           `json:"id"`
	Kind FacilityKind     `json:"kind"`
	Node roadgraph.NodeID `json:"node"`
}

// TimeLapse is one slice of simulated time [Start, End).
type TimeLapse struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the slice.
func (l TimeLapse) Duration() time.Duration { return l.End - l.Start }
