package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/taxigrad/core/demand"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

const (
	defaultTickMS  = 1000
	defaultEndSecs = 3600
)

// FacilityConfig pins a facility to a node.
type FacilityConfig struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Node int64  `json:"node"`
}

// SimulationConfig describes the world a run is played in.
type SimulationConfig struct {
	// MapFile is a .dotapos map. A random map is generated when empty.
	MapFile     string                 `json:"map_file"`
	NodeCount   int                    `json:"node_count"`
	HeaderLines int                    `json:"header_lines"`
	RandomMap   roadgraph.RandomConfig `json:"random_map"`
	TickMS      int                    `json:"tick_ms"`
	EndSeconds  int                    `json:"end_seconds"`
	// Speed is the taxi speed in map units per second.
	Speed      float64          `json:"speed"`
	Demand     demand.Config    `json:"demand"`
	Facilities []FacilityConfig `json:"facilities"`
	// Realtime paces ticks on the wall clock instead of running flat out.
	Realtime bool `json:"realtime"`
	// ExportPath writes the raw customer records at the end of the run.
	ExportPath string `json:"export_path"`
}

// SetDefaults fills unset fields.
func (c *SimulationConfig) SetDefaults() {
	if c.HeaderLines == 0 {
		c.HeaderLines = 1
	}
	if c.TickMS == 0 {
		c.TickMS = defaultTickMS
	}
	if c.EndSeconds == 0 {
		c.EndSeconds = defaultEndSecs
	}
	c.RandomMap.SetDefaults()
	c.Demand.SetDefaults()
}

// Validate checks the simulation settings.
func (c SimulationConfig) Validate() error {
	if c.MapFile != "" && c.NodeCount <= 0 {
		return fmt.Errorf("node_count is required with map_file")
	}
	if c.MapFile == "" {
		if err := c.RandomMap.Validate(); err != nil {
			return fmt.Errorf("random_map: %w", err)
		}
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms must be positive")
	}
	if c.EndSeconds <= 0 {
		return fmt.Errorf("end_seconds must be positive")
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative")
	}
	for _, f := range c.Facilities {
		if f.ID == "" {
			return fmt.Errorf("facility id is required")
		}
		if _, ok := model.ParseFacilityKind(f.Kind); !ok {
			return fmt.Errorf("facility %s: unknown kind %q", f.ID, f.Kind)
		}
	}
	if err := c.Demand.Validate(); err != nil {
		return fmt.Errorf("demand: %w", err)
	}
	return nil
}

// Tick returns the simulated length of one tick.
func (c SimulationConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// End returns the simulated time at which the run stops.
func (c SimulationConfig) End() time.Duration {
	return time.Duration(c.EndSeconds) * time.Second
}

// LoadOptions returns the options used to read MapFile.
func (c SimulationConfig) LoadOptions() roadgraph.LoadOptions {
	return roadgraph.LoadOptions{NodeCount: c.NodeCount, HeaderLines: c.HeaderLines}
}

// FacilityList converts the configured facilities. Unknown kinds are
// rejected by Validate.
func (c SimulationConfig) FacilityList() []model.Facility {
	out := make([]model.Facility, 0, len(c.Facilities))
	for _, f := range c.Facilities {
		kind, _ := model.ParseFacilityKind(f.Kind)
		out = append(out, model.Facility{ID: f.ID, Kind: kind, Node: roadgraph.NodeID(f.Node)})
	}
	return out
}
