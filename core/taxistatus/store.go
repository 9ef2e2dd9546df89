package taxistatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// LastTrip summarises the most recent delivery of a taxi.
type LastTrip struct {
	CustomerID  string           `json:"customer_id"`
	Dropoff     roadgraph.NodeID `json:"dropoff"`
	DeliveredAt time.Duration    `json:"delivered_at"`
}

// Status captures the current known state of a taxi.
type Status struct {
	TaxiID   string           `json:"taxi_id"`
	State    model.State      `json:"state"`
	Node     roadgraph.NodeID `json:"node"`
	OnNode   bool             `json:"on_node"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Fuel     int              `json:"fuel"`
	Capacity int              `json:"capacity"`
	Assigned string           `json:"assigned,omitempty"`
	Served   int              `json:"served"`
	LastTrip LastTrip         `json:"last_trip"`
	Updated  time.Duration    `json:"updated"`
}

type Filter struct {
	State    *model.State
	Carrying *bool
}

type Store interface {
	Set(Status)
	Get(id string) (Status, bool)
	List(Filter) []Status
	RecordTrip(id string, trip LastTrip)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// Set replaces the status of a taxi while keeping its last trip.
func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	if prev, ok := s.data[st.TaxiID]; ok && st.LastTrip.CustomerID == "" {
		st.LastTrip = prev.LastTrip
	}
	s.data[st.TaxiID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

func (s *MemoryStore) RecordTrip(id string, trip LastTrip) {
	s.mu.Lock()
	st := s.data[id]
	if st.TaxiID == "" {
		st.TaxiID = id
	}
	st.LastTrip = trip
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.State != nil && st.State != *f.State {
			continue
		}
		if f.Carrying != nil && (st.Assigned != "") != *f.Carrying {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TaxiID < res[j].TaxiID })
	return res
}
