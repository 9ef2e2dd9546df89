package taxistatus

import (
	"testing"

	"github.com/kilianp07/taxigrad/core/model"
)

func TestMemoryStore_FilterState(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{TaxiID: "t1", State: model.StateSeeking})
	s.Set(Status{TaxiID: "t2", State: model.StateToGas})
	st := model.StateToGas
	out := s.List(Filter{State: &st})
	if len(out) != 1 || out[0].TaxiID != "t2" {
		t.Fatalf("filter failed: %#v", out)
	}
}

func TestMemoryStore_FilterCarrying(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{TaxiID: "t1", Assigned: "c1"})
	s.Set(Status{TaxiID: "t2"})
	yes := true
	out := s.List(Filter{Carrying: &yes})
	if len(out) != 1 || out[0].TaxiID != "t1" {
		t.Fatalf("carrying filter failed: %#v", out)
	}
}

func TestMemoryStore_RecordTripSurvivesSet(t *testing.T) {
	s := NewMemoryStore()
	s.RecordTrip("t1", LastTrip{CustomerID: "c1", Dropoff: 4})
	s.Set(Status{TaxiID: "t1", Fuel: 3})
	st, ok := s.Get("t1")
	if !ok {
		t.Fatalf("missing status")
	}
	if st.LastTrip.CustomerID != "c1" || st.Fuel != 3 {
		t.Fatalf("unexpected status %#v", st)
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"t3", "t1", "t2"} {
		s.Set(Status{TaxiID: id})
	}
	out := s.List(Filter{})
	if len(out) != 3 || out[0].TaxiID != "t1" || out[2].TaxiID != "t3" {
		t.Fatalf("unexpected order %#v", out)
	}
}
