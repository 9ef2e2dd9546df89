package model

import "testing"

func TestTaxiLowFuel(t *testing.T) {
	cases := []struct {
		fuel, capacity int
		want           bool
	}{
		{fuel: 19, capacity: 100, want: true},
		{fuel: 20, capacity: 100, want: false},
		{fuel: 1, capacity: 8, want: true},
		{fuel: 0, capacity: 2, want: true},
		{fuel: 2, capacity: 12, want: true},
		{fuel: 2, capacity: 10, want: false},
		{fuel: 2, capacity: 13, want: true},
	}
	for _, c := range cases {
		tx := Taxi{Fuel: c.fuel, Capacity: c.capacity}
		if got := tx.LowFuel(DefaultLowFuelRatio); got != c.want {
			t.Errorf("fuel %d/%d: expected %v got %v", c.fuel, c.capacity, c.want, got)
		}
	}
}

func TestTaxiValidate(t *testing.T) {
	if err := (Taxi{ID: "t1", Fuel: 5, Capacity: 10}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Taxi{ID: "t1", Fuel: 11, Capacity: 10}).Validate(); err == nil {
		t.Fatal("expected overfull tank error")
	}
	if err := (Taxi{ID: "t1", Capacity: 0}).Validate(); err == nil {
		t.Fatal("expected capacity error")
	}
}

func TestStateText(t *testing.T) {
	b, _ := StateAtBase.MarshalText()
	if string(b) != "AT_BASE" {
		t.Fatalf("unexpected name %s", b)
	}
	var s State
	if err := s.UnmarshalText([]byte("TO_GAS")); err != nil || s != StateToGas {
		t.Fatalf("decode TO_GAS: %v %v", s, err)
	}
}

func TestParseFacilityKind(t *testing.T) {
	if k, ok := ParseFacilityKind("base"); !ok || k != TaxiBase {
		t.Fatalf("expected taxi base")
	}
	if _, ok := ParseFacilityKind("garage"); ok {
		t.Fatal("expected unknown kind")
	}
}
