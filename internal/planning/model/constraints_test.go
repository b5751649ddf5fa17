package model

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
	"github.com/pinggolf/breadplan/internal/planning/network"
)

// thawTestInput builds a fixture with an ambient-only breadroom fed by a
// frozen-mode leg, the shape needed to exercise auto-thaw-on-arrival.
func thawTestInput(t *testing.T) Input {
	t.Helper()
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "breadroom_wa", Type: domain.LocationBreadroom, Storage: domain.StorageAmbientOnly},
	}
	r := []domain.Route{
		{ID: "r1", Stops: []string{"plant", "breadroom_wa"}, Hops: []domain.RouteHop{{TransitDays: 4, CostPerUnit: 1.2, Mode: domain.TransportFrozen}}},
	}
	g, err := network.Build(locations, r, "plant")
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}

	horizon := domain.DateRange{Start: domain.MustParseDate("2026-01-05"), End: domain.MustParseDate("2026-01-15")}
	products := []string{"sourdough"}

	ix, _, err := cohort.Build(g, g.Legs(), products, horizon, cohort.Options{}, nil)
	if err != nil {
		t.Fatalf("cohort.Build: %v", err)
	}

	labor := domain.LaborCalendar{Days: make(map[domain.Date]domain.LaborDay)}
	for _, d := range horizon.Days() {
		labor.Days[d] = domain.LaborDay{Date: d, IsFixedDay: true, FixedHours: 8, RegularRate: 30, Overtime: 45, MaxHours: 12}
	}

	return Input{
		Graph:    g,
		Indexes:  ix,
		Legs:     g.Legs(),
		Products: products,
		Horizon:  horizon,
		Demand:   map[domain.DemandKey]float64{},
		Labor:    labor,
		Costs:    domain.DefaultCostStructure(),
	}
}

func TestFreezeConstraintEqualsAmbientArrivals(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	found := false
	for _, c := range m.Constraints() {
		if len(c.Name) >= len("freeze_equals_ambient_arrivals") && c.Name[:len("freeze_equals_ambient_arrivals")] == "freeze_equals_ambient_arrivals" {
			found = true
			if c.Sense != milp.Equal {
				t.Errorf("freeze constraint sense = %v, want Equal", c.Sense)
			}
		}
	}
	if !found {
		t.Fatal("expected at least one freeze_equals_ambient_arrivals constraint at the storage node (StorageBoth)")
	}
}

func TestThawConstraintEqualsFrozenArrivals(t *testing.T) {
	in := thawTestInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	found := false
	for _, c := range m.Constraints() {
		if len(c.Name) >= len("thaw_equals_frozen_arrivals") && c.Name[:len("thaw_equals_frozen_arrivals")] == "thaw_equals_frozen_arrivals" {
			found = true
			if c.Sense != milp.Equal {
				t.Errorf("thaw constraint sense = %v, want Equal", c.Sense)
			}
		}
	}
	if !found {
		t.Fatal("expected a thaw_equals_frozen_arrivals constraint at the ambient-only breadroom")
	}

	prefix := "freeze_equals_ambient_arrivals[breadroom_wa,"
	for _, c := range m.Constraints() {
		if len(c.Name) >= len(prefix) && c.Name[:len(prefix)] == prefix {
			t.Errorf("an ambient-only location cannot freeze, so no freeze constraint should exist there: %s", c.Name)
		}
	}
}

func TestThawFeedsAFreshAmbientCohortDatedAtTheThawDate(t *testing.T) {
	in := thawTestInput(t)

	var thawKey domain.CohortKey
	var thawDate domain.Date
	for _, key := range in.Indexes.SortedFreezeThawKeys() {
		if key.Location != "breadroom_wa" {
			continue
		}
		dates := cohort.SortedDates(in.Indexes.FreezeThaw[key])
		if len(dates) > 0 {
			thawKey, thawDate = key, dates[0]
			break
		}
	}
	if thawKey.Location == "" {
		t.Fatal("expected at least one FreezeThaw cohort at the ambient-only breadroom")
	}

	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// The fresh cohort this thaw feeds is keyed by the thaw date itself, not
	// the original production date (spec item 12's shelf-life reset).
	ambBalanceName := "ambient_balance[" + thawKey.Location + "," + thawKey.Product + "," + thawDate.String() + "," + thawDate.String() + "]"
	var balance milp.Constraint
	found := false
	for _, c := range m.Constraints() {
		if c.Name == ambBalanceName {
			balance, found = c, true
		}
	}
	if !found {
		t.Fatalf("expected an ambient_balance constraint named %q (the fresh cohort created on the thaw date)", ambBalanceName)
	}

	thawVar := varFreezeThaw(thawKey, thawDate)
	hasThawTerm := false
	for _, term := range balance.Expr.Terms {
		if term.Var == thawVar {
			hasThawTerm = true
		}
	}
	if !hasThawTerm {
		t.Errorf("expected the ambient balance on the thaw date to include the thaw variable %q as inflow", thawVar)
	}
}

func TestProductionDayConstraintsExistAndUseLaborCappedBigM(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := in.Horizon.Start
	if !m.HasVar(varProductionDay(d)) {
		t.Fatal("expected a production_day binary variable for the first horizon day")
	}

	wantBigM := in.Labor.Days[d].MaxHours * domain.ProductionRateUnitsPerHour
	upperName := "production_day_upper[" + d.String() + "]"
	lowerName := "production_day_lower[" + d.String() + "]"
	foundUpper, foundLower := false, false
	for _, c := range m.Constraints() {
		switch c.Name {
		case upperName:
			foundUpper = true
			if c.Sense != milp.LessEq {
				t.Errorf("production_day_upper sense = %v, want LessEq", c.Sense)
			}
			for _, term := range c.Expr.Terms {
				if term.Var == varProductionDay(d) && term.Coef != -wantBigM {
					t.Errorf("production_day_upper bigM coefficient = %v, want %v", term.Coef, -wantBigM)
				}
			}
		case lowerName:
			foundLower = true
			if c.Sense != milp.GreaterEq {
				t.Errorf("production_day_lower sense = %v, want GreaterEq", c.Sense)
			}
		}
	}
	if !foundUpper || !foundLower {
		t.Fatalf("expected both %q and %q constraints", upperName, lowerName)
	}
}

func TestTruckLegLinkageTiesShipmentsToTruckLoads(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := in.Horizon.Start
	name := "truck_leg_link[" + domain.StorageNodeID + "-hub,sourdough," + d.String() + "]"
	for _, c := range m.Constraints() {
		if c.Name == name {
			if c.Sense != milp.Equal {
				t.Errorf("truck_leg_link sense = %v, want Equal", c.Sense)
			}
			return
		}
	}
	t.Fatalf("expected a truck_leg_link constraint named %q tying leg shipments to truck t1's load", name)
}

func TestTruckTimingCapsMorningTruckToPriorDayInventory(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := in.Horizon.Start.AddDays(1)
	name := "truck_timing[t1," + d.String() + "]"
	for _, c := range m.Constraints() {
		if c.Name == name {
			if c.Sense != milp.LessEq {
				t.Errorf("truck_timing sense = %v, want LessEq", c.Sense)
			}
			prodVar := varProduction("plant", "sourdough", d)
			for _, term := range c.Expr.Terms {
				if term.Var == prodVar {
					t.Errorf("a morning truck must not draw on same-day production; found term for %q", prodVar)
				}
			}
			return
		}
	}
	t.Fatalf("expected a truck_timing constraint named %q", name)
}
