package model

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
	"github.com/pinggolf/breadplan/internal/planning/network"
)

func testInput(t *testing.T) Input {
	t.Helper()
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "hub", Type: domain.LocationHub, Storage: domain.StorageBoth},
		{ID: "breadroom", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
	r := []domain.Route{
		{ID: "r1", Stops: []string{"plant", "hub"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.2, Mode: domain.TransportFrozen}}},
		{ID: "r2", Stops: []string{"hub", "breadroom"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.3, Mode: domain.TransportFrozen}}},
	}
	g, err := network.Build(locations, r, "plant")
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}

	horizon := domain.DateRange{Start: domain.MustParseDate("2026-01-05"), End: domain.MustParseDate("2026-01-10")}
	products := []string{"sourdough"}

	ix, _, err := cohort.Build(g, g.Legs(), products, horizon, cohort.Options{}, nil)
	if err != nil {
		t.Fatalf("cohort.Build: %v", err)
	}

	labor := domain.LaborCalendar{Days: make(map[domain.Date]domain.LaborDay)}
	for _, d := range horizon.Days() {
		labor.Days[d] = domain.LaborDay{Date: d, IsFixedDay: true, FixedHours: 8, RegularRate: 30, Overtime: 45, MaxHours: 12}
	}

	demand := map[domain.DemandKey]float64{
		{Location: "breadroom", Product: "sourdough", Date: horizon.Start.AddDays(2)}: 400,
	}

	trucks := []domain.Truck{
		{ID: "t1", Destination: "hub", Departure: domain.DepartureMorning, UnitCapacity: 10000, PalletCapacity: 30},
		{ID: "t2", Destination: "breadroom", Departure: domain.DepartureMorning, UnitCapacity: 10000, PalletCapacity: 30},
	}

	return Input{
		Graph:    g,
		Indexes:  ix,
		Legs:     g.Legs(),
		Products: products,
		Horizon:  horizon,
		Demand:   demand,
		Labor:    labor,
		Trucks:   trucks,
		Costs:    domain.DefaultCostStructure(),
	}
}

func TestBuildProducesNonEmptyModel(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.VarCount() == 0 || m.ConstraintCount() == 0 {
		t.Fatalf("expected vars and constraints, got %d vars, %d constraints", m.VarCount(), m.ConstraintCount())
	}
	if !m.HasVar(varProduction("plant", "sourdough", in.Horizon.Start)) {
		t.Error("expected a production variable for the plant on the first horizon day")
	}
}

func TestBuildRejectsMissingLaborDay(t *testing.T) {
	in := testInput(t)
	delete(in.Labor.Days, in.Horizon.Start)

	if _, err := Build(in); err == nil {
		t.Error("expected an error when a horizon day has no labor calendar entry")
	}
}

func TestBuildRejectsUnreachableBreadroom(t *testing.T) {
	in := testInput(t)
	delete(in.Indexes.MinTransitDays, "breadroom")

	if _, err := Build(in); err == nil {
		t.Error("expected an error when a breadroom has no recorded transit distance")
	}
}

func TestBuildRejectsZeroFixedHoursOnFixedDay(t *testing.T) {
	in := testInput(t)
	day := in.Labor.Days[in.Horizon.Start]
	day.FixedHours = 0
	in.Labor.Days[in.Horizon.Start] = day

	if _, err := Build(in); err == nil {
		t.Error("expected an error for a fixed day with zero fixed hours")
	}
}

func TestLaborConstraintCapsAtMaxHours(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	found := false
	for _, c := range m.Constraints() {
		if c.Name == "labor_cap["+in.Horizon.Start.String()+"]" {
			found = true
			if c.RHS != 12 {
				t.Errorf("labor_cap RHS = %v, want 12 (MaxHours)", c.RHS)
			}
			if c.Sense != milp.LessEq {
				t.Errorf("labor_cap sense = %v, want LessEq", c.Sense)
			}
		}
	}
	if !found {
		t.Fatal("expected a labor_cap constraint for the first horizon day")
	}
}

func TestTruckConstraintsLinkPalletsToLoad(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantNames := []string{
		"truck_unit_cap[t1," + in.Horizon.Start.String() + "]",
		"pallet_integrality[t1," + in.Horizon.Start.String() + "]",
		"pallet_cap[t1," + in.Horizon.Start.String() + "]",
	}
	have := make(map[string]bool)
	for _, c := range m.Constraints() {
		have[c.Name] = true
	}
	for _, want := range wantNames {
		if !have[want] {
			t.Errorf("expected constraint %q to exist", want)
		}
	}
}

func TestDemandConstraintRHSMatchesInputDemand(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dk := domain.DemandKey{Location: "breadroom", Product: "sourdough", Date: in.Horizon.Start.AddDays(2)}
	name := "demand[" + dk.Location + "," + dk.Product + "," + dk.Date.String() + "]"
	for _, c := range m.Constraints() {
		if c.Name == name {
			if c.RHS != 400 {
				t.Errorf("demand constraint RHS = %v, want 400", c.RHS)
			}
			return
		}
	}
	t.Fatalf("expected a demand constraint named %q", name)
}

func TestProductionSmoothingAddsDeltaVarsWhenEnabled(t *testing.T) {
	in := testInput(t)
	in.EnableProductionSmoothing = true
	in.SmoothingCostPerUnit = 0.5

	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	days := in.Horizon.Days()
	deltaName := "prod_delta[plant,sourdough," + days[1].String() + "]"
	if !m.HasVar(deltaName) {
		t.Errorf("expected smoothing delta variable %q to exist", deltaName)
	}
}

func TestProductionSmoothingOmittedByDefault(t *testing.T) {
	in := testInput(t)
	m, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	days := in.Horizon.Days()
	deltaName := "prod_delta[plant,sourdough," + days[1].String() + "]"
	if m.HasVar(deltaName) {
		t.Error("did not expect smoothing variables when EnableProductionSmoothing is false")
	}
}
