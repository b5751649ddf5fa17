package plan

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/network"
)

func smallInput() Input {
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "hub", Type: domain.LocationHub, Storage: domain.StorageBoth},
		{ID: "breadroom", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
	r := []domain.Route{
		{ID: "r1", Stops: []string{"plant", "hub"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.2, Mode: domain.TransportFrozen}}},
		{ID: "r2", Stops: []string{"hub", "breadroom"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.3, Mode: domain.TransportFrozen}}},
	}

	horizon := domain.DateRange{Start: domain.MustParseDate("2026-01-05"), End: domain.MustParseDate("2026-01-10")}

	labor := domain.LaborCalendar{Days: make(map[domain.Date]domain.LaborDay)}
	for _, d := range horizon.Days() {
		labor.Days[d] = domain.LaborDay{Date: d, IsFixedDay: true, FixedHours: 8, RegularRate: 30, Overtime: 45, MaxHours: 12}
	}

	forecast := domain.Forecast{Entries: []domain.ForecastEntry{
		{Destination: "breadroom", Product: "sourdough", Date: horizon.Start.AddDays(3), Quantity: 500},
	}}

	trucks := []domain.Truck{
		{ID: "t1", Destination: "hub", Departure: domain.DepartureMorning, UnitCapacity: 10000, PalletCapacity: 30},
		{ID: "t2", Destination: "breadroom", Departure: domain.DepartureMorning, UnitCapacity: 10000, PalletCapacity: 30},
	}

	return Input{
		Locations:       locations,
		Routes:          r,
		ManufacturingID: "plant",
		Products:        []string{"sourdough"},
		Horizon:         horizon,
		Forecast:        forecast,
		Labor:           labor,
		Trucks:          trucks,
		Costs:           domain.DefaultCostStructure(),
	}
}

func TestBuildProducesASolvableModel(t *testing.T) {
	p, err := Build(smallInput(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Model.VarCount() == 0 {
		t.Error("expected a non-empty model")
	}
	if p.Model.ConstraintCount() == 0 {
		t.Error("expected at least one constraint")
	}
}

func TestBuildFailsPreSolveCheckOnMissingLaborDay(t *testing.T) {
	in := smallInput()
	delete(in.Labor.Days, in.Horizon.Start)

	if _, err := Build(in, nil); err == nil {
		t.Error("expected the labor coverage pre-solve check to fail")
	}
}

func TestBuildFailsOnDisconnectedNetwork(t *testing.T) {
	in := smallInput()
	in.Locations = []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "breadroom", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
	in.Routes = nil

	if _, err := Build(in, nil); err == nil {
		t.Error("expected the network connectivity pre-solve check to fail with no routes at all")
	}
}

func TestRegistryRunsChecksInRegistrationOrder(t *testing.T) {
	var order []string
	r := &Registry{}
	r.Register("first", func(Input, *network.Graph) error {
		order = append(order, "first")
		return nil
	})
	r.Register("second", func(Input, *network.Graph) error {
		order = append(order, "second")
		return nil
	})

	in := smallInput()
	g, err := network.Build(in.Locations, in.Routes, in.ManufacturingID)
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}
	if err := r.Run(in, g); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("checks ran out of registration order: %v", order)
	}
}
