package network

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/domain"
)

func testLocations() []domain.Location {
	return []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "hub_east", Type: domain.LocationHub, Storage: domain.StorageBoth},
		{ID: "depot_frozen", Type: domain.LocationStorage, Storage: domain.StorageFrozenOnly},
		{ID: "breadroom_wa", Type: domain.LocationBreadroom, Storage: domain.StorageAmbientOnly},
		{ID: "breadroom_east", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
}

func testRoutes() []domain.Route {
	return []domain.Route{
		{
			ID:    "plant-hub-east",
			Stops: []string{"plant", "hub_east"},
			Hops:  []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.5, Mode: domain.TransportFrozen}},
		},
		{
			ID:    "hub-east-breadroom-east",
			Stops: []string{"hub_east", "breadroom_east"},
			Hops:  []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.3, Mode: domain.TransportFrozen}},
		},
		{
			ID:    "hub-east-breadroom-wa",
			Stops: []string{"hub_east", "breadroom_wa"},
			Hops:  []domain.RouteHop{{TransitDays: 4, CostPerUnit: 1.2, Mode: domain.TransportFrozen}},
		},
	}
}

func TestBuildRewritesManufacturingOriginToStorageNode(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := g.Leg(domain.LegKey{Origin: "plant", Destination: "hub_east"}); ok {
		t.Error("no leg should originate at the real manufacturing site after rewrite")
	}
	if _, ok := g.Leg(domain.LegKey{Origin: domain.StorageNodeID, Destination: "hub_east"}); !ok {
		t.Error("expected the rewritten leg to originate at the synthetic storage node")
	}
}

func TestBuildRejectsMalformedRoute(t *testing.T) {
	bad := []domain.Route{{ID: "broken", Stops: []string{"a"}, Hops: nil}}
	if _, err := Build(testLocations(), bad, "plant"); err == nil {
		t.Error("expected an error for a route with fewer than 2 stops")
	}
}

func TestBuildRejectsConflictingLegAttributes(t *testing.T) {
	routes := []domain.Route{
		{ID: "r1", Stops: []string{"hub_east", "breadroom_east"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.3, Mode: domain.TransportFrozen}}},
		{ID: "r2", Stops: []string{"hub_east", "breadroom_east"}, Hops: []domain.RouteHop{{TransitDays: 2, CostPerUnit: 0.9, Mode: domain.TransportAmbient}}},
	}
	if _, err := Build(testLocations(), routes, "plant"); err == nil {
		t.Error("expected an error for two routes disagreeing on the same leg's attributes")
	}
}

func TestArrivalStateFrozenIntoFrozenCapableLocation(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	leg, _ := g.Leg(domain.LegKey{Origin: "hub_east", Destination: "breadroom_east"})
	if got := g.ArrivalState(leg); got != domain.StateFrozen {
		t.Errorf("ArrivalState = %v, want Frozen", got)
	}
}

func TestArrivalStateFrozenIntoAmbientOnlyLocationArrivesAmbient(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	leg, _ := g.Leg(domain.LegKey{Origin: "hub_east", Destination: "breadroom_wa"})
	if got := g.ArrivalState(leg); got != domain.StateAmbient {
		t.Errorf("ArrivalState = %v, want Ambient (destination cannot hold frozen)", got)
	}
}

func TestIsAmbientOnlyBreadroomIsStructuralNotHardcoded(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.IsAmbientOnlyBreadroom("breadroom_wa") {
		t.Error("breadroom_wa is an ambient-only breadroom and should be flagged")
	}
	if g.IsAmbientOnlyBreadroom("breadroom_east") {
		t.Error("breadroom_east supports both states and should not be flagged")
	}
	if g.IsAmbientOnlyBreadroom("hub_east") {
		t.Error("a hub is not a breadroom regardless of its storage mode")
	}
}

func TestLegsAreSortedDeterministically(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	legs := g.Legs()
	for i := 1; i < len(legs); i++ {
		prev, cur := legs[i-1], legs[i]
		if prev.Origin > cur.Origin || (prev.Origin == cur.Origin && prev.Destination > cur.Destination) {
			t.Fatalf("Legs() not sorted: %v before %v", prev, cur)
		}
	}
}

func TestBuildRegistersStorageNodeAsARealLocation(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	loc, ok := g.Location(domain.StorageNodeID)
	if !ok {
		t.Fatal("the synthetic storage node must be queryable as a real Location")
	}
	if loc.Storage != domain.StorageBoth {
		t.Errorf("storage node Storage = %v, want StorageBoth (it both freezes and holds ambient stock)", loc.Storage)
	}
	found := false
	for _, l := range g.Locations() {
		if l.ID == domain.StorageNodeID {
			found = true
		}
	}
	if !found {
		t.Error("the storage node should also appear in Locations()")
	}
}

func TestConnectivitySummary(t *testing.T) {
	g, err := Build(testLocations(), testRoutes(), "plant")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	summary := g.ConnectivitySummary()
	if !summary.Reachable["plant"]["breadroom_east"] {
		t.Error("breadroom_east should be reachable from plant")
	}
	if !summary.Reachable["plant"]["breadroom_wa"] {
		t.Error("breadroom_wa should be reachable from plant")
	}
	if summary.ConnectivityRatio != 1.0 {
		t.Errorf("ConnectivityRatio = %v, want 1.0 (every breadroom reachable)", summary.ConnectivityRatio)
	}
}
