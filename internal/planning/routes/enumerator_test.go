package routes

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/network"
)

func buildTestGraph(t *testing.T) *network.Graph {
	t.Helper()
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "hub", Type: domain.LocationHub, Storage: domain.StorageBoth},
		{ID: "breadroom_direct", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
		{ID: "breadroom_via_hub", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
	r := []domain.Route{
		{ID: "r1", Stops: []string{"plant", "hub"}, Hops: []domain.RouteHop{{TransitDays: 1, CostPerUnit: 0.2, Mode: domain.TransportFrozen}}},
		{ID: "r2", Stops: []string{"hub", "breadroom_via_hub"}, Hops: []domain.RouteHop{{TransitDays: 2, CostPerUnit: 0.4, Mode: domain.TransportFrozen}}},
		{ID: "r3", Stops: []string{"plant", "breadroom_direct"}, Hops: []domain.RouteHop{{TransitDays: 3, CostPerUnit: 0.9, Mode: domain.TransportFrozen}}},
	}
	g, err := network.Build(locations, r, "plant")
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}
	return g
}

func TestFindAllPathsDirectAndMultiHop(t *testing.T) {
	g := buildTestGraph(t)
	e := New(g)

	paths := e.FindAllPaths(domain.StorageNodeID, "breadroom_via_hub", Options{})
	if len(paths) != 1 {
		t.Fatalf("len(paths) = %d, want 1", len(paths))
	}
	if got := paths[0].Stops(); len(got) != 3 {
		t.Errorf("Stops() = %v, want 3 stops (storage, hub, breadroom)", got)
	}
	if paths[0].TransitDays != 3 {
		t.Errorf("TransitDays = %d, want 3", paths[0].TransitDays)
	}
}

func TestFindAllPathsSortedByTransitThenCost(t *testing.T) {
	g := buildTestGraph(t)
	e := New(g)

	paths := e.FindAllPaths(domain.StorageNodeID, "breadroom_direct", Options{})
	if len(paths) == 0 {
		t.Fatal("expected at least one path to breadroom_direct")
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1].TransitDays > paths[i].TransitDays {
			t.Fatalf("paths not sorted by transit days: %v then %v", paths[i-1], paths[i])
		}
	}
}

func TestFindFeasiblePathsDropsRoutesExceedingShelfLife(t *testing.T) {
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
		{ID: "far_breadroom", Type: domain.LocationBreadroom, Storage: domain.StorageBoth},
	}
	r := []domain.Route{
		{ID: "r1", Stops: []string{"plant", "far_breadroom"}, Hops: []domain.RouteHop{{TransitDays: 16, CostPerUnit: 2.0, Mode: domain.TransportAmbient}}},
	}
	g, err := network.Build(locations, r, "plant")
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}
	e := New(g)

	res := e.FindFeasiblePaths(domain.StorageNodeID, "far_breadroom", Options{InitialState: domain.StateAmbient})
	if len(res.Paths) != 0 {
		t.Fatalf("expected no feasible paths, got %d", len(res.Paths))
	}
	if res.DroppedShelfLife != 1 {
		t.Errorf("DroppedShelfLife = %d, want 1", res.DroppedShelfLife)
	}
}

func TestRecommendReturnsBestFeasiblePath(t *testing.T) {
	g := buildTestGraph(t)
	e := New(g)

	p, ok := e.Recommend(domain.StorageNodeID, "breadroom_via_hub", Options{InitialState: domain.StateFrozen})
	if !ok {
		t.Fatal("expected a feasible recommendation")
	}
	if p.Destination != "breadroom_via_hub" {
		t.Errorf("Destination = %q, want breadroom_via_hub", p.Destination)
	}
}

func TestRecommendFalseWhenUnreachable(t *testing.T) {
	g := buildTestGraph(t)
	e := New(g)

	_, ok := e.Recommend(domain.StorageNodeID, "nonexistent", Options{InitialState: domain.StateFrozen})
	if ok {
		t.Error("expected no recommendation for an unreachable destination")
	}
}

func TestAllLegsUsedDedupesAndSorts(t *testing.T) {
	g := buildTestGraph(t)
	e := New(g)

	p1 := e.FindAllPaths(domain.StorageNodeID, "breadroom_via_hub", Options{})
	p2 := e.FindAllPaths(domain.StorageNodeID, "breadroom_direct", Options{})

	legs := AllLegsUsed(append(p1, p2...))
	seen := map[domain.LegKey]bool{}
	for _, l := range legs {
		if seen[l.Key()] {
			t.Fatalf("AllLegsUsed returned a duplicate leg: %v", l)
		}
		seen[l.Key()] = true
	}
	for i := 1; i < len(legs); i++ {
		if legs[i-1].Origin > legs[i].Origin {
			t.Fatalf("AllLegsUsed not sorted by origin: %v before %v", legs[i-1], legs[i])
		}
	}
}
