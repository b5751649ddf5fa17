// Package network holds the NetworkGraph: locations, routes, and the legs
// derived from them, plus reachability and classification queries (spec
// §4.1). It owns nodes and edges in flat map-keyed storage rather than
// letting locations and routes hold back-pointers to each other (spec §9's
// "cyclic graph references" redesign note).
package network

import (
	"fmt"
	"sort"

	"github.com/pinggolf/breadplan/internal/planning/domain"
)

// Graph is the built network: locations plus the legs derived from
// configured routes, with all real-manufacturing-origin legs rewritten to
// originate at the synthetic storage node.
type Graph struct {
	locations map[string]domain.Location
	legs      map[domain.LegKey]domain.Leg
	legsFrom  map[string][]domain.LegKey
	legsTo    map[string][]domain.LegKey

	manufacturingID string
}

// Build constructs a Graph from locations and configured routes. A route is
// decomposed into one Leg per consecutive pair of stops. Real legs whose
// origin is manufacturingID are replaced by legs originating at
// domain.StorageNodeID, preserving transit/cost/mode.
//
// It is an error for two routes to define conflicting attributes for the
// same (origin, destination) pair (ambiguous leg cost/transit), or for a
// route to name fewer than 2 stops.
func Build(locations []domain.Location, routes []domain.Route, manufacturingID string) (*Graph, error) {
	g := &Graph{
		locations:       make(map[string]domain.Location, len(locations)),
		legs:            make(map[domain.LegKey]domain.Leg),
		legsFrom:        make(map[string][]domain.LegKey),
		legsTo:          make(map[string][]domain.LegKey),
		manufacturingID: manufacturingID,
	}

	for _, l := range locations {
		g.locations[l.ID] = l
	}

	// The synthetic storage node is attached to the manufacturing site:
	// production lands here directly and trucks load from here (spec §3).
	// It must be a real, queryable Location even when the caller's location
	// list never mentions it, since it both stores and forwards stock.
	if _, ok := g.locations[domain.StorageNodeID]; !ok {
		g.locations[domain.StorageNodeID] = domain.Location{
			ID:      domain.StorageNodeID,
			Type:    domain.LocationStorage,
			Storage: domain.StorageBoth,
		}
	}

	for _, r := range routes {
		if len(r.Stops) < 2 || len(r.Hops) != len(r.Stops)-1 {
			return nil, fmt.Errorf("network: route %q has malformed stops/hops (stops=%d hops=%d)", r.ID, len(r.Stops), len(r.Hops))
		}
		for i, hop := range r.Hops {
			origin := r.Stops[i]
			dest := r.Stops[i+1]
			if origin == manufacturingID {
				origin = domain.StorageNodeID
			}
			leg := domain.Leg{
				Origin:      origin,
				Destination: dest,
				TransitDays: hop.TransitDays,
				CostPerUnit: hop.CostPerUnit,
				Mode:        hop.Mode,
			}
			key := leg.Key()
			if existing, ok := g.legs[key]; ok {
				if existing != leg {
					return nil, fmt.Errorf("network: conflicting leg attributes for %s -> %s (route %q)", origin, dest, r.ID)
				}
				continue
			}
			g.legs[key] = leg
			g.legsFrom[origin] = append(g.legsFrom[origin], key)
			g.legsTo[dest] = append(g.legsTo[dest], key)
		}
	}

	// Invariant 6: no leg may originate at the real manufacturing site. The
	// rewrite above moves every such leg to the storage node; this check
	// guarantees the graph never exposes one to client code once built.
	for key := range g.legs {
		if key.Origin == manufacturingID {
			return nil, fmt.Errorf("network: leg %s -> %s still originates at manufacturing site after rewrite", key.Origin, key.Destination)
		}
	}

	return g, nil
}

// Location looks up a location by ID.
func (g *Graph) Location(id string) (domain.Location, bool) {
	l, ok := g.locations[id]
	return l, ok
}

// Locations returns all locations, sorted by ID for deterministic iteration.
func (g *Graph) Locations() []domain.Location {
	out := make([]domain.Location, 0, len(g.locations))
	for _, l := range g.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Leg looks up a leg by its (origin, destination) key.
func (g *Graph) Leg(key domain.LegKey) (domain.Leg, bool) {
	l, ok := g.legs[key]
	return l, ok
}

// Legs returns every leg in the graph, sorted by (origin, destination) for
// deterministic iteration (spec §5 ordering guarantee).
func (g *Graph) Legs() []domain.Leg {
	out := make([]domain.Leg, 0, len(g.legs))
	for _, l := range g.legs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Origin != out[j].Origin {
			return out[i].Origin < out[j].Origin
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

// LegsFrom returns the legs whose origin is loc, sorted by destination.
func (g *Graph) LegsFrom(loc string) []domain.Leg {
	keys := g.legsFrom[loc]
	out := make([]domain.Leg, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.legs[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// LegsTo returns the legs whose destination is loc, sorted by origin.
func (g *Graph) LegsTo(loc string) []domain.Leg {
	keys := g.legsTo[loc]
	out := make([]domain.Leg, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.legs[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}

// ArrivalState derives the state a shipment over leg arrives in (spec §3
// arrival-state rule): a Frozen-mode leg into a location that can hold
// frozen stock arrives Frozen; everything else arrives Ambient (a frozen
// leg into an ambient-only location triggers thaw-on-arrival, which the
// cohort indexer and model builder represent as a fresh Ambient cohort
// stamped with production_date = arrival date).
func (g *Graph) ArrivalState(leg domain.Leg) domain.ProductState {
	dest, ok := g.locations[leg.Destination]
	if leg.Mode == domain.TransportFrozen && ok && dest.SupportsFrozen() {
		return domain.StateFrozen
	}
	return domain.StateAmbient
}

// IsFrozenStorage reports whether loc is a frozen-storage-capable location
// (frozen-only or both).
func (g *Graph) IsFrozenStorage(loc string) bool {
	l, ok := g.locations[loc]
	return ok && l.SupportsFrozen()
}

// IsAmbientOnlyBreadroom reports whether loc is a breadroom that can only
// hold ambient stock — the structural condition that triggers
// thaw-on-arrival for an incoming frozen shipment (spec §3, §9 Open
// Question 1: identified structurally, never by hardcoded location ID).
func (g *Graph) IsAmbientOnlyBreadroom(loc string) bool {
	l, ok := g.locations[loc]
	return ok && l.Type == domain.LocationBreadroom && l.Storage == domain.StorageAmbientOnly
}

// ManufacturingID returns the configured manufacturing site ID.
func (g *Graph) ManufacturingID() string { return g.manufacturingID }

// ConnectivitySummary reports, for every (manufacturing, breadroom) pair,
// whether the breadroom is reachable at all via the leg graph (ignoring
// shelf life), plus aggregate connectivity ratio. Supplemented from the
// original's analyze_network_connectivity (route_finder.py); useful as a
// pre-solve sanity check independent of full route enumeration.
type ConnectivitySummary struct {
	Manufacturing      []string
	Breadrooms         []string
	Reachable          map[string]map[string]bool
	ConnectivityRatio  float64
	TotalConnections   int
	PossibleConnections int
}

// ConnectivitySummary computes reachability from every manufacturing/storage
// origin to every breadroom via BFS over legs.
func (g *Graph) ConnectivitySummary() ConnectivitySummary {
	var mfg, breadrooms []string
	for _, l := range g.Locations() {
		switch l.Type {
		case domain.LocationManufacturing:
			mfg = append(mfg, l.ID)
		case domain.LocationBreadroom:
			breadrooms = append(breadrooms, l.ID)
		}
	}

	reachable := make(map[string]map[string]bool, len(mfg))
	total := 0
	for _, m := range mfg {
		from := domain.StorageNodeID
		if from == "" {
			from = m
		}
		reach := g.bfsReach(from)
		reachable[m] = make(map[string]bool, len(breadrooms))
		for _, b := range breadrooms {
			ok := reach[b]
			reachable[m][b] = ok
			if ok {
				total++
			}
		}
	}

	possible := len(mfg) * len(breadrooms)
	ratio := 0.0
	if possible > 0 {
		ratio = float64(total) / float64(possible)
	}

	return ConnectivitySummary{
		Manufacturing:       mfg,
		Breadrooms:          breadrooms,
		Reachable:           reachable,
		ConnectivityRatio:   ratio,
		TotalConnections:    total,
		PossibleConnections: possible,
	}
}

func (g *Graph) bfsReach(from string) map[string]bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, leg := range g.LegsFrom(cur) {
			if !seen[leg.Destination] {
				seen[leg.Destination] = true
				queue = append(queue, leg.Destination)
			}
		}
	}
	return seen
}
