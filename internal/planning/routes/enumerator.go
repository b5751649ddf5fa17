// Package routes enumerates feasible multi-hop paths between two locations
// over a network.Graph (spec §4.2), ranking them and filtering out paths
// that cannot possibly satisfy shelf life regardless of production timing.
package routes

import (
	"sort"

	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/network"
	"github.com/pinggolf/breadplan/internal/planning/shelflife"
)

// DefaultMaxHops bounds path enumeration depth, mirroring the original
// route_finder's max_hops=10 default.
const DefaultMaxHops = 10

// Path is one candidate multi-hop route between two locations, with its
// legs in travel order and the aggregate attributes the enumerator ranks
// on.
type Path struct {
	Origin      string
	Destination string
	Legs        []domain.Leg
	TransitDays int
	TotalCost   float64
}

// Stops returns the ordered list of node IDs visited, including origin and
// destination.
func (p Path) Stops() []string {
	out := make([]string, 0, len(p.Legs)+1)
	out = append(out, p.Origin)
	for _, l := range p.Legs {
		out = append(out, l.Destination)
	}
	return out
}

// Options configures enumeration.
type Options struct {
	MaxHops int
	// InitialState is the product state the cohort departs origin in; used
	// only for the shelf-life feasibility pre-filter, not to decide
	// in-transit transitions (the model decides those per cohort).
	InitialState domain.ProductState
}

func (o Options) maxHops() int {
	if o.MaxHops <= 0 {
		return DefaultMaxHops
	}
	return o.MaxHops
}

// Enumerator finds candidate paths over a built graph.
type Enumerator struct {
	graph *network.Graph
}

// New builds an Enumerator over g.
func New(g *network.Graph) *Enumerator {
	return &Enumerator{graph: g}
}

// Result is the outcome of FindFeasiblePaths: the surviving paths plus how
// many candidates were discarded at each stage, for observability (spec
// §4.2 "filtering-count observability").
type Result struct {
	Paths            []Path
	TotalCandidates  int
	DroppedShelfLife int
}

// FindAllPaths performs exhaustive DFS from origin to destination over the
// graph's legs, up to opts.maxHops() hops, with no cycles revisited. Paths
// are returned sorted by (transit days, total cost) ascending, mirroring
// the original route_finder.find_all_paths ordering.
func (e *Enumerator) FindAllPaths(origin, destination string, opts Options) []Path {
	maxHops := opts.maxHops()
	var out []Path

	visited := map[string]bool{origin: true}
	var stack []domain.Leg

	var dfs func(current string)
	dfs = func(current string) {
		if current == destination && len(stack) > 0 {
			out = append(out, buildPath(origin, destination, stack))
			return
		}
		if len(stack) >= maxHops {
			return
		}
		for _, leg := range e.graph.LegsFrom(current) {
			if visited[leg.Destination] {
				continue
			}
			visited[leg.Destination] = true
			stack = append(stack, leg)
			dfs(leg.Destination)
			stack = stack[:len(stack)-1]
			visited[leg.Destination] = false
		}
	}
	dfs(origin)

	sort.Slice(out, func(i, j int) bool {
		if out[i].TransitDays != out[j].TransitDays {
			return out[i].TransitDays < out[j].TransitDays
		}
		return out[i].TotalCost < out[j].TotalCost
	})

	return out
}

func buildPath(origin, destination string, legs []domain.Leg) Path {
	cp := make([]domain.Leg, len(legs))
	copy(cp, legs)
	p := Path{Origin: origin, Destination: destination, Legs: cp}
	for _, l := range cp {
		p.TransitDays += l.TransitDays
		p.TotalCost += l.CostPerUnit
	}
	return p
}

// FindFeasiblePaths narrows FindAllPaths to paths that pass
// shelflife.ValidateRouteFeasibility for opts.InitialState, recording how
// many candidates were dropped for shelf-life reasons.
func (e *Enumerator) FindFeasiblePaths(origin, destination string, opts Options) Result {
	all := e.FindAllPaths(origin, destination, opts)

	res := Result{TotalCandidates: len(all)}
	for _, p := range all {
		legs := make([]shelflife.RouteLeg, len(p.Legs))
		for i, l := range p.Legs {
			legs[i] = shelflife.RouteLeg{
				Leg:          l,
				TriggersThaw: e.graph.IsAmbientOnlyBreadroom(l.Destination) && l.Mode == domain.TransportFrozen,
			}
		}
		ok, _ := shelflife.ValidateRouteFeasibility(legs, opts.InitialState)
		if !ok {
			res.DroppedShelfLife++
			continue
		}
		res.Paths = append(res.Paths, p)
	}

	return res
}

// Recommend returns the single best feasible path (lowest transit, then
// lowest cost), mirroring the original's recommend_route.
func (e *Enumerator) Recommend(origin, destination string, opts Options) (Path, bool) {
	res := e.FindFeasiblePaths(origin, destination, opts)
	if len(res.Paths) == 0 {
		return Path{}, false
	}
	return res.Paths[0], true
}

// AllLegsUsed flattens every leg appearing in any of paths into a
// deduplicated, sorted slice — used by the cohort indexer to restrict
// itself to legs actually reachable by some enumerated route.
func AllLegsUsed(paths []Path) []domain.Leg {
	seen := make(map[domain.LegKey]domain.Leg)
	for _, p := range paths {
		for _, l := range p.Legs {
			seen[l.Key()] = l
		}
	}
	out := make([]domain.Leg, 0, len(seen))
	for _, l := range seen {
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
