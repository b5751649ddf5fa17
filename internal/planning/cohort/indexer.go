// Package cohort builds the sparse, reachability-gated index sets the model
// builder iterates over (spec §4.4). Enumerating every (location, product,
// production_date, current_date) combination over the full horizon is
// combinatorially infeasible; instead each set only contains a tuple when a
// cohort could physically exist there on that date, given network transit
// time and shelf-life budgets.
package cohort

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/network"
)

// DefaultWarnThreshold mirrors the original's 200,000-cohort size warning:
// above this many entries in a single set, the model is likely to be slow
// to build and solve, and the caller should consider narrowing the
// horizon or product list.
const DefaultWarnThreshold = 200_000

// Indexes holds every sparse set the model builder needs.
type Indexes struct {
	// Frozen is every (location, product, production_date, current_date)
	// quadruple at which a frozen cohort can exist.
	Frozen map[domain.CohortKey]map[domain.Date]bool
	// Ambient is the analogous set for ambient-state cohorts (including
	// cohorts that began frozen and transitioned in transit, which age
	// from their original production date).
	Ambient map[domain.CohortKey]map[domain.Date]bool
	// Shipment maps a (leg, product) pair to the set of departure dates on
	// which shipping some cohort of that product over that leg is
	// physically possible.
	Shipment map[ShipmentKey]map[domain.Date]bool
	// Demand is every (location, product, date) at which a demand
	// obligation can be met by some reachable cohort.
	Demand map[domain.DemandKey]bool
	// FreezeThaw maps a frozen-state (location, product, production_date)
	// key to the set of dates, within the frozen shelf-life budget, on
	// which a conversion can happen there: freezing ambient arrivals at a
	// freeze-capable location, or thawing frozen-mode arrivals at a
	// location that cannot hold frozen stock.
	FreezeThaw map[domain.CohortKey]map[domain.Date]bool

	// MinTransitDays is the shortest transit time, in days, from
	// domain.StorageNodeID to each location, used to gate reachability.
	MinTransitDays map[string]int
}

// ShipmentKey identifies a cohort flow over one leg.
type ShipmentKey struct {
	Leg     domain.LegKey
	Product string
}

// Size returns the total number of (key, date) entries across all sets,
// the figure compared against the warn threshold.
func (ix *Indexes) Size() int {
	n := 0
	for _, dates := range ix.Frozen {
		n += len(dates)
	}
	for _, dates := range ix.Ambient {
		n += len(dates)
	}
	for _, dates := range ix.Shipment {
		n += len(dates)
	}
	n += len(ix.Demand)
	for _, dates := range ix.FreezeThaw {
		n += len(dates)
	}
	return n
}

// Options configures index construction.
type Options struct {
	WarnThreshold int
}

func (o Options) warnThreshold() int {
	if o.WarnThreshold <= 0 {
		return DefaultWarnThreshold
	}
	return o.WarnThreshold
}

// Build constructs all sparse sets for the given products, legs actually
// used by some enumerated route, and planning horizon. initial carries the
// canonicalized starting-inventory cohorts (domain.InventorySnapshot.
// Canonicalize's output, or nil); a cohort backed by starting inventory is
// reachable regardless of transit time (reachability rule clause 2, spec
// §4.4), since it is already physically on hand on day one.
//
// It returns a non-fatal warning when the resulting index exceeds the
// configured warn threshold (the caller decides whether to surface it and
// continue, or treat it as cause to narrow the horizon).
func Build(g *network.Graph, legs []domain.Leg, products []string, horizon domain.DateRange, opts Options, initial map[domain.CohortKey]float64) (*Indexes, string, error) {
	if horizon.End.Before(horizon.Start) {
		return nil, "", fmt.Errorf("cohort: empty horizon")
	}

	minTransit := shortestTransitDays(g, legs)

	ix := &Indexes{
		Frozen:         make(map[domain.CohortKey]map[domain.Date]bool),
		Ambient:        make(map[domain.CohortKey]map[domain.Date]bool),
		Shipment:       make(map[ShipmentKey]map[domain.Date]bool),
		Demand:         make(map[domain.DemandKey]bool),
		FreezeThaw:     make(map[domain.CohortKey]map[domain.Date]bool),
		MinTransitDays: minTransit,
	}

	// reach starts as a copy of the transit distances and is widened by
	// starting inventory below; ix.MinTransitDays keeps transit only.
	reach := make(map[string]int, len(minTransit))
	for loc, d := range minTransit {
		reach[loc] = d
	}

	days := horizon.Days()

	incomingFrozenLeg := make(map[string]bool)
	for _, leg := range legs {
		if leg.Mode == domain.TransportFrozen {
			incomingFrozenLeg[leg.Destination] = true
		}
	}

	for _, loc := range g.Locations() {
		dist, reachable := minTransit[loc.ID]
		if !reachable {
			continue
		}
		for _, product := range products {
			for _, prodDate := range days {
				earliest := prodDate.AddDays(dist)

				if loc.SupportsFrozen() {
					addCohortDates(ix.Frozen, domain.CohortKey{Location: loc.ID, Product: product, ProductionDt: prodDate, State: domain.StateFrozen},
						earliest, prodDate.AddDays(domain.FrozenShelfLifeDays), horizon)
				}
				if loc.SupportsAmbient() {
					// The WA/ambient-only-breadroom thaw destination resets
					// the shelf-life budget to the 14-day thawed window
					// (spec §4.4 set 2); every other ambient-capable
					// location uses the full 17-day ambient budget.
					cap := domain.AmbientShelfLifeDays
					if g.IsAmbientOnlyBreadroom(loc.ID) {
						cap = domain.ThawedShelfLifeDays
					}
					earliestAmbient := earliest
					if !loc.SupportsFrozen() && incomingFrozenLeg[loc.ID] {
						// A thaw-reset cohort is keyed by its thaw date, not
						// an original production date requiring further
						// transit: by the date this key names, the frozen
						// leg has already arrived and converted on the spot
						// (addThawConstraints), so it needs no additional
						// transit lead time to exist here.
						earliestAmbient = prodDate
					}
					addCohortDates(ix.Ambient, domain.CohortKey{Location: loc.ID, Product: product, ProductionDt: prodDate, State: domain.StateAmbient},
						earliestAmbient, prodDate.AddDays(cap), horizon)
				}
				// FreezeThaw holds two distinct conversion opportunities,
				// both keyed by a frozen cohort identity: auto-freeze of
				// ambient arrivals at a freeze-capable location (spec item
				// 11), and auto-thaw of a frozen-mode arrival at a location
				// that cannot hold frozen stock at all (spec item 12).
				switch {
				case loc.CanFreezeThaw() && loc.SupportsFrozen():
					addCohortDates(ix.FreezeThaw, domain.CohortKey{Location: loc.ID, Product: product, ProductionDt: prodDate, State: domain.StateFrozen},
						earliest, prodDate.AddDays(domain.FrozenShelfLifeDays), horizon)
				case !loc.SupportsFrozen() && incomingFrozenLeg[loc.ID]:
					addCohortDates(ix.FreezeThaw, domain.CohortKey{Location: loc.ID, Product: product, ProductionDt: prodDate, State: domain.StateFrozen},
						earliest, prodDate.AddDays(domain.FrozenShelfLifeDays), horizon)
				}
			}
		}
	}

	for key, qty := range initial {
		if qty <= 0 {
			continue
		}
		switch key.State {
		case domain.StateFrozen:
			addCohortDates(ix.Frozen, key, horizon.Start, key.ProductionDt.AddDays(domain.FrozenShelfLifeDays), horizon)
			if loc, ok := g.Location(key.Location); ok && loc.CanFreezeThaw() && loc.SupportsFrozen() {
				addCohortDates(ix.FreezeThaw, key, horizon.Start, key.ProductionDt.AddDays(domain.FrozenShelfLifeDays), horizon)
			}
		default:
			cap := domain.AmbientShelfLifeDays
			if g.IsAmbientOnlyBreadroom(key.Location) {
				cap = domain.ThawedShelfLifeDays
			}
			ambKey := domain.CohortKey{Location: key.Location, Product: key.Product, ProductionDt: key.ProductionDt, State: domain.StateAmbient}
			addCohortDates(ix.Ambient, ambKey, horizon.Start, key.ProductionDt.AddDays(cap), horizon)
		}
		if _, ok := reach[key.Location]; !ok {
			reach[key.Location] = 0
		}
		if loc, ok := g.Location(key.Location); ok && loc.Type == domain.LocationBreadroom {
			for _, product := range products {
				if product != key.Product {
					continue
				}
				for _, d := range days {
					ix.Demand[domain.DemandKey{Location: key.Location, Product: product, Date: d}] = true
				}
			}
		}
	}

	for _, leg := range legs {
		originDist, ok := reach[leg.Origin]
		if !ok {
			continue
		}
		for _, product := range products {
			for _, prodDate := range days {
				earliestDeparture := prodDate.AddDays(originDist)
				// A shipment cannot depart before the cohort could have
				// arrived at the leg's origin, nor so late that it would
				// already have exceeded shelf life before departing
				// (using the conservative frozen budget; the model itself
				// enforces the exact state-specific budget per cohort).
				latestDeparture := prodDate.AddDays(domain.FrozenShelfLifeDays - leg.TransitDays)
				key := ShipmentKey{Leg: leg.Key(), Product: product}
				addCohortDateSet(ix.Shipment, key, earliestDeparture, latestDeparture, horizon)
			}
		}
	}

	for _, loc := range g.Locations() {
		if loc.Type != domain.LocationBreadroom {
			continue
		}
		dist, reachable := reach[loc.ID]
		if !reachable {
			continue
		}
		for _, product := range products {
			for _, d := range days {
				if d.Sub(horizon.Start) < dist {
					continue
				}
				ix.Demand[domain.DemandKey{Location: loc.ID, Product: product, Date: d}] = true
			}
		}
	}

	warning := ""
	if size := ix.Size(); size > opts.warnThreshold() {
		warning = fmt.Sprintf("cohort index has %d entries, exceeding the %d warn threshold; consider narrowing the horizon or product list", size, opts.warnThreshold())
	}

	return ix, warning, nil
}

func addCohortDates(set map[domain.CohortKey]map[domain.Date]bool, key domain.CohortKey, earliest, latest domain.Date, horizon domain.DateRange) {
	addCohortDateSet(set, key, earliest, latest, horizon)
}

func addCohortDateSet[K comparable](set map[K]map[domain.Date]bool, key K, earliest, latest domain.Date, horizon domain.DateRange) {
	if earliest.Before(horizon.Start) {
		earliest = horizon.Start
	}
	if latest.After(horizon.End) {
		latest = horizon.End
	}
	if latest.Before(earliest) {
		return
	}
	dates, ok := set[key]
	if !ok {
		dates = make(map[domain.Date]bool)
		set[key] = dates
	}
	for d := earliest; !d.After(latest); d = d.AddDays(1) {
		dates[d] = true
	}
}

// SortedFrozenKeys returns the Frozen set's keys in deterministic order
// (location, product, production date), as required by spec §5's
// ordering guarantee.
func (ix *Indexes) SortedFrozenKeys() []domain.CohortKey {
	return sortCohortKeys(ix.Frozen)
}

// SortedAmbientKeys returns the Ambient set's keys in deterministic order.
func (ix *Indexes) SortedAmbientKeys() []domain.CohortKey {
	return sortCohortKeys(ix.Ambient)
}

// SortedFreezeThawKeys returns the FreezeThaw set's keys in deterministic
// order.
func (ix *Indexes) SortedFreezeThawKeys() []domain.CohortKey {
	return sortCohortKeys(ix.FreezeThaw)
}

func sortCohortKeys(set map[domain.CohortKey]map[domain.Date]bool) []domain.CohortKey {
	out := make([]domain.CohortKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		if out[i].ProductionDt != out[j].ProductionDt {
			return out[i].ProductionDt < out[j].ProductionDt
		}
		return out[i].State < out[j].State
	})
	return out
}

// SortedDates returns the dates for a cohort key in chronological order.
func SortedDates(dates map[domain.Date]bool) []domain.Date {
	out := make([]domain.Date, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// dijkstra item.
type pqItem struct {
	loc  string
	dist int
}
type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestTransitDays computes, for every location reachable from
// domain.StorageNodeID over legs, the minimum total transit days to reach
// it (Dijkstra, since transit days are non-negative edge weights).
func shortestTransitDays(g *network.Graph, legs []domain.Leg) map[string]int {
	adj := make(map[string][]domain.Leg)
	for _, l := range legs {
		adj[l.Origin] = append(adj[l.Origin], l)
	}

	dist := map[string]int{domain.StorageNodeID: 0}
	pq := &priorityQueue{{loc: domain.StorageNodeID, dist: 0}}
	heap.Init(pq)

	visited := map[string]bool{}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.loc] {
			continue
		}
		visited[cur.loc] = true
		for _, leg := range adj[cur.loc] {
			nd := cur.dist + leg.TransitDays
			if d, ok := dist[leg.Destination]; !ok || nd < d {
				dist[leg.Destination] = nd
				heap.Push(pq, pqItem{loc: leg.Destination, dist: nd})
			}
		}
	}

	return dist
}
