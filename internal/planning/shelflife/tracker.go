// Package shelflife is a pure helper over (production date, initial state,
// ordered legs) that simulates aging and state transitions through a route
// (spec §4.3). It has no dependency on the solver and is used by the
// route enumerator.
package shelflife

import (
	"fmt"

	"github.com/pinggolf/breadplan/internal/planning/domain"
)

// MinBreadroomShelfLifeDays is the minimum remaining shelf life a breadroom
// will accept on arrival.
const MinBreadroomShelfLifeDays = 7

// RouteLeg is one hop of a route being tracked, annotated with whether
// arrival at its destination triggers a thaw (i.e. the destination is an
// ambient-only breadroom receiving a frozen shipment — spec §3's
// arrival-state rule).
type RouteLeg struct {
	domain.Leg
	TriggersThaw bool
}

// Snapshot is the shelf-life state of a cohort at one point along a route.
type Snapshot struct {
	Location        string
	ArrivalDate     domain.Date
	State           domain.ProductState
	ProductionDate  domain.Date
	AgeDays         int
	ThawDate        domain.Date
	HasThawDate     bool
	RemainingDays   int
	IsExpired       bool
}

// remaining returns the days of shelf life left, measured from the
// production date for Frozen/Ambient and from the thaw date once thawed.
func (s Snapshot) remaining() int {
	if s.HasThawDate {
		return domain.ThawedShelfLifeDays - (s.ArrivalDate.Sub(s.ThawDate))
	}
	return s.State.ShelfLifeDays() - s.AgeDays
}

// TrackThroughRoute ages a cohort produced on productionDate, starting in
// initialState, across the ordered legs, returning one Snapshot per leg
// (in leg order). Thawing occurs automatically when a leg with
// TriggersThaw=true is traversed while the cohort is still Frozen: the
// snapshot's state becomes Thawed with ThawDate = arrival date at that leg
// and the clock resets (spec §3, §9 "Thaw cohort identity").
//
// A Frozen cohort crossing an Ambient-mode leg without a thaw trigger
// automatically transitions to Ambient, continuing to age from its
// original production date (spec §3 "Frozen -> Ambient... continues aging
// from production date").
func TrackThroughRoute(productionDate domain.Date, initialState domain.ProductState, legs []RouteLeg) ([]Snapshot, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("shelflife: route must have at least one leg")
	}

	state := initialState
	age := 0
	var thawDate domain.Date
	hasThaw := false
	currentDate := productionDate

	snapshots := make([]Snapshot, 0, len(legs))

	for _, leg := range legs {
		// A frozen cohort entering an ambient-mode leg thaws-in-transit to
		// ambient (continuing to age from production date) unless the leg
		// is itself the thaw-trigger leg, handled below.
		if state == domain.StateFrozen && leg.Mode == domain.TransportAmbient && !leg.TriggersThaw {
			state = domain.StateAmbient
		}

		currentDate = currentDate.AddDays(leg.TransitDays)
		age += leg.TransitDays
		if hasThaw {
			// thawDate itself doesn't move; remaining is recomputed from it.
		}

		if leg.TriggersThaw && state == domain.StateFrozen {
			state = domain.StateThawed
			thawDate = currentDate
			hasThaw = true
		}

		snap := Snapshot{
			Location:       leg.Destination,
			ArrivalDate:    currentDate,
			State:          state,
			ProductionDate: productionDate,
			AgeDays:        age,
			ThawDate:       thawDate,
			HasThawDate:    hasThaw,
		}
		snap.RemainingDays = snap.remaining()
		snap.IsExpired = snap.RemainingDays <= 0
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// ValidateBreadroomAcceptance reports whether a snapshot meets the
// breadroom acceptance criterion (at least MinBreadroomShelfLifeDays
// remaining).
func ValidateBreadroomAcceptance(s Snapshot) (bool, string) {
	if s.IsExpired {
		return false, "product has expired"
	}
	if s.RemainingDays < MinBreadroomShelfLifeDays {
		return false, fmt.Sprintf("only %d day(s) remaining, breadroom requires %d", s.RemainingDays, MinBreadroomShelfLifeDays)
	}
	return true, "meets breadroom acceptance criteria"
}

// ValidateRouteFeasibility reports whether a route is theoretically
// shelf-life feasible (spec §4.2): total transit plus the breadroom
// acceptance margin must not exceed the initial state's shelf-life budget,
// and every mode transition along the way must be legal (Frozen can cross
// an Ambient leg by auto-thawing to Ambient, or hit a thaw-trigger leg to
// become Thawed; Ambient and Thawed are terminal).
func ValidateRouteFeasibility(legs []RouteLeg, initialState domain.ProductState) (bool, string) {
	totalTransit := 0
	for _, l := range legs {
		totalTransit += l.TransitDays
	}

	maxShelfLife := initialState.ShelfLifeDays()
	required := totalTransit + MinBreadroomShelfLifeDays
	if required > maxShelfLife {
		return false, fmt.Sprintf("route requires %d days (transit %d + breadroom margin %d), but %s shelf life is only %d days",
			required, totalTransit, MinBreadroomShelfLifeDays, initialState, maxShelfLife)
	}

	state := initialState
	for _, leg := range legs {
		if state == domain.StateAmbient && leg.Mode == domain.TransportFrozen {
			return false, fmt.Sprintf("ambient product cannot travel on a frozen-mode leg %s->%s", leg.Origin, leg.Destination)
		}
		if state == domain.StateThawed && leg.Mode == domain.TransportFrozen {
			return false, fmt.Sprintf("thawed product cannot travel on a frozen-mode leg %s->%s", leg.Origin, leg.Destination)
		}
		if state == domain.StateFrozen && leg.Mode == domain.TransportAmbient && !leg.TriggersThaw {
			state = domain.StateAmbient
		}
		if leg.TriggersThaw && state == domain.StateFrozen {
			state = domain.StateThawed
		}
	}

	return true, "route is feasible"
}
