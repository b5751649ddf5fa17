// Package model assembles a milp.Model from a network.Graph, its cohort
// indexes, a demand forecast, a labor calendar, and a truck schedule (spec
// §4.5). It is the one package that knows how every other pure package's
// output becomes decision variables and constraints.
package model

import (
	"fmt"
	"sort"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
	"github.com/pinggolf/breadplan/internal/planning/network"
	"github.com/pinggolf/breadplan/internal/planning/perr"
)

// Input bundles everything the builder needs. All slices/maps are treated
// as immutable inputs; Build never mutates them.
type Input struct {
	Graph    *network.Graph
	Indexes  *cohort.Indexes
	Legs     []domain.Leg
	Products []string
	Horizon  domain.DateRange

	Demand map[domain.DemandKey]float64
	Labor  domain.LaborCalendar
	Trucks []domain.Truck
	Costs  domain.CostStructure

	StartingInventory map[domain.CohortKey]float64

	// EnableProductionSmoothing turns on the optional day-over-day
	// production-change penalty described in spec §9; off by default
	// since the original system does not enable it either.
	EnableProductionSmoothing bool
	SmoothingCostPerUnit      float64
}

// Variable name builders. Centralised so the model builder and the
// solution extractor can never drift apart on naming.

func varProduction(loc, product string, d domain.Date) string {
	return fmt.Sprintf("production[%s,%s,%s]", loc, product, d)
}

func varInventory(state domain.ProductState, key domain.CohortKey, cur domain.Date) string {
	return fmt.Sprintf("inv_%s[%s,%s,%s,%s]", state, key.Location, key.Product, key.ProductionDt, cur)
}

func varShipment(leg domain.LegKey, product string, prodDate, departDate domain.Date) string {
	return fmt.Sprintf("ship[%s-%s,%s,%s,%s]", leg.Origin, leg.Destination, product, prodDate, departDate)
}

func varFreezeThaw(key domain.CohortKey, thawDate domain.Date) string {
	return fmt.Sprintf("thaw[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, thawDate)
}

func varFreeze(key domain.CohortKey, d domain.Date) string {
	return fmt.Sprintf("freeze[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
}

func varProductionDay(d domain.Date) string {
	return fmt.Sprintf("production_day[%s]", d)
}

func varTruckUsed(truckID string, d domain.Date) string {
	return fmt.Sprintf("truck_used[%s,%s]", truckID, d)
}

func varTruckLoad(truckID, product string, d domain.Date) string {
	return fmt.Sprintf("truck_load[%s,%s,%s]", truckID, product, d)
}

func varPallets(truckID string, d domain.Date) string {
	return fmt.Sprintf("pallets[%s,%s]", truckID, d)
}

func varShortage(key domain.DemandKey) string {
	return fmt.Sprintf("shortage[%s,%s,%s]", key.Location, key.Product, key.Date)
}

func varConsumed(key domain.CohortKey, d domain.Date) string {
	return fmt.Sprintf("consumed[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
}

// Build assembles the MILP model. It runs pre-solve fatal checks first
// (spec §4.5/§7): every breadroom must appear in Indexes.MinTransitDays
// (reachable from the storage node), every date in the horizon must have a
// labor entry, every fixed day must have positive FixedHours, and the
// shipment index must be non-empty when legs exist. A missing weekend or
// holiday labor entry is rejected exactly like a missing weekday one; it
// is never treated as a zero-capacity day. A failure returns a *perr.Error with Kind=KindInfeasibleInput rather
// than a partially built model.
func Build(in Input) (*milp.Model, error) {
	if err := preSolveChecks(in); err != nil {
		return nil, err
	}

	m := milp.NewModel(milp.Minimize)

	for _, loc := range in.Graph.Locations() {
		if loc.Type != domain.LocationManufacturing {
			continue
		}
		for _, product := range in.Products {
			for _, d := range in.Horizon.Days() {
				name := varProduction(loc.ID, product, d)
				if err := m.AddVar(milp.Var{Name: name, Kind: milp.Continuous, Lower: 0}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, key := range in.Indexes.SortedFrozenKeys() {
		for _, d := range cohort.SortedDates(in.Indexes.Frozen[key]) {
			name := varInventory(domain.StateFrozen, key, d)
			if err := m.AddVar(milp.Var{Name: name, Kind: milp.Continuous, Lower: 0}); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range in.Indexes.SortedAmbientKeys() {
		for _, d := range cohort.SortedDates(in.Indexes.Ambient[key]) {
			name := varInventory(domain.StateAmbient, key, d)
			if err := m.AddVar(milp.Var{Name: name, Kind: milp.Continuous, Lower: 0}); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range in.Indexes.SortedFreezeThawKeys() {
		loc, _ := in.Graph.Location(key.Location)
		for _, d := range cohort.SortedDates(in.Indexes.FreezeThaw[key]) {
			// freeze converts an ambient arrival into this frozen cohort and
			// only makes sense at a location that can hold frozen stock;
			// thaw converts a frozen-mode arrival into a fresh ambient
			// cohort and only makes sense where frozen stock cannot be held
			// (spec items 11/12).
			if loc.CanFreezeThaw() {
				if err := m.AddVar(milp.Var{Name: varFreeze(key, d), Kind: milp.Continuous, Lower: 0}); err != nil {
					return nil, err
				}
			}
			if !loc.SupportsFrozen() {
				if err := m.AddVar(milp.Var{Name: varFreezeThaw(key, d), Kind: milp.Continuous, Lower: 0}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, d := range in.Horizon.Days() {
		if err := m.AddVar(milp.Var{Name: varProductionDay(d), Kind: milp.Binary}); err != nil {
			return nil, err
		}
	}

	shipmentKeys := sortedShipmentKeys(in.Indexes.Shipment)
	for _, sk := range shipmentKeys {
		for _, d := range cohort.SortedDates(in.Indexes.Shipment[sk]) {
			for _, prodDate := range in.Horizon.Days() {
				name := varShipment(sk.Leg, sk.Product, prodDate, d)
				if err := m.AddVar(milp.Var{Name: name, Kind: milp.Continuous, Lower: 0}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, truck := range in.Trucks {
		for _, d := range in.Horizon.Days() {
			if !truck.AppliesOn(int(d.Weekday())) {
				continue
			}
			if err := m.AddVar(milp.Var{Name: varTruckUsed(truck.ID, d), Kind: milp.Binary}); err != nil {
				return nil, err
			}
			if err := m.AddVar(milp.Var{Name: varPallets(truck.ID, d), Kind: milp.Integer, Lower: 0, Upper: float64(truck.PalletCapacity), HasUpper: true}); err != nil {
				return nil, err
			}
			for _, product := range in.Products {
				if err := m.AddVar(milp.Var{Name: varTruckLoad(truck.ID, product, d), Kind: milp.Continuous, Lower: 0}); err != nil {
					return nil, err
				}
			}
		}
	}

	demandKeys := sortedDemandKeys(in.Demand)
	for _, dk := range demandKeys {
		if err := m.AddVar(milp.Var{Name: varShortage(dk), Kind: milp.Continuous, Lower: 0}); err != nil {
			return nil, err
		}
	}

	if err := addLaborConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addInventoryBalanceConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addFreezeConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addThawConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addProductionDayConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addTruckConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addTruckLegLinkage(m, in); err != nil {
		return nil, err
	}
	if err := addTruckTimingConstraints(m, in); err != nil {
		return nil, err
	}
	if err := addDemandConstraints(m, in, demandKeys); err != nil {
		return nil, err
	}
	if in.EnableProductionSmoothing {
		if err := addProductionSmoothing(m, in); err != nil {
			return nil, err
		}
	}

	addObjective(m, in, demandKeys, shipmentKeys)

	return m, nil
}

func preSolveChecks(in Input) error {
	for _, loc := range in.Graph.Locations() {
		if loc.Type != domain.LocationBreadroom {
			continue
		}
		if _, reachable := in.Indexes.MinTransitDays[loc.ID]; !reachable {
			return perr.New(perr.KindInfeasibleInput, "breadroom is not reachable from the storage node", loc.ID)
		}
	}

	for _, d := range in.Horizon.Days() {
		day, ok := in.Labor.Get(d)
		if !ok {
			return perr.New(perr.KindInfeasibleInput, "no labor calendar entry for planning date", d.String())
		}
		if day.IsFixedDay && day.FixedHours <= 0 {
			return perr.New(perr.KindInfeasibleInput, "fixed weekday has zero fixed labor hours", d.String())
		}
	}

	if len(in.Indexes.Shipment) == 0 && len(in.Legs) > 0 {
		return perr.New(perr.KindInfeasibleInput, "no shipment cohorts survived shelf-life/reachability filtering")
	}

	return nil
}

func sortedShipmentKeys(m map[cohort.ShipmentKey]map[domain.Date]bool) []cohort.ShipmentKey {
	out := make([]cohort.ShipmentKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Leg.Origin != out[j].Leg.Origin {
			return out[i].Leg.Origin < out[j].Leg.Origin
		}
		if out[i].Leg.Destination != out[j].Leg.Destination {
			return out[i].Leg.Destination < out[j].Leg.Destination
		}
		return out[i].Product < out[j].Product
	})
	return out
}

func sortedDemandKeys(m map[domain.DemandKey]float64) []domain.DemandKey {
	out := make([]domain.DemandKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Date < out[j].Date
	})
	return out
}
