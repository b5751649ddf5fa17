package model

import (
	"fmt"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
)

// addObjective composes the total cost objective: production + labor + holding +
// transport + freeze/thaw handling + truck fixed/variable cost + shortage
// penalty + (optional) production smoothing (spec §4.5 objective
// composition). It never fails: any term whose variable wasn't built for
// the current sparse index set is simply omitted, since that only means
// the cohort/leg/day combination is not reachable.
func addObjective(m *milp.Model, in Input, demandKeys []domain.DemandKey, shipmentKeys []cohort.ShipmentKey) {
	obj := milp.LinExpr{}

	for _, loc := range in.Graph.Locations() {
		if loc.Type != domain.LocationManufacturing {
			continue
		}
		for _, product := range in.Products {
			for _, d := range in.Horizon.Days() {
				name := varProduction(loc.ID, product, d)
				if !m.HasVar(name) {
					continue
				}
				if in.Costs.ProductionCostPerUnit != 0 {
					obj.Add(in.Costs.ProductionCostPerUnit, name)
				}
				// Labor cost stratification (spec §3 labor rules): a fixed
				// weekday's base hours are a sunk cost already paid
				// regardless of production, so only the overtime rate is
				// charged on marginal units; a non-fixed day pays its
				// (higher) rate on every unit produced, since the minimum
				// commitment is only incurred when the plant runs at all.
				if day, ok := in.Labor.Get(d); ok {
					rate := day.Overtime
					if !day.IsFixedDay {
						rate = day.NonFixedRate
					}
					if rate != 0 {
						obj.Add(rate/domain.ProductionRateUnitsPerHour, name)
					}
				}
			}
		}
	}

	// Non-fixed day minimum-hours commitment: paid once, only if the plant
	// produces at all that day (production_day[d]=1), on top of the
	// per-unit rate above.
	for _, d := range in.Horizon.Days() {
		day, ok := in.Labor.Get(d)
		if !ok || day.IsFixedDay || day.MinimumHours == 0 || day.NonFixedRate == 0 {
			continue
		}
		if name := varProductionDay(d); m.HasVar(name) {
			obj.Add(day.MinimumHours*day.NonFixedRate, name)
		}
	}

	for _, key := range in.Indexes.SortedFrozenKeys() {
		for _, d := range cohort.SortedDates(in.Indexes.Frozen[key]) {
			name := varInventory(domain.StateFrozen, key, d)
			if in.Costs.HoldingCostFrozenPerUnitDay != 0 {
				obj.Add(in.Costs.HoldingCostFrozenPerUnitDay, name)
			}
			_ = name
		}
	}
	for _, key := range in.Indexes.SortedAmbientKeys() {
		for _, d := range cohort.SortedDates(in.Indexes.Ambient[key]) {
			name := varInventory(domain.StateAmbient, key, d)
			if in.Costs.HoldingCostAmbientPerUnitDay != 0 {
				obj.Add(in.Costs.HoldingCostAmbientPerUnitDay, name)
			}
		}
	}

	for _, sk := range shipmentKeys {
		leg, ok := in.Graph.Leg(sk.Leg)
		if !ok || leg.CostPerUnit == 0 {
			continue
		}
		for _, d := range cohort.SortedDates(in.Indexes.Shipment[sk]) {
			for _, prodDate := range in.Horizon.Days() {
				name := varShipment(sk.Leg, sk.Product, prodDate, d)
				if m.HasVar(name) {
					obj.Add(leg.CostPerUnit, name)
				}
			}
		}
	}

	for _, key := range in.Indexes.SortedFreezeThawKeys() {
		for _, d := range cohort.SortedDates(in.Indexes.FreezeThaw[key]) {
			if name := varFreezeThaw(key, d); m.HasVar(name) && in.Costs.ThawCostPerUnit != 0 {
				obj.Add(in.Costs.ThawCostPerUnit, name)
			}
			if name := varFreeze(key, d); m.HasVar(name) && in.Costs.FreezeCostPerUnit != 0 {
				obj.Add(in.Costs.FreezeCostPerUnit, name)
			}
		}
	}

	for _, truck := range in.Trucks {
		for _, d := range in.Horizon.Days() {
			usedName := varTruckUsed(truck.ID, d)
			if m.HasVar(usedName) && truck.FixedCost != 0 {
				obj.Add(truck.FixedCost, usedName)
			}
			for _, product := range in.Products {
				loadName := varTruckLoad(truck.ID, product, d)
				if m.HasVar(loadName) && truck.CostPerUnit != 0 {
					obj.Add(truck.CostPerUnit, loadName)
				}
			}
		}
	}

	for _, dk := range demandKeys {
		name := varShortage(dk)
		obj.Add(in.Costs.ShortagePenaltyPerUnit, name)
	}

	if in.EnableProductionSmoothing && in.SmoothingCostPerUnit != 0 {
		for _, loc := range in.Graph.Locations() {
			if loc.Type != domain.LocationManufacturing {
				continue
			}
			for _, product := range in.Products {
				days := in.Horizon.Days()
				for i := 1; i < len(days); i++ {
					name := fmt.Sprintf("prod_delta[%s,%s,%s]", loc.ID, product, days[i])
					if m.HasVar(name) {
						obj.Add(in.SmoothingCostPerUnit, name)
					}
				}
			}
		}
	}

	m.Objective = obj
}
