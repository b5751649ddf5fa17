package model

import (
	"fmt"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
)

// addLaborConstraints caps daily production by available labor hours
// converted to units via domain.ProductionRateUnitsPerHour (spec §4.5 item
// 2). Fixed days are capped at MaxHours regardless of whether the plant
// produces; non-fixed days are capped at MaxHours only when MinimumHours
// has been committed to (modelled here as an unconditional cap, since the
// "pay only if producing" distinction belongs to the objective, not the
// capacity constraint).
func addLaborConstraints(m *milp.Model, in Input) error {
	for _, d := range in.Horizon.Days() {
		day, ok := in.Labor.Get(d)
		if !ok {
			continue
		}
		expr := milp.LinExpr{}
		for _, loc := range in.Graph.Locations() {
			if loc.Type != domain.LocationManufacturing {
				continue
			}
			for _, product := range in.Products {
				name := varProduction(loc.ID, product, d)
				if m.HasVar(name) {
					expr.Add(1.0/domain.ProductionRateUnitsPerHour, name)
				}
			}
		}
		if len(expr.Terms) == 0 {
			continue
		}
		err := m.AddConstraint(milp.Constraint{
			Name:  fmt.Sprintf("labor_cap[%s]", d),
			Expr:  expr,
			Sense: milp.LessEq,
			RHS:   day.MaxHours,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// addInventoryBalanceConstraints ties each cohort's inventory on day d to
// its inventory on d-1 plus inflows minus outflows, per spec §4.5's
// frozen/ambient balance items.
//
// A frozen cohort only exists at a location that can hold frozen stock
// (gated by the cohort indexer), so its balance is: previous day + frozen
// arrivals + freeze-input (ambient converting in, at a freeze-capable
// location) - frozen departures. A frozen-mode leg into a location that
// cannot hold frozen stock never reaches the frozen balance at all — it is
// handled entirely by the thaw-on-arrival equality in addThawConstraints.
//
// An ambient cohort's balance is: previous day + production (storage node
// only) + ambient-mode arrivals + thaw-input (only on the cohort's own
// production date, since thawing resets the clock) - ambient-mode
// departures - freeze-output (at a freeze-capable location, every
// arrival converts to frozen the same day) - demand consumption.
//
// Because the cohort sets are sparse, a cohort with no variable on d-1
// (either because d-1 predates production, or the cohort has already aged
// out) is treated as zero starting inventory, optionally overridden by
// in.StartingInventory on the horizon's first day.
func addInventoryBalanceConstraints(m *milp.Model, in Input) error {
	mfgID := in.Graph.ManufacturingID()

	for _, key := range in.Indexes.SortedFrozenKeys() {
		loc, _ := in.Graph.Location(key.Location)
		dates := cohort.SortedDates(in.Indexes.Frozen[key])
		for i, d := range dates {
			expr := milp.LinExpr{}
			cur := varInventory(domain.StateFrozen, key, d)
			expr.Add(1, cur)

			if i == 0 {
				expr.Const -= in.StartingInventory[domain.CohortKey{Location: key.Location, Product: key.Product, ProductionDt: key.ProductionDt, State: domain.StateFrozen}]
			} else {
				prevName := varInventory(domain.StateFrozen, key, dates[i-1])
				if m.HasVar(prevName) {
					expr.Add(-1, prevName)
				}
			}

			for _, leg := range in.Legs {
				if leg.Destination != key.Location || leg.Mode != domain.TransportFrozen {
					continue
				}
				depDate := d.AddDays(-leg.TransitDays)
				shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, depDate)
				if m.HasVar(shipName) {
					expr.Add(-1, shipName)
				}
			}

			if loc.CanFreezeThaw() {
				if freezeName := varFreeze(key, d); m.HasVar(freezeName) {
					expr.Add(-1, freezeName)
				}
			}

			for _, leg := range in.Legs {
				if leg.Origin != key.Location || leg.Mode != domain.TransportFrozen {
					continue
				}
				shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, d)
				if m.HasVar(shipName) {
					expr.Add(1, shipName)
				}
			}

			err := m.AddConstraint(milp.Constraint{
				Name:  fmt.Sprintf("frozen_balance[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d),
				Expr:  expr,
				Sense: milp.Equal,
				RHS:   0,
			})
			if err != nil {
				return err
			}
		}
	}

	for _, key := range in.Indexes.SortedAmbientKeys() {
		loc, _ := in.Graph.Location(key.Location)
		dates := cohort.SortedDates(in.Indexes.Ambient[key])
		for i, d := range dates {
			expr := milp.LinExpr{}
			cur := varInventory(domain.StateAmbient, key, d)
			expr.Add(1, cur)

			if i == 0 {
				expr.Const -= in.StartingInventory[domain.CohortKey{Location: key.Location, Product: key.Product, ProductionDt: key.ProductionDt, State: domain.StateAmbient}]
			} else {
				prevName := varInventory(domain.StateAmbient, key, dates[i-1])
				if m.HasVar(prevName) {
					expr.Add(-1, prevName)
				}
			}

			if key.Location == domain.StorageNodeID && key.ProductionDt == d {
				prodName := varProduction(mfgID, key.Product, d)
				if m.HasVar(prodName) {
					expr.Add(-1, prodName)
				}
			}

			for _, leg := range in.Legs {
				if leg.Destination != key.Location || leg.Mode != domain.TransportAmbient {
					continue
				}
				depDate := d.AddDays(-leg.TransitDays)
				shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, depDate)
				if m.HasVar(shipName) {
					expr.Add(-1, shipName)
				}
			}

			if key.ProductionDt == d {
				for _, fkey := range in.Indexes.SortedFreezeThawKeys() {
					if fkey.Location != key.Location || fkey.Product != key.Product {
						continue
					}
					if thawName := varFreezeThaw(fkey, d); m.HasVar(thawName) {
						expr.Add(-1, thawName)
					}
				}
			}

			for _, leg := range in.Legs {
				if leg.Origin != key.Location || leg.Mode != domain.TransportAmbient {
					continue
				}
				shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, d)
				if m.HasVar(shipName) {
					expr.Add(1, shipName)
				}
			}

			if loc.CanFreezeThaw() {
				freezeKey := domain.CohortKey{Location: key.Location, Product: key.Product, ProductionDt: key.ProductionDt, State: domain.StateFrozen}
				if freezeName := varFreeze(freezeKey, d); m.HasVar(freezeName) {
					expr.Add(1, freezeName)
				}
			}

			if dk := (domain.DemandKey{Location: key.Location, Product: key.Product, Date: d}); m.HasVar(varShortage(dk)) {
				consumedName := varConsumed(key, d)
				if err := m.AddVar(milp.Var{Name: consumedName, Kind: milp.Continuous, Lower: 0}); err != nil {
					return err
				}
				expr.Add(1, consumedName)
			}

			err := m.AddConstraint(milp.Constraint{
				Name:  fmt.Sprintf("ambient_balance[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d),
				Expr:  expr,
				Sense: milp.Equal,
				RHS:   0,
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// addFreezeConstraints forces every ambient arrival at a freeze-capable
// location (production landing at the storage node, or an ambient-mode
// shipment arriving at a hub that can hold both states) to convert fully
// to frozen stock the same day: freeze[key,d] equals that day's ambient
// inflow for the identical cohort (spec item 11, an equality rather than a
// free decision, since frozen facilities cannot also hold the same
// cohort ambient overnight by construction).
func addFreezeConstraints(m *milp.Model, in Input) error {
	mfgID := in.Graph.ManufacturingID()
	for _, key := range in.Indexes.SortedFreezeThawKeys() {
		loc, ok := in.Graph.Location(key.Location)
		if !ok || !loc.CanFreezeThaw() {
			continue
		}
		for _, d := range cohort.SortedDates(in.Indexes.FreezeThaw[key]) {
			freezeName := varFreeze(key, d)
			if !m.HasVar(freezeName) {
				continue
			}
			expr := milp.LinExpr{}
			expr.Add(1, freezeName)

			if key.Location == domain.StorageNodeID && key.ProductionDt == d {
				if prodName := varProduction(mfgID, key.Product, d); m.HasVar(prodName) {
					expr.Add(-1, prodName)
				}
			}
			for _, leg := range in.Legs {
				if leg.Destination != key.Location || leg.Mode != domain.TransportAmbient {
					continue
				}
				depDate := d.AddDays(-leg.TransitDays)
				if shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, depDate); m.HasVar(shipName) {
					expr.Add(-1, shipName)
				}
			}

			name := fmt.Sprintf("freeze_equals_ambient_arrivals[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
			if err := m.AddConstraint(milp.Constraint{Name: name, Expr: expr, Sense: milp.Equal, RHS: 0}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addThawConstraints forces every frozen-mode arrival at a location that
// cannot hold frozen stock to convert fully to ambient the same day:
// thaw[key,d] equals that day's incoming frozen-mode shipments for the
// identical cohort (spec item 12's auto-thaw rule). The converted stock
// feeds a fresh ambient cohort dated at the thaw date, wired in
// addInventoryBalanceConstraints' thaw-input term.
func addThawConstraints(m *milp.Model, in Input) error {
	for _, key := range in.Indexes.SortedFreezeThawKeys() {
		loc, ok := in.Graph.Location(key.Location)
		if !ok || loc.SupportsFrozen() {
			continue
		}
		for _, d := range cohort.SortedDates(in.Indexes.FreezeThaw[key]) {
			thawName := varFreezeThaw(key, d)
			if !m.HasVar(thawName) {
				continue
			}
			expr := milp.LinExpr{}
			expr.Add(1, thawName)

			for _, leg := range in.Legs {
				if leg.Destination != key.Location || leg.Mode != domain.TransportFrozen {
					continue
				}
				depDate := d.AddDays(-leg.TransitDays)
				if shipName := varShipment(leg.Key(), key.Product, key.ProductionDt, depDate); m.HasVar(shipName) {
					expr.Add(-1, shipName)
				}
			}

			name := fmt.Sprintf("thaw_equals_frozen_arrivals[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
			if err := m.AddConstraint(milp.Constraint{Name: name, Expr: expr, Sense: milp.Equal, RHS: 0}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addProductionDayConstraints links the production_day[d] indicator to
// actual daily production with the standard big-M biconditional encoding
// (spec item 3): production <= bigM*day forces day=1 whenever any
// production occurs; production >= 1*day forces day=0 to mean zero
// production. Together they make production_day[d] an exact indicator,
// not merely an upper bound.
func addProductionDayConstraints(m *milp.Model, in Input) error {
	for _, d := range in.Horizon.Days() {
		dayName := varProductionDay(d)
		if !m.HasVar(dayName) {
			continue
		}
		expr := milp.LinExpr{}
		for _, loc := range in.Graph.Locations() {
			if loc.Type != domain.LocationManufacturing {
				continue
			}
			for _, product := range in.Products {
				if name := varProduction(loc.ID, product, d); m.HasVar(name) {
					expr.Add(1, name)
				}
			}
		}
		if len(expr.Terms) == 0 {
			continue
		}

		day, ok := in.Labor.Get(d)
		bigM := day.MaxHours * domain.ProductionRateUnitsPerHour
		if !ok || bigM <= 0 {
			bigM = 14 * domain.ProductionRateUnitsPerHour
		}

		upper := milp.LinExpr{Terms: append([]milp.Term{}, expr.Terms...)}
		upper.Add(-bigM, dayName)
		if err := m.AddConstraint(milp.Constraint{Name: fmt.Sprintf("production_day_upper[%s]", d), Expr: upper, Sense: milp.LessEq, RHS: 0}); err != nil {
			return err
		}

		lower := milp.LinExpr{Terms: append([]milp.Term{}, expr.Terms...)}
		lower.Add(-1, dayName)
		if err := m.AddConstraint(milp.Constraint{Name: fmt.Sprintf("production_day_lower[%s]", d), Expr: lower, Sense: milp.GreaterEq, RHS: 0}); err != nil {
			return err
		}
	}
	return nil
}

// addTruckLegLinkage ties shipment_leg flow on every leg departing the
// storage node to the trucks that serve it: the units shipped over a leg
// on a given day equal the units loaded onto trucks bound for that leg's
// destination that day (spec item 21). Trucks with intermediate stops are
// modelled by their final destination only, since truck_load carries no
// per-stop dimension (matching the existing truck_used/pallets variables).
func addTruckLegLinkage(m *milp.Model, in Input) error {
	for _, leg := range in.Legs {
		if leg.Origin != domain.StorageNodeID {
			continue
		}
		var servingTrucks []domain.Truck
		for _, truck := range in.Trucks {
			if truck.Destination == leg.Destination {
				servingTrucks = append(servingTrucks, truck)
			}
		}
		if len(servingTrucks) == 0 {
			continue
		}

		for _, d := range in.Horizon.Days() {
			for _, product := range in.Products {
				expr := milp.LinExpr{}
				for _, prodDate := range in.Horizon.Days() {
					if name := varShipment(leg.Key(), product, prodDate, d); m.HasVar(name) {
						expr.Add(1, name)
					}
				}
				for _, truck := range servingTrucks {
					if name := varTruckLoad(truck.ID, product, d); m.HasVar(name) {
						expr.Add(-1, name)
					}
				}
				if len(expr.Terms) == 0 {
					continue
				}
				name := fmt.Sprintf("truck_leg_link[%s-%s,%s,%s]", leg.Origin, leg.Destination, product, d)
				if err := m.AddConstraint(milp.Constraint{Name: name, Expr: expr, Sense: milp.Equal, RHS: 0}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addTruckTimingConstraints caps what a truck can load by what was actually
// on hand at the storage node when it departs (spec items 17/19/20): a
// morning truck may only draw on the prior day's ambient storage-node
// inventory; an afternoon truck may also draw on the same day's
// production. A truck departing on the horizon's first day, whose prior
// day precedes the horizon, draws against starting inventory instead.
func addTruckTimingConstraints(m *milp.Model, in Input) error {
	mfgID := in.Graph.ManufacturingID()
	for _, truck := range in.Trucks {
		for _, d := range in.Horizon.Days() {
			usedName := varTruckUsed(truck.ID, d)
			if !m.HasVar(usedName) {
				continue
			}

			expr := milp.LinExpr{}
			for _, product := range in.Products {
				if name := varTruckLoad(truck.ID, product, d); m.HasVar(name) {
					expr.Add(1, name)
				}
			}
			if len(expr.Terms) == 0 {
				continue
			}

			priorDay := d.AddDays(-1)
			if priorDay.Before(in.Horizon.Start) {
				for key, qty := range in.StartingInventory {
					if key.Location == domain.StorageNodeID && key.State == domain.StateAmbient {
						expr.Const -= qty
					}
				}
			} else {
				for _, key := range in.Indexes.SortedAmbientKeys() {
					if key.Location != domain.StorageNodeID {
						continue
					}
					if name := varInventory(domain.StateAmbient, key, priorDay); m.HasVar(name) {
						expr.Add(-1, name)
					}
				}
			}

			if truck.Departure == domain.DepartureAfternoon {
				for _, product := range in.Products {
					if name := varProduction(mfgID, product, d); m.HasVar(name) {
						expr.Add(-1, name)
					}
				}
			}

			name := fmt.Sprintf("truck_timing[%s,%s]", truck.ID, d)
			if err := m.AddConstraint(milp.Constraint{Name: name, Expr: expr, Sense: milp.LessEq, RHS: 0}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addTruckConstraints links truck_load to truck_used (no load without a
// scheduled departure), caps unit and pallet capacity, and enforces the
// pallet integrality rule: partial pallets still consume a full pallet
// slot (spec §4.5 item 16).
func addTruckConstraints(m *milp.Model, in Input) error {
	for _, truck := range in.Trucks {
		for _, d := range in.Horizon.Days() {
			usedName := varTruckUsed(truck.ID, d)
			if !m.HasVar(usedName) {
				continue
			}

			loadExpr := milp.LinExpr{}
			for _, product := range in.Products {
				loadName := varTruckLoad(truck.ID, product, d)
				if m.HasVar(loadName) {
					loadExpr.Add(1, loadName)
				}
			}

			capExpr := milp.LinExpr{Terms: append([]milp.Term{}, loadExpr.Terms...)}
			capExpr.Add(-truck.UnitCapacity, usedName)
			if err := m.AddConstraint(milp.Constraint{
				Name: fmt.Sprintf("truck_unit_cap[%s,%s]", truck.ID, d), Expr: capExpr, Sense: milp.LessEq, RHS: 0,
			}); err != nil {
				return err
			}

			palletsName := varPallets(truck.ID, d)
			palletExpr := milp.LinExpr{}
			palletExpr.Add(domain.UnitsPerPallet, palletsName)
			for _, t := range loadExpr.Terms {
				palletExpr.Add(-t.Coef, t.Var)
			}
			if err := m.AddConstraint(milp.Constraint{
				Name: fmt.Sprintf("pallet_integrality[%s,%s]", truck.ID, d), Expr: palletExpr, Sense: milp.GreaterEq, RHS: 0,
			}); err != nil {
				return err
			}

			palletCapExpr := milp.LinExpr{}
			palletCapExpr.Add(1, palletsName)
			palletCapExpr.Add(-float64(truck.PalletCapacity), usedName)
			if err := m.AddConstraint(milp.Constraint{
				Name: fmt.Sprintf("pallet_cap[%s,%s]", truck.ID, d), Expr: palletCapExpr, Sense: milp.LessEq, RHS: 0,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addDemandConstraints ensures every (location, product, date) demand
// point is met by consumption variables plus an explicit shortage
// variable, so the solver always has a feasible (if penalised) way to
// satisfy demand (spec §4.5 shortage handling).
func addDemandConstraints(m *milp.Model, in Input, demandKeys []domain.DemandKey) error {
	for _, dk := range demandKeys {
		expr := milp.LinExpr{}
		for _, key := range in.Indexes.SortedAmbientKeys() {
			if key.Location != dk.Location || key.Product != dk.Product {
				continue
			}
			consumedName := varConsumed(key, dk.Date)
			if m.HasVar(consumedName) {
				expr.Add(1, consumedName)
			}
		}
		shortName := varShortage(dk)
		expr.Add(1, shortName)

		err := m.AddConstraint(milp.Constraint{
			Name:  fmt.Sprintf("demand[%s,%s,%s]", dk.Location, dk.Product, dk.Date),
			Expr:  expr,
			Sense: milp.Equal,
			RHS:   in.Demand[dk],
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// addProductionSmoothing is the optional, off-by-default day-over-day
// production-change penalty (spec §9 Open Question: production
// smoothing). When enabled it introduces auxiliary delta variables
// constrained to bound |production[d] - production[d-1]| and adds them to
// the objective at in.SmoothingCostPerUnit.
func addProductionSmoothing(m *milp.Model, in Input) error {
	for _, loc := range in.Graph.Locations() {
		if loc.Type != domain.LocationManufacturing {
			continue
		}
		for _, product := range in.Products {
			days := in.Horizon.Days()
			for i := 1; i < len(days); i++ {
				cur := varProduction(loc.ID, product, days[i])
				prev := varProduction(loc.ID, product, days[i-1])
				if !m.HasVar(cur) || !m.HasVar(prev) {
					continue
				}
				deltaName := fmt.Sprintf("prod_delta[%s,%s,%s]", loc.ID, product, days[i])
				if err := m.AddVar(milp.Var{Name: deltaName, Kind: milp.Continuous, Lower: 0}); err != nil {
					return err
				}
				up := milp.LinExpr{}
				up.Add(1, deltaName)
				up.Add(-1, cur)
				up.Add(1, prev)
				if err := m.AddConstraint(milp.Constraint{Name: deltaName + "_up", Expr: up, Sense: milp.GreaterEq, RHS: 0}); err != nil {
					return err
				}
				down := milp.LinExpr{}
				down.Add(1, deltaName)
				down.Add(1, cur)
				down.Add(-1, prev)
				if err := m.AddConstraint(milp.Constraint{Name: deltaName + "_down", Expr: down, Sense: milp.GreaterEq, RHS: 0}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
