// Package solution turns a raw solver variable assignment back into
// domain-shaped results: production batches, shipments, cohort inventory,
// freeze/thaw ledger entries, truck usage, a cost breakdown, and a
// demand-satisfaction report (spec §4.6).
package solution

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
)

// Tolerance is the epsilon below which a variable's value is treated as
// zero, filtering solver noise out of the extracted solution (spec §4.6).
const Tolerance = 1e-2

// ProductionBatch is one unit of produced stock.
type ProductionBatch struct {
	Location string
	Product  string
	Date     domain.Date
	Units    float64
}

// Shipment is one cohort flow over a leg departing on a given date.
type Shipment struct {
	Origin         string
	Destination    string
	Product        string
	ProductionDate domain.Date
	DepartureDate  domain.Date
	Units          float64
}

// FreezeThawEvent is one cohort thawed on a given date.
type FreezeThawEvent struct {
	Location       string
	Product        string
	ProductionDate domain.Date
	ThawDate       domain.Date
	Units          float64
}

// TruckUsage records whether and how much a scheduled truck carried.
type TruckUsage struct {
	TruckID string
	Date    domain.Date
	Used    bool
	Pallets int
	Units   float64
}

// CostBreakdown itemises the extracted plan's cost by component. It has no
// labor component: the objective's labor cost is not extracted, so Total
// can be lower than the solver's objective value.
type CostBreakdown struct {
	Production   float64
	Holding      float64
	Transport    float64
	FreezeThaw   float64
	TruckFixed   float64
	TruckVariable float64
	Shortage     float64
	Smoothing    float64
	Total        float64
}

// DemandLine is one demand point's satisfaction outcome.
type DemandLine struct {
	Location string
	Product  string
	Date     domain.Date
	Demand   float64
	Shortage float64
}

// Fulfilled reports whether this demand point was fully met.
func (d DemandLine) Fulfilled() bool { return d.Shortage <= Tolerance }

// Solution is the fully extracted result.
type Solution struct {
	Production    []ProductionBatch
	Shipments     []Shipment
	FreezeThaw    []FreezeThawEvent
	FrozenCohorts map[domain.CohortKey]map[domain.Date]float64
	AmbientCohorts map[domain.CohortKey]map[domain.Date]float64
	Trucks        []TruckUsage
	Costs         CostBreakdown
	Demand        []DemandLine
}

// Values is the raw name -> value assignment returned by the solver.
type Values map[string]float64

func (v Values) get(name string) float64 {
	val, ok := v[name]
	if !ok {
		return 0
	}
	if val < 0 && val > -Tolerance {
		return 0
	}
	if val < Tolerance && val > -Tolerance {
		return 0
	}
	return val
}

// Extract builds a Solution from the solver's variable values and the same
// indexes/legs/products/locations/horizon/trucks/demand/costs used to build
// the model that produced them.
func Extract(vals Values, ix *cohort.Indexes, legs []domain.Leg, products []string, locations []domain.Location, horizon domain.DateRange, trucks []domain.Truck, demand map[domain.DemandKey]float64, costs domain.CostStructure, smoothingCostPerUnit float64) *Solution {
	sol := &Solution{
		FrozenCohorts:  make(map[domain.CohortKey]map[domain.Date]float64),
		AmbientCohorts: make(map[domain.CohortKey]map[domain.Date]float64),
	}

	for _, loc := range locations {
		if loc.Type != domain.LocationManufacturing {
			continue
		}
		for _, product := range products {
			for _, d := range horizon.Days() {
				name := fmt.Sprintf("production[%s,%s,%s]", loc.ID, product, d)
				if units := vals.get(name); units > 0 {
					sol.Production = append(sol.Production, ProductionBatch{Location: loc.ID, Product: product, Date: d, Units: units})
					sol.Costs.Production += units * costs.ProductionCostPerUnit
				}
			}
		}
	}
	sort.Slice(sol.Production, func(i, j int) bool {
		if sol.Production[i].Date != sol.Production[j].Date {
			return sol.Production[i].Date < sol.Production[j].Date
		}
		if sol.Production[i].Location != sol.Production[j].Location {
			return sol.Production[i].Location < sol.Production[j].Location
		}
		return sol.Production[i].Product < sol.Production[j].Product
	})

	for _, key := range ix.SortedFrozenKeys() {
		for _, d := range cohort.SortedDates(ix.Frozen[key]) {
			name := fmt.Sprintf("inv_%s[%s,%s,%s,%s]", domain.StateFrozen, key.Location, key.Product, key.ProductionDt, d)
			units := vals.get(name)
			if units <= 0 {
				continue
			}
			if sol.FrozenCohorts[key] == nil {
				sol.FrozenCohorts[key] = make(map[domain.Date]float64)
			}
			sol.FrozenCohorts[key][d] = units
			sol.Costs.Holding += units * costs.HoldingCostFrozenPerUnitDay
		}
	}
	for _, key := range ix.SortedAmbientKeys() {
		for _, d := range cohort.SortedDates(ix.Ambient[key]) {
			name := fmt.Sprintf("inv_%s[%s,%s,%s,%s]", domain.StateAmbient, key.Location, key.Product, key.ProductionDt, d)
			units := vals.get(name)
			if units <= 0 {
				continue
			}
			if sol.AmbientCohorts[key] == nil {
				sol.AmbientCohorts[key] = make(map[domain.Date]float64)
			}
			sol.AmbientCohorts[key][d] = units
			sol.Costs.Holding += units * costs.HoldingCostAmbientPerUnitDay
		}
	}

	for _, key := range ix.SortedFreezeThawKeys() {
		for _, d := range cohort.SortedDates(ix.FreezeThaw[key]) {
			thawName := fmt.Sprintf("thaw[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
			if units := vals.get(thawName); units > 0 {
				sol.FreezeThaw = append(sol.FreezeThaw, FreezeThawEvent{
					Location: key.Location, Product: key.Product, ProductionDate: key.ProductionDt, ThawDate: d, Units: units,
				})
				sol.Costs.FreezeThaw += units * costs.ThawCostPerUnit
			}

			freezeName := fmt.Sprintf("freeze[%s,%s,%s,%s]", key.Location, key.Product, key.ProductionDt, d)
			if units := vals.get(freezeName); units > 0 {
				sol.Costs.FreezeThaw += units * costs.FreezeCostPerUnit
			}
		}
	}
	sort.Slice(sol.FreezeThaw, func(i, j int) bool { return sol.FreezeThaw[i].ThawDate < sol.FreezeThaw[j].ThawDate })

	legsByKey := make(map[domain.LegKey]domain.Leg, len(legs))
	for _, l := range legs {
		legsByKey[l.Key()] = l
	}
	for lk, leg := range legsByKey {
		for _, product := range products {
			sk := cohort.ShipmentKey{Leg: lk, Product: product}
			dates, ok := ix.Shipment[sk]
			if !ok {
				continue
			}
			for _, depDate := range cohort.SortedDates(dates) {
				for _, prodDate := range horizon.Days() {
					name := fmt.Sprintf("ship[%s-%s,%s,%s,%s]", lk.Origin, lk.Destination, product, prodDate, depDate)
					units := vals.get(name)
					if units <= 0 {
						continue
					}
					sol.Shipments = append(sol.Shipments, Shipment{
						Origin: lk.Origin, Destination: lk.Destination, Product: product,
						ProductionDate: prodDate, DepartureDate: depDate, Units: units,
					})
					sol.Costs.Transport += units * leg.CostPerUnit
				}
			}
		}
	}
	sort.Slice(sol.Shipments, func(i, j int) bool {
		if sol.Shipments[i].DepartureDate != sol.Shipments[j].DepartureDate {
			return sol.Shipments[i].DepartureDate < sol.Shipments[j].DepartureDate
		}
		return sol.Shipments[i].Origin < sol.Shipments[j].Origin
	})

	for _, truck := range trucks {
		for _, d := range horizon.Days() {
			usedName := fmt.Sprintf("truck_used[%s,%s]", truck.ID, d)
			used := vals.get(usedName) > 0.5
			if !used {
				continue
			}
			palletsName := fmt.Sprintf("pallets[%s,%s]", truck.ID, d)
			pallets := int(vals.get(palletsName) + 0.5)
			units := 0.0
			for _, product := range products {
				units += vals.get(fmt.Sprintf("truck_load[%s,%s,%s]", truck.ID, product, d))
			}
			sol.Trucks = append(sol.Trucks, TruckUsage{TruckID: truck.ID, Date: d, Used: used, Pallets: pallets, Units: units})
			sol.Costs.TruckFixed += truck.FixedCost
			sol.Costs.TruckVariable += units * truck.CostPerUnit
		}
	}
	sort.Slice(sol.Trucks, func(i, j int) bool {
		if sol.Trucks[i].Date != sol.Trucks[j].Date {
			return sol.Trucks[i].Date < sol.Trucks[j].Date
		}
		return sol.Trucks[i].TruckID < sol.Trucks[j].TruckID
	})

	demandKeys := make([]domain.DemandKey, 0, len(demand))
	for k := range demand {
		demandKeys = append(demandKeys, k)
	}
	sort.Slice(demandKeys, func(i, j int) bool {
		if demandKeys[i].Location != demandKeys[j].Location {
			return demandKeys[i].Location < demandKeys[j].Location
		}
		if demandKeys[i].Product != demandKeys[j].Product {
			return demandKeys[i].Product < demandKeys[j].Product
		}
		return demandKeys[i].Date < demandKeys[j].Date
	})
	for _, dk := range demandKeys {
		shortName := fmt.Sprintf("shortage[%s,%s,%s]", dk.Location, dk.Product, dk.Date)
		shortage := vals.get(shortName)
		sol.Demand = append(sol.Demand, DemandLine{Location: dk.Location, Product: dk.Product, Date: dk.Date, Demand: demand[dk], Shortage: shortage})
		sol.Costs.Shortage += shortage * costs.ShortagePenaltyPerUnit
	}

	if smoothingCostPerUnit != 0 {
		for name, v := range vals {
			if strings.HasPrefix(name, "prod_delta[") && v > Tolerance {
				sol.Costs.Smoothing += v * smoothingCostPerUnit
			}
		}
	}

	sol.Costs.Total = sol.Costs.Production + sol.Costs.Holding + sol.Costs.Transport + sol.Costs.FreezeThaw +
		sol.Costs.TruckFixed + sol.Costs.TruckVariable + sol.Costs.Shortage + sol.Costs.Smoothing

	return sol
}

// DemandDiagnostics summarises shortage by location, supplementing the
// original's per-route reporting with an aggregate view useful for
// dashboards (spec SPEC_FULL.md "Supplemented features").
type DemandDiagnostics struct {
	TotalDemand      float64
	TotalShortage    float64
	ShortageByLocation map[string]float64
	UnfulfilledCount int
}

// Diagnostics computes DemandDiagnostics over the extracted demand lines.
func (s *Solution) Diagnostics() DemandDiagnostics {
	diag := DemandDiagnostics{ShortageByLocation: make(map[string]float64)}
	for _, line := range s.Demand {
		diag.TotalDemand += line.Demand
		diag.TotalShortage += line.Shortage
		if line.Shortage > Tolerance {
			diag.ShortageByLocation[line.Location] += line.Shortage
			diag.UnfulfilledCount++
		}
	}
	return diag
}

// FillRate returns the fraction of total demand satisfied, in [0, 1].
func (d DemandDiagnostics) FillRate() float64 {
	if d.TotalDemand == 0 {
		return 1
	}
	return 1 - d.TotalShortage/d.TotalDemand
}

// ParseLPValue is a small helper for solvers (like CBC's -solu output) that
// emit "<name> <value>" lines; it's tolerant of either space- or
// tab-separated columns and ignores a leading row index column.
func ParseLPValue(fields []string) (name string, value float64, ok bool) {
	if len(fields) < 2 {
		return "", 0, false
	}
	// CBC's solution file format is "<index> <name> <value> <reduced cost>".
	idx := 0
	if _, err := strconv.Atoi(fields[0]); err == nil && len(fields) >= 3 {
		idx = 1
	}
	v, err := strconv.ParseFloat(fields[idx+1], 64)
	if err != nil {
		return "", 0, false
	}
	return fields[idx], v, true
}
