// Package plan wires the pure core packages together into one entry point:
// build a network, enumerate routes, index cohorts, build the MILP model,
// and (once solved) extract a Solution. It also hosts a registry of
// pre-solve checks, the same pattern the teacher uses for its anomaly
// detectors, adapted here to validate planning input before a model is
// ever built.
package plan

import (
	"fmt"
	"sort"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/milp"
	"github.com/pinggolf/breadplan/internal/planning/model"
	"github.com/pinggolf/breadplan/internal/planning/network"
	"github.com/pinggolf/breadplan/internal/planning/perr"
	"github.com/pinggolf/breadplan/internal/planning/routes"
	"github.com/pinggolf/breadplan/internal/planning/solution"
)

// Input is everything needed to go from raw configuration to a buildable
// MILP model.
type Input struct {
	Locations         []domain.Location
	Routes            []domain.Route
	ManufacturingID   string
	Products          []string
	Horizon           domain.DateRange
	Forecast          domain.Forecast
	Labor             domain.LaborCalendar
	Trucks            []domain.Truck
	Costs             domain.CostStructure
	StartingInventory domain.InventorySnapshot

	MaxRouteHops              int
	CohortWarnThreshold       int
	EnableProductionSmoothing bool
	SmoothingCostPerUnit      float64
}

// Plan is the built, not-yet-solved artifact: the model plus everything
// the solution extractor will need once a solver returns values.
type Plan struct {
	Graph   *network.Graph
	Indexes *cohort.Indexes
	Legs    []domain.Leg
	Model   *milp.Model

	Products []string
	Horizon  domain.DateRange
	Trucks   []domain.Truck
	Demand   map[domain.DemandKey]float64
	Costs    domain.CostStructure

	Warnings []string
}

// Check is one pre-solve validator, run over the Input and the built
// network graph before the MILP model is built. Checks never mutate state; they either
// pass (nil) or return a *perr.Error.
type Check func(Input, *network.Graph) error

// Registry is an ordered collection of pre-solve Checks, run in
// registration order so error messages are reproducible.
type Registry struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// NewRegistry returns a Registry pre-populated with the standard checks
// (reachability, labor coverage); callers may Register additional
// domain-specific checks before calling Run.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("network_connectivity", checkNetworkConnectivity)
	r.Register("labor_calendar_coverage", checkLaborCoverage)
	return r
}

// Register appends a named check to the registry.
func (r *Registry) Register(name string, c Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: c})
}

// Run executes every registered check in order, returning the first
// failure encountered.
func (r *Registry) Run(in Input, g *network.Graph) error {
	for _, nc := range r.checks {
		if err := nc.check(in, g); err != nil {
			return fmt.Errorf("plan: check %q failed: %w", nc.name, err)
		}
	}
	return nil
}

func checkNetworkConnectivity(in Input, g *network.Graph) error {
	summary := g.ConnectivitySummary()
	if summary.ConnectivityRatio == 0 && summary.PossibleConnections > 0 {
		return perr.New(perr.KindInfeasibleInput, "no breadroom is reachable from any manufacturing site")
	}
	return nil
}

func checkLaborCoverage(in Input, g *network.Graph) error {
	for _, d := range in.Horizon.Days() {
		if _, ok := in.Labor.Get(d); !ok {
			return perr.New(perr.KindInfeasibleInput, "labor calendar missing entry", d.String())
		}
	}
	return nil
}

// Build runs the full pipeline: network -> route enumeration -> cohort
// indexing -> model construction. The returned Plan's Model is ready to
// hand to a solver; Warnings carries non-fatal notices such as the cohort
// size warning.
func Build(in Input, registry *Registry) (*Plan, error) {
	g, err := network.Build(in.Locations, in.Routes, in.ManufacturingID)
	if err != nil {
		return nil, fmt.Errorf("plan: building network: %w", err)
	}

	if registry == nil {
		registry = NewRegistry()
	}
	if err := registry.Run(in, g); err != nil {
		return nil, err
	}

	legs := g.Legs()

	enumerator := routes.New(g)
	var feasiblePaths []routes.Path
	for _, loc := range g.Locations() {
		if loc.Type != domain.LocationBreadroom {
			continue
		}
		res := enumerator.FindFeasiblePaths(domain.StorageNodeID, loc.ID, routes.Options{
			MaxHops:      in.MaxRouteHops,
			InitialState: domain.StateFrozen,
		})
		feasiblePaths = append(feasiblePaths, res.Paths...)
	}

	usedLegs := routes.AllLegsUsed(feasiblePaths)
	if len(usedLegs) == 0 {
		usedLegs = legs
	}

	startInv, err := in.StartingInventory.Canonicalize(locationsByID(in.Locations), in.Horizon.Start)
	if err != nil {
		return nil, fmt.Errorf("plan: canonicalizing starting inventory: %w", err)
	}

	ix, warning, err := cohort.Build(g, usedLegs, in.Products, in.Horizon, cohort.Options{WarnThreshold: in.CohortWarnThreshold}, startInv)
	if err != nil {
		return nil, fmt.Errorf("plan: building cohort indexes: %w", err)
	}

	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	demand := in.Forecast.Demand(in.Horizon)

	builderInput := model.Input{
		Graph:                     g,
		Indexes:                   ix,
		Legs:                      usedLegs,
		Products:                  in.Products,
		Horizon:                   in.Horizon,
		Demand:                    demand,
		Labor:                     in.Labor,
		Trucks:                    in.Trucks,
		Costs:                     in.Costs,
		StartingInventory:         startInv,
		EnableProductionSmoothing: in.EnableProductionSmoothing,
		SmoothingCostPerUnit:      in.SmoothingCostPerUnit,
	}

	m, err := model.Build(builderInput)
	if err != nil {
		return nil, err
	}

	if size := m.VarCount(); size > 0 {
		sort.Strings(warnings) // deterministic order if more than one accumulates
	}

	return &Plan{
		Graph:    g,
		Indexes:  ix,
		Legs:     usedLegs,
		Model:    m,
		Products: in.Products,
		Horizon:  in.Horizon,
		Trucks:   in.Trucks,
		Demand:   demand,
		Costs:    in.Costs,
		Warnings: warnings,
	}, nil
}

// Extract turns a solved variable assignment into a domain-shaped
// solution.Solution using the indexes/legs/products/horizon captured when
// the Plan was built.
func (p *Plan) Extract(vals solution.Values, smoothingCostPerUnit float64) *solution.Solution {
	return solution.Extract(vals, p.Indexes, p.Legs, p.Products, p.Graph.Locations(), p.Horizon, p.Trucks, p.Demand, p.Costs, smoothingCostPerUnit)
}

func locationsByID(locs []domain.Location) map[string]domain.Location {
	out := make(map[string]domain.Location, len(locs))
	for _, l := range locs {
		out[l.ID] = l
	}
	return out
}
